package di

import (
	"context"
	"fmt"

	"journal_backend/internal/feature/entries/usecase"
	infrahttp "journal_backend/internal/platform/http"
	"journal_backend/internal/platform/storage"
)

// NewImageStore は STORAGE_DRIVER に応じた画像ストアを生成します。
// local の場合は /media で配信するディレクトリも返します（s3 では空文字）。
func NewImageStore(ctx context.Context, cfg storage.Config) (usecase.ImageStore, string, error) {
	switch cfg.Driver {
	case storage.DriverS3:
		httpClient := infrahttp.NewHTTPClient(cfg.S3.Timeout)
		s, err := storage.NewS3Store(ctx, cfg.S3, httpClient)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case storage.DriverLocal, "":
		s, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, "", err
		}
		return s, s.Root(), nil
	default:
		return nil, "", fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
