package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"journal_backend/internal/feature/auth/domain/entity"
	"journal_backend/internal/shared/validation"
)

const (
	// maxSessionsPerUser はユーザーごとの同時ログイン数の上限です。超えた場合は最も古いセッションを削除します。
	maxSessionsPerUser = 5

	// sessionIDBytes はセッションIDの乱数バイト数です（16進で64文字）。
	sessionIDBytes = 32

	// MaxUsernameLength, MaxEmailLength, MaxCountryLength はusersテーブルの列長です。
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxCountryLength  = 50

	// maxPasswordBytes は bcrypt が受け付けるパスワードの最大バイト数です。
	maxPasswordBytes = 72

	// dummyHash はユーザーが存在しない場合にも bcrypt 比較を行うためのハッシュです。
	dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーを保存します。一意制約違反の場合は ErrUserAlreadyExists を返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByUsername はユーザー名で検索します。存在しない場合は ErrUserNotFound を返します。
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// ExistsByUsername はユーザー名が登録済みかを返します。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail はメールアドレスが登録済みかを返します。
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// TokenGenerator はセッションCookieに入れる署名済みトークンを生成します。
type TokenGenerator interface {
	GenerateToken(userID uint, username, sessionID string, expiresAt time.Time) (string, error)
}

// RegisterInput は登録フォームの入力です。
type RegisterInput struct {
	Username         string
	Email            string
	Password         string
	RepeatedPassword string
	Country          string
}

// ClientInfo はセッションに記録するクライアント情報です。
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// LoginResult はログイン成功時の結果です。
type LoginResult struct {
	Token     string
	SessionID string
	User      *entity.User
	ExpiresAt time.Time
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users      UserRepository
	sessions   SessionRepository
	tokens     TokenGenerator
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, sessions SessionRepository, tokens TokenGenerator, sessionTTL time.Duration) *authUsecase {
	return &authUsecase{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register は全フィールドを検証したうえでユーザーを作成します。
// 検証エラーはまとめて validation.Errors として返します。
func (u *authUsecase) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	var errs validation.Errors
	if err := u.checkRegistration(ctx, in, &errs); err != nil {
		return nil, err
	}
	if errs.HasErrors() {
		return nil, errs.Err()
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		Country:  in.Country,
	}
	if err := u.users.Create(ctx, user); err != nil {
		// 事前チェック後に同時登録された場合
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, u.collisionErrors(ctx, in)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// checkRegistration は各フィールドを独立に検証し、失敗をすべて errs に集めます。
// 戻り値のエラーはリポジトリ障害など検証以外の失敗です。
func (u *authUsecase) checkRegistration(ctx context.Context, in RegisterInput, errs *validation.Errors) error {
	if err := validation.Text("username", in.Username, MaxUsernameLength, true); err != nil {
		errs.Collect(err)
	} else if err := errs.Collect(validation.Username(ctx, in.Username, u.users.ExistsByUsername)); err != nil {
		return err
	}

	if err := validation.Text("email", in.Email, MaxEmailLength, true); err != nil {
		errs.Collect(err)
	} else if err := errs.Collect(validation.Email(ctx, in.Email, u.users.ExistsByEmail)); err != nil {
		return err
	}

	// 未入力は項目ごとに報告し、両方あるときだけ一致と長さを見る
	switch {
	case in.Password == "" || in.RepeatedPassword == "":
		if in.Password == "" {
			errs.Add("password", "This field is required.", validation.ErrInvalidFormat)
		}
		if in.RepeatedPassword == "" {
			errs.Add("repeated_password", "This field is required.", validation.ErrInvalidFormat)
		}
	case len(in.Password) > maxPasswordBytes:
		errs.Add("password", fmt.Sprintf("Password must be at most %d bytes long.", maxPasswordBytes), validation.ErrInvalidFormat)
	default:
		errs.Collect(validation.Password(in.Password, in.RepeatedPassword))
	}

	errs.Collect(validation.Text("country", in.Country, MaxCountryLength, false))
	return nil
}

// collisionErrors は一意制約違反になった列をもう一度調べ、該当するフィールドにエラーを付けます。
// どちらか判定できない場合は両方に付けます。
func (u *authUsecase) collisionErrors(ctx context.Context, in RegisterInput) error {
	var errs validation.Errors
	if taken, err := u.users.ExistsByUsername(ctx, in.Username); err != nil || taken {
		errs.Add("username", "This username is already taken.", validation.ErrDuplicate)
	}
	if taken, err := u.users.ExistsByEmail(ctx, in.Email); err != nil || taken {
		errs.Add("email", "This email is already used by another account.", validation.ErrDuplicate)
	}
	if !errs.HasErrors() {
		errs.Add("username", "This username is already taken.", validation.ErrDuplicate)
		errs.Add("email", "This email is already used by another account.", validation.ErrDuplicate)
	}
	return errs.Err()
}

// Login はユーザーを認証し、セッションを作成して署名済みトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, username, password string, client ClientInfo) (*LoginResult, error) {
	user, err := u.users.FindByUsername(ctx, username)

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err != nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}

	if err := u.enforceSessionLimit(ctx, user.ID); err != nil {
		return nil, err
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := u.now()
	session := &entity.Session{
		ID:        id,
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(u.sessionTTL),
	}
	if err := u.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := u.tokens.GenerateToken(user.ID, user.Username, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		SessionID: session.ID,
		User:      user,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// enforceSessionLimit は新しいセッションを作る前に上限を超える古いセッションを削除します。
func (u *authUsecase) enforceSessionLimit(ctx context.Context, userID uint) error {
	count, err := u.sessions.CountByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	for ; count >= maxSessionsPerUser; count-- {
		if err := u.sessions.DeleteOldestByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to evict session: %w", err)
		}
	}
	return nil
}

// Logout はセッションを無効化します。既に存在しないセッションは成功扱いです。
func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := u.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsSessionActive はセッションが存在し、期限内かつ未失効かを返します。
func (u *authUsecase) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	s, err := u.sessions.FindByID(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.IsActive(u.now()), nil
}

// PruneExpiredSessions は期限切れのセッションを削除し、削除件数を返します。
func (u *authUsecase) PruneExpiredSessions(ctx context.Context) (int64, error) {
	return u.sessions.DeleteExpired(ctx)
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
