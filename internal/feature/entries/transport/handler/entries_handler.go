// Package handler はentriesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	collectionentity "journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/entries/domain/entity"
	"journal_backend/internal/feature/entries/transport/http/dto"
	"journal_backend/internal/feature/entries/usecase"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/web"
	"journal_backend/internal/shared/validation"
)

const myEntriesPath = "/my-entries"

// EntriesUsecase はエントリー操作のユースケースを定義します。
type EntriesUsecase interface {
	Create(ctx context.Context, ownerID uint, in usecase.EntryInput) (*entity.Entry, error)
	Get(ctx context.Context, ownerID, id uint) (*entity.Entry, error)
	Update(ctx context.Context, ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error)
	Delete(ctx context.Context, ownerID, id uint) error
	ListOwn(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error)
	ListPublic(ctx context.Context) ([]entity.Entry, error)
	CollectionChoices(ctx context.Context, owner *uint) ([]collectionentity.Collection, error)
	SetCollections(ctx context.Context, ownerID, entryID uint, ids []uint) error
	ImageURL(key string) string
}

// EntriesHandler はエントリーのページとフォームを処理します。
type EntriesHandler struct {
	entries  EntriesUsecase
	location *time.Location
}

// NewEntriesHandler はEntriesHandlerを生成します。フォームの日時はlocで解釈します。
func NewEntriesHandler(entries EntriesUsecase, loc *time.Location) *EntriesHandler {
	if loc == nil {
		loc = time.Local
	}
	return &EntriesHandler{entries: entries, location: loc}
}

// entryView is an entry with its resolved image URL.
type entryView struct {
	entity.Entry
	ImageURL string
}

func (h *EntriesHandler) views(entries []entity.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{Entry: e, ImageURL: h.entries.ImageURL(e.ImageKey)})
	}
	return out
}

// Home は全ユーザーの公開エントリーを新しい順に表示します。
func (h *EntriesHandler) Home(c *gin.Context) {
	entries, err := h.entries.ListPublic(c.Request.Context())
	if err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Render(c, http.StatusOK, "home.html", gin.H{
		"Title":   "Home",
		"Entries": h.views(entries),
	})
}

// MyEntries はログインユーザーのエントリーをcollection・type・qで絞り込んで表示します。
func (h *EntriesHandler) MyEntries(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)

	var q dto.FilterQuery
	// 不正なクエリは絞り込みなしとして扱う
	_ = c.ShouldBindQuery(&q)

	entries, err := h.entries.ListOwn(c.Request.Context(), ownerID, q.Filter())
	if err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	collections, err := h.entries.CollectionChoices(c.Request.Context(), &ownerID)
	if err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Render(c, http.StatusOK, "my_entries.html", gin.H{
		"Title":       "My entries",
		"Entries":     h.views(entries),
		"Collections": collections,
		"Types":       entity.Types,
		"Filter":      q.View(),
	})
}

// ShowCreate は空のエントリーフォームを表示します。
func (h *EntriesHandler) ShowCreate(c *gin.Context) {
	h.renderForm(c, http.StatusOK, "New entry", "/entries/new", dto.EntryForm{
		Date: time.Now().In(h.location).Format(dto.DateInputLayout),
		Type: string(entity.TypePrivate),
	}, "", nil)
}

// Create はエントリーフォームを処理します。
func (h *EntriesHandler) Create(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)

	form, in, dateErrs, ok := h.bindEntry(c)
	if !ok {
		h.renderForm(c, http.StatusUnprocessableEntity, "New entry", "/entries/new", form, "", dateErrs)
		return
	}

	if _, err := h.entries.Create(c.Request.Context(), ownerID, in); err != nil {
		if verrs, ok := validation.AsErrors(err); ok && !errors.Is(err, validation.ErrInvalidInput) {
			h.renderForm(c, http.StatusUnprocessableEntity, "New entry", "/entries/new", form, "", mergeErrors(dateErrs, verrs))
			return
		}
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Redirect(c, myEntriesPath, web.LevelSuccess, "Entry created successfully.")
}

// ShowEdit は所有者にのみ編集フォームを表示します。
func (h *EntriesHandler) ShowEdit(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := entryID(c)
	if !ok {
		return
	}
	e, err := h.entries.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, "Edit entry", editPath(id), dto.EntryFormFrom(e), h.entries.ImageURL(e.ImageKey), nil)
}

// Edit は編集フォームを処理します。所有者の確認は入力検証より先に行います。
func (h *EntriesHandler) Edit(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := entryID(c)
	if !ok {
		return
	}
	current, err := h.entries.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	imageURL := h.entries.ImageURL(current.ImageKey)

	form, in, dateErrs, ok := h.bindEntry(c)
	if !ok {
		h.renderForm(c, http.StatusUnprocessableEntity, "Edit entry", editPath(id), form, imageURL, dateErrs)
		return
	}

	if _, err := h.entries.Update(c.Request.Context(), ownerID, id, in); err != nil {
		if verrs, ok := validation.AsErrors(err); ok && !errors.Is(err, validation.ErrInvalidInput) {
			h.renderForm(c, http.StatusUnprocessableEntity, "Edit entry", editPath(id), form, imageURL, mergeErrors(dateErrs, verrs))
			return
		}
		h.handleError(c, err)
		return
	}
	web.Redirect(c, myEntriesPath, web.LevelSuccess, "Entry updated successfully.")
}

// Delete はエントリーを削除します。
func (h *EntriesHandler) Delete(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := entryID(c)
	if !ok {
		return
	}
	if err := h.entries.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.handleError(c, err)
		return
	}
	web.Redirect(c, myEntriesPath, web.LevelSuccess, "Entry deleted.")
}

// ConfirmDelete はGETによる削除要求を削除せずに差し戻します。
func (h *EntriesHandler) ConfirmDelete(c *gin.Context) {
	web.Redirect(c, myEntriesPath, web.LevelWarning, "Deletion not confirmed.")
}

// ShowCollections はエントリーの所属コレクション選択フォームを表示します。
func (h *EntriesHandler) ShowCollections(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := entryID(c)
	if !ok {
		return
	}
	e, err := h.entries.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	collections, err := h.entries.CollectionChoices(c.Request.Context(), &ownerID)
	if err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Render(c, http.StatusOK, "entry_collections.html", gin.H{
		"Title":       "Entry collections",
		"Entry":       e,
		"Collections": collections,
	})
}

// SetCollections は選択されたコレクションで所属関係を置き換えます。
func (h *EntriesHandler) SetCollections(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := entryID(c)
	if !ok {
		return
	}
	ids := dto.ParseIDs(c.PostFormArray("collections"))
	if err := h.entries.SetCollections(c.Request.Context(), ownerID, id, ids); err != nil {
		h.handleError(c, err)
		return
	}
	web.Redirect(c, myEntriesPath, web.LevelSuccess, "Collections updated.")
}

// bindEntry reads the form and the optional image. ok is false when the
// request itself could not be read; field rules are left to the usecase.
func (h *EntriesHandler) bindEntry(c *gin.Context) (dto.EntryForm, usecase.EntryInput, validation.Errors, bool) {
	var form dto.EntryForm
	var errs validation.Errors
	if err := c.ShouldBind(&form); err != nil {
		slog.Warn("entry form unreadable", "error", err, "remote_addr", c.ClientIP())
		return form, usecase.EntryInput{}, web.BindingErrors(err), false
	}

	// 読めない日付は nil のまま渡す。ユースケースは日付のない入力を必ず拒否する
	in := usecase.EntryInput{Detail: form.Detail, Type: entity.EntryType(form.Type)}
	switch t, ok := form.ParseDate(h.location); {
	case ok:
		in.Date = &t
	case strings.TrimSpace(form.Date) == "":
		errs.Add("date", "This field is required.", validation.ErrInvalidFormat)
	default:
		errs.Add("date", "Enter a valid date/time.", validation.ErrInvalidFormat)
	}

	img, err := readImage(c)
	if err != nil {
		slog.Warn("entry image unreadable", "error", err, "remote_addr", c.ClientIP())
		errs.Add("image", "The uploaded file could not be read.", validation.ErrInvalidFormat)
		return form, in, errs, false
	}
	in.Image = img
	return form, in, errs, true
}

// mergeErrors は handler で検出したエラーにユースケースのエラーを加えます。
// 同じフィールドのエラーは handler 側を優先します。
func mergeErrors(pre, errs validation.Errors) validation.Errors {
	out := slices.Clone(pre)
	for _, e := range errs {
		if len(pre.Field(e.Field)) == 0 {
			out = append(out, e)
		}
	}
	return out
}

// readImage returns nil when no file was chosen.
func readImage(c *gin.Context) (*usecase.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	// 上限を1バイト超えて読み、サイズ超過をユースケースで検出させる
	data, err := io.ReadAll(io.LimitReader(f, usecase.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &usecase.ImageUpload{Filename: fh.Filename, Data: data}, nil
}

func (h *EntriesHandler) renderForm(c *gin.Context, status int, title, action string, form dto.EntryForm, imageURL string, errs validation.Errors) {
	web.Render(c, status, "entry_form.html", gin.H{
		"Title":    title,
		"Action":   action,
		"Form":     form,
		"Types":    entity.Types,
		"ImageURL": imageURL,
		"Errors":   errs,
	})
}

// handleError maps missing and foreign entries to a redirect with a notice.
func (h *EntriesHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrEntryNotFound):
		web.Redirect(c, myEntriesPath, web.LevelError, "Entry not found.")
	case errors.Is(err, usecase.ErrForbidden):
		web.Redirect(c, myEntriesPath, web.LevelError, "You do not have permission to modify this entry.")
	default:
		web.RenderError(c, http.StatusInternalServerError, err)
	}
}

func entryID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		web.Redirect(c, myEntriesPath, web.LevelError, "Entry not found.")
		return 0, false
	}
	return uint(id), true
}

func editPath(id uint) string {
	return "/entries/" + strconv.FormatUint(uint64(id), 10) + "/edit"
}
