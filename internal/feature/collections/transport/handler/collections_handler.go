// Package handler はcollectionsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/collections/transport/http/dto"
	"journal_backend/internal/feature/collections/usecase"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/web"
	"journal_backend/internal/shared/validation"
)

const collectionsPath = "/collections"

// CollectionsUsecase はコレクション操作のユースケースを定義します。
type CollectionsUsecase interface {
	List(ctx context.Context, ownerID uint) ([]entity.Collection, error)
	Get(ctx context.Context, ownerID, id uint) (*entity.Collection, error)
	Create(ctx context.Context, ownerID uint, in usecase.CollectionInput) (*entity.Collection, error)
	Update(ctx context.Context, ownerID, id uint, in usecase.CollectionInput) (*entity.Collection, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

// CollectionsHandler はコレクションのページとフォームを処理します。
type CollectionsHandler struct {
	collections CollectionsUsecase
}

// NewCollectionsHandler はCollectionsHandlerを生成します。
func NewCollectionsHandler(collections CollectionsUsecase) *CollectionsHandler {
	return &CollectionsHandler{collections: collections}
}

// List はログインユーザーのコレクションを名前順で表示します。
func (h *CollectionsHandler) List(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	list, err := h.collections.List(c.Request.Context(), ownerID)
	if err != nil {
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Render(c, http.StatusOK, "collections.html", gin.H{
		"Title":       "Collections",
		"Collections": list,
	})
}

// ShowCreate は空のコレクションフォームを表示します。
func (h *CollectionsHandler) ShowCreate(c *gin.Context) {
	renderForm(c, http.StatusOK, "New collection", "/collections/new", dto.CollectionForm{}, nil)
}

// Create はコレクションフォームを処理します。
func (h *CollectionsHandler) Create(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	var form dto.CollectionForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Warn("collection form unreadable", "error", err, "remote_addr", c.ClientIP())
		renderForm(c, http.StatusUnprocessableEntity, "New collection", "/collections/new", form, web.BindingErrors(err))
		return
	}

	_, err := h.collections.Create(c.Request.Context(), ownerID, usecase.CollectionInput{Name: form.Name, Detail: form.Detail})
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			renderForm(c, http.StatusUnprocessableEntity, "New collection", "/collections/new", form, errs)
			return
		}
		web.RenderError(c, http.StatusInternalServerError, err)
		return
	}
	web.Redirect(c, collectionsPath, web.LevelSuccess, "Collection created successfully.")
}

// ShowEdit は所有者にのみ編集フォームを表示します。
func (h *CollectionsHandler) ShowEdit(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := collectionID(c)
	if !ok {
		return
	}
	col, err := h.collections.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		handleError(c, err)
		return
	}
	renderForm(c, http.StatusOK, "Edit collection", editPath(id), dto.CollectionForm{Name: col.Name, Detail: col.Detail}, nil)
}

// Edit は編集フォームを処理します。
func (h *CollectionsHandler) Edit(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := collectionID(c)
	if !ok {
		return
	}
	var form dto.CollectionForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Warn("collection form unreadable", "error", err, "remote_addr", c.ClientIP())
		renderForm(c, http.StatusUnprocessableEntity, "Edit collection", editPath(id), form, web.BindingErrors(err))
		return
	}

	_, err := h.collections.Update(c.Request.Context(), ownerID, id, usecase.CollectionInput{Name: form.Name, Detail: form.Detail})
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			renderForm(c, http.StatusUnprocessableEntity, "Edit collection", editPath(id), form, errs)
			return
		}
		handleError(c, err)
		return
	}
	web.Redirect(c, collectionsPath, web.LevelSuccess, "Collection updated successfully.")
}

// Delete はコレクションを削除します。所属していたエントリーは残ります。
func (h *CollectionsHandler) Delete(c *gin.Context) {
	ownerID, _ := jwtmw.UserID(c)
	id, ok := collectionID(c)
	if !ok {
		return
	}
	if err := h.collections.Delete(c.Request.Context(), ownerID, id); err != nil {
		handleError(c, err)
		return
	}
	web.Redirect(c, collectionsPath, web.LevelSuccess, "Collection deleted.")
}

// ConfirmDelete はGETによる削除要求を削除せずに差し戻します。
func (h *CollectionsHandler) ConfirmDelete(c *gin.Context) {
	web.Redirect(c, collectionsPath, web.LevelWarning, "Deletion not confirmed.")
}

func renderForm(c *gin.Context, status int, title, action string, form dto.CollectionForm, errs validation.Errors) {
	web.Render(c, status, "collection_form.html", gin.H{
		"Title":  title,
		"Action": action,
		"Form":   form,
		"Errors": errs,
	})
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrCollectionNotFound):
		web.Redirect(c, collectionsPath, web.LevelError, "Collection not found.")
	case errors.Is(err, usecase.ErrForbidden):
		web.Redirect(c, collectionsPath, web.LevelError, "You do not have permission to modify this collection.")
	default:
		web.RenderError(c, http.StatusInternalServerError, err)
	}
}

func collectionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		web.Redirect(c, collectionsPath, web.LevelError, "Collection not found.")
		return 0, false
	}
	return uint(id), true
}

func editPath(id uint) string {
	return "/collections/" + strconv.FormatUint(uint64(id), 10) + "/edit"
}
