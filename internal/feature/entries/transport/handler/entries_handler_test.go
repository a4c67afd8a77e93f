package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collectionentity "journal_backend/internal/feature/collections/domain/entity"
	"journal_backend/internal/feature/entries/domain/entity"
	"journal_backend/internal/feature/entries/usecase"
	jwtmw "journal_backend/internal/platform/jwt"
	"journal_backend/internal/platform/web"
	"journal_backend/internal/shared/validation"
)

// mockEntriesUsecase is a mock implementation of EntriesUsecase.
type mockEntriesUsecase struct {
	CreateFunc         func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error)
	GetFunc            func(ownerID, id uint) (*entity.Entry, error)
	UpdateFunc         func(ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error)
	DeleteFunc         func(ownerID, id uint) error
	ListOwnFunc        func(ownerID uint, f entity.Filter) ([]entity.Entry, error)
	ListPublicFunc     func() ([]entity.Entry, error)
	SetCollectionsFunc func(ownerID, entryID uint, ids []uint) error
}

func (m *mockEntriesUsecase) Create(ctx context.Context, ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ownerID, in)
	}
	return &entity.Entry{ID: 1, UserID: ownerID}, nil
}

func (m *mockEntriesUsecase) Get(ctx context.Context, ownerID, id uint) (*entity.Entry, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ownerID, id)
	}
	return &entity.Entry{ID: id, UserID: ownerID, Detail: "stored", Date: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), Type: entity.TypePrivate}, nil
}

func (m *mockEntriesUsecase) Update(ctx context.Context, ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ownerID, id, in)
	}
	return &entity.Entry{ID: id, UserID: ownerID}, nil
}

func (m *mockEntriesUsecase) Delete(ctx context.Context, ownerID, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ownerID, id)
	}
	return nil
}

func (m *mockEntriesUsecase) ListOwn(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error) {
	if m.ListOwnFunc != nil {
		return m.ListOwnFunc(ownerID, f)
	}
	return []entity.Entry{}, nil
}

func (m *mockEntriesUsecase) ListPublic(ctx context.Context) ([]entity.Entry, error) {
	if m.ListPublicFunc != nil {
		return m.ListPublicFunc()
	}
	return []entity.Entry{}, nil
}

func (m *mockEntriesUsecase) CollectionChoices(ctx context.Context, owner *uint) ([]collectionentity.Collection, error) {
	if owner == nil {
		return []collectionentity.Collection{}, nil
	}
	return []collectionentity.Collection{{ID: 4, Name: "Trips", UserID: *owner}}, nil
}

func (m *mockEntriesUsecase) SetCollections(ctx context.Context, ownerID, entryID uint, ids []uint) error {
	if m.SetCollectionsFunc != nil {
		return m.SetCollectionsFunc(ownerID, entryID, ids)
	}
	return nil
}

func (m *mockEntriesUsecase) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return "/media/" + key
}

const testOwner = uint(7)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func setupRouter(t *testing.T, uc EntriesUsecase) *gin.Engine {
	t.Helper()

	r := gin.New()
	require.NoError(t, web.Install(r))
	h := NewEntriesHandler(uc, time.UTC)

	r.GET("/home", h.Home)
	authed := r.Group("/", func(c *gin.Context) {
		c.Set(jwtmw.ContextUserID, testOwner)
		c.Set(jwtmw.ContextUsername, "alice")
		c.Next()
	})
	authed.GET("/my-entries", h.MyEntries)
	authed.GET("/entries/new", h.ShowCreate)
	authed.POST("/entries/new", h.Create)
	authed.GET("/entries/:id/edit", h.ShowEdit)
	authed.POST("/entries/:id/edit", h.Edit)
	authed.GET("/entries/:id/delete", h.ConfirmDelete)
	authed.POST("/entries/:id/delete", h.Delete)
	authed.GET("/entries/:id/collections", h.ShowCollections)
	authed.POST("/entries/:id/collections", h.SetCollections)
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// flashes decodes the flash cookie set on the response.
func flashes(t *testing.T, w *httptest.ResponseRecorder) []web.Flash {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name != web.FlashCookie || c.Value == "" {
			continue
		}
		b, err := base64.RawURLEncoding.DecodeString(c.Value)
		require.NoError(t, err)
		var out []web.Flash
		require.NoError(t, json.Unmarshal(b, &out))
		return out
	}
	return nil
}

func validForm() url.Values {
	return url.Values{"detail": {"A walk by the lake"}, "date": {"2024-01-02T10:00"}, "type": {"public"}}
}

func TestEntriesHandler_Home(t *testing.T) {
	uc := &mockEntriesUsecase{
		ListPublicFunc: func() ([]entity.Entry, error) {
			return []entity.Entry{{ID: 1, Detail: "Sunny <b>day</b>", Author: "bob", Type: entity.TypePublic, ImageKey: "images/x.png"}}, nil
		},
	}
	w := get(setupRouter(t, uc), "/home")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "bob")
	assert.Contains(t, body, "Sunny &lt;b&gt;day&lt;/b&gt;")
	assert.Contains(t, body, `src="/media/images/x.png"`)
	assert.Contains(t, body, "Log in", "anonymous navigation")
}

func TestEntriesHandler_Home_Error(t *testing.T) {
	uc := &mockEntriesUsecase{ListPublicFunc: func() ([]entity.Entry, error) { return nil, errors.New("db down") }}
	w := get(setupRouter(t, uc), "/home")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestEntriesHandler_MyEntries_Filter(t *testing.T) {
	var got entity.Filter
	var gotOwner uint
	uc := &mockEntriesUsecase{
		ListOwnFunc: func(ownerID uint, f entity.Filter) ([]entity.Entry, error) {
			gotOwner, got = ownerID, f
			return []entity.Entry{{ID: 9, Detail: "lake swim", Type: entity.TypePrivate}}, nil
		},
	}
	w := get(setupRouter(t, uc), "/my-entries?collection=4&type=private&q=lake+swim")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testOwner, gotOwner)
	require.NotNil(t, got.CollectionID)
	assert.Equal(t, uint(4), *got.CollectionID)
	assert.Equal(t, entity.TypePrivate, got.Type)
	assert.Equal(t, "lake swim", got.Query)
	body := w.Body.String()
	assert.Contains(t, body, "/entries/9/edit")
	assert.Contains(t, body, `<option value="4" selected>Trips</option>`)
}

func TestEntriesHandler_Create(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		createFunc   func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error)
		wantStatus   int
		wantLocation string
		wantBody     []string
		notInBody    []string
	}{
		{
			name:         "success",
			form:         validForm(),
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/my-entries",
		},
		{
			name: "failure: every field error is reported",
			form: url.Values{"detail": {""}, "date": {"2999-01-01T10:00"}, "type": {"hidden"}},
			createFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
				return nil, validation.Errors{
					{Field: "detail", Message: "This field is required.", Err: validation.ErrInvalidFormat},
					{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate},
					{Field: "type", Message: "Select a valid choice.", Err: validation.ErrInvalidFormat},
				}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"This field is required.", "The date cannot be in the future.", "Select a valid choice."},
		},
		{
			name: "failure: unparsable date",
			form: url.Values{"detail": {""}, "date": {"yesterday"}, "type": {"public"}},
			createFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
				return nil, validation.Errors{
					{Field: "detail", Message: "This field is required.", Err: validation.ErrInvalidFormat},
					{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate},
				}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"Enter a valid date/time.", `value="yesterday"`, "This field is required."},
			notInBody:  []string{"The date cannot be in the future."},
		},
		{
			name: "failure: usecase validation keeps submitted values",
			form: validForm(),
			createFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
				return nil, validation.Errors{{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate}}
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"The date cannot be in the future.", "A walk by the lake"},
		},
		{
			name: "failure: infrastructure error",
			form: validForm(),
			createFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
				return nil, errors.New("db down")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got usecase.EntryInput
			called := false
			uc := &mockEntriesUsecase{
				CreateFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
					got, called = in, true
					if tt.createFunc != nil {
						return tt.createFunc(ownerID, in)
					}
					return &entity.Entry{ID: 1}, nil
				},
			}
			w := postForm(setupRouter(t, uc), "/entries/new", tt.form)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
				require.Len(t, flashes(t, w), 1)
				assert.Equal(t, "Entry created successfully.", flashes(t, w)[0].Message)
				assert.Equal(t, "A walk by the lake", got.Detail)
				assert.Equal(t, entity.TypePublic, got.Type)
				require.NotNil(t, got.Date)
				assert.True(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).Equal(*got.Date))
				assert.Nil(t, got.Image)
			}
			assert.True(t, called, "the usecase sees every submission")
			for _, s := range tt.wantBody {
				assert.Contains(t, w.Body.String(), s)
			}
			for _, s := range tt.notInBody {
				assert.NotContains(t, w.Body.String(), s)
			}
		})
	}
}

func TestEntriesHandler_Create_PassesRawFields(t *testing.T) {
	var got usecase.EntryInput
	uc := &mockEntriesUsecase{
		CreateFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
			got = in
			return nil, validation.Errors{{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate}}
		},
	}
	form := url.Values{"detail": {""}, "date": {"2999-01-01T10:00"}, "type": {"hidden"}}
	w := postForm(setupRouter(t, uc), "/entries/new", form)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "", got.Detail)
	assert.Equal(t, entity.EntryType("hidden"), got.Type)
	require.NotNil(t, got.Date)
	assert.Equal(t, 2999, got.Date.Year())
}

func TestEntriesHandler_Create_BlankDate(t *testing.T) {
	uc := &mockEntriesUsecase{
		CreateFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
			assert.Nil(t, in.Date)
			return nil, validation.Errors{{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate}}
		},
	}
	form := url.Values{"detail": {"x"}, "date": {""}, "type": {"public"}}
	w := postForm(setupRouter(t, uc), "/entries/new", form)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.NotContains(t, w.Body.String(), "The date cannot be in the future.")
}

func TestEntriesHandler_Create_Multipart(t *testing.T) {
	var got usecase.EntryInput
	uc := &mockEntriesUsecase{
		CreateFunc: func(ownerID uint, in usecase.EntryInput) (*entity.Entry, error) {
			got = in
			return &entity.Entry{ID: 1}, nil
		},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range validForm() {
		require.NoError(t, mw.WriteField(k, v[0]))
	}
	fw, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/entries/new", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	setupRouter(t, uc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.NotNil(t, got.Image)
	assert.Equal(t, "photo.png", got.Image.Filename)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nrest"), got.Image.Data)
}

func TestEntriesHandler_Edit(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		getFunc     func(ownerID, id uint) (*entity.Entry, error)
		updateFunc  func(ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error)
		form        url.Values
		wantStatus  int
		wantMessage string
		wantBody    []string
	}{
		{name: "success", path: "/entries/3/edit", form: validForm(), wantStatus: http.StatusSeeOther, wantMessage: "Entry updated successfully."},
		{
			name:        "failure: foreign entry is rejected before validation",
			path:        "/entries/3/edit",
			getFunc:     func(ownerID, id uint) (*entity.Entry, error) { return nil, usecase.ErrForbidden },
			form:        url.Values{},
			wantStatus:  http.StatusSeeOther,
			wantMessage: "You do not have permission to modify this entry.",
		},
		{
			name:        "failure: not found",
			path:        "/entries/3/edit",
			getFunc:     func(ownerID, id uint) (*entity.Entry, error) { return nil, usecase.ErrEntryNotFound },
			form:        validForm(),
			wantStatus:  http.StatusSeeOther,
			wantMessage: "Entry not found.",
		},
		{name: "failure: malformed id", path: "/entries/abc/edit", form: validForm(), wantStatus: http.StatusSeeOther, wantMessage: "Entry not found."},
		{
			name: "failure: invalid form",
			path: "/entries/3/edit",
			updateFunc: func(ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error) {
				return nil, validation.Errors{
					{Field: "detail", Message: "This field is required.", Err: validation.ErrInvalidFormat},
					{Field: "date", Message: "The date cannot be in the future.", Err: validation.ErrFutureDate},
				}
			},
			form:       url.Values{"date": {"2999-01-01T10:00"}, "type": {"public"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"This field is required.", "The date cannot be in the future."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := false
			uc := &mockEntriesUsecase{
				GetFunc: tt.getFunc,
				UpdateFunc: func(ownerID, id uint, in usecase.EntryInput) (*entity.Entry, error) {
					assert.Equal(t, testOwner, ownerID)
					assert.Equal(t, uint(3), id)
					if tt.updateFunc != nil {
						return tt.updateFunc(ownerID, id, in)
					}
					updated = true
					return &entity.Entry{ID: id}, nil
				},
			}
			w := postForm(setupRouter(t, uc), tt.path, tt.form)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusSeeOther {
				assert.Equal(t, "/my-entries", w.Header().Get("Location"))
				fl := flashes(t, w)
				require.Len(t, fl, 1)
				assert.Equal(t, tt.wantMessage, fl[0].Message)
			}
			assert.Equal(t, tt.wantMessage == "Entry updated successfully.", updated)
			for _, s := range tt.wantBody {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}
}

func TestEntriesHandler_ShowEdit_Prefills(t *testing.T) {
	w := get(setupRouter(t, &mockEntriesUsecase{}), "/entries/3/edit")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "stored")
	assert.Contains(t, body, `value="2024-01-02T03:04"`)
	assert.Contains(t, body, `action="/entries/3/edit"`)
}

func TestEntriesHandler_Delete(t *testing.T) {
	var deleted []uint
	uc := &mockEntriesUsecase{
		DeleteFunc: func(ownerID, id uint) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	r := setupRouter(t, uc)

	w := get(r, "/entries/5/delete")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, deleted, "GET never deletes")
	require.Len(t, flashes(t, w), 1)
	assert.Equal(t, web.LevelWarning, flashes(t, w)[0].Level)

	w = postForm(r, "/entries/5/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []uint{5}, deleted)
	assert.Equal(t, "Entry deleted.", flashes(t, w)[0].Message)
}

func TestEntriesHandler_SetCollections(t *testing.T) {
	var gotIDs []uint
	uc := &mockEntriesUsecase{
		SetCollectionsFunc: func(ownerID, entryID uint, ids []uint) error {
			gotIDs = ids
			return nil
		},
	}
	r := setupRouter(t, uc)

	w := get(r, "/entries/2/collections")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="4"`)

	w = postForm(r, "/entries/2/collections", url.Values{"collections": {"4", "bogus", "9"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []uint{4, 9}, gotIDs)
}
