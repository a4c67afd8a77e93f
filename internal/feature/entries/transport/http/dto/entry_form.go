// Package dto はentriesフィーチャーのフォーム入力を定義します。
package dto

import (
	"strconv"
	"strings"
	"time"

	"journal_backend/internal/feature/entries/domain/entity"
)

// DateInputLayout is the value format of an HTML datetime-local input.
const DateInputLayout = "2006-01-02T15:04"

var dateLayouts = []string{DateInputLayout, "2006-01-02T15:04:05", "2006-01-02"}

// EntryForm はエントリー作成・編集フォームです。画像はmultipartのimageフィールドで受け取ります。
// 入力値の検証はユースケースがまとめて行います。
type EntryForm struct {
	Detail string `form:"detail"`
	Date   string `form:"date"`
	Type   string `form:"type"`
}

// ParseDate interprets Date in loc. ok is false when the value matches no
// accepted layout.
func (f EntryForm) ParseDate(loc *time.Location) (t time.Time, ok bool) {
	s := strings.TrimSpace(f.Date)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EntryFormFrom prefills the form with a stored entry.
func EntryFormFrom(e *entity.Entry) EntryForm {
	return EntryForm{
		Detail: e.Detail,
		Date:   e.Date.Format(DateInputLayout),
		Type:   string(e.Type),
	}
}

// FilterQuery は/my-entriesのクエリパラメータです。
type FilterQuery struct {
	Collection string `form:"collection"`
	Type       string `form:"type"`
	Q          string `form:"q"`
}

// Filter converts the query into a domain filter. Unknown collection ids and
// types are ignored rather than rejected.
func (q FilterQuery) Filter() entity.Filter {
	var f entity.Filter
	if id, err := strconv.ParseUint(q.Collection, 10, 64); err == nil && id > 0 {
		cid := uint(id)
		f.CollectionID = &cid
	}
	if t := entity.EntryType(q.Type); t.Valid() {
		f.Type = t
	}
	f.Query = q.Q
	return f
}

// FilterView echoes the active filter back to the listing page.
type FilterView struct {
	Collection uint
	Type       string
	Q          string
}

// View returns the normalized filter for rendering.
func (q FilterQuery) View() FilterView {
	f := q.Filter()
	v := FilterView{Type: string(f.Type), Q: f.Query}
	if f.CollectionID != nil {
		v.Collection = *f.CollectionID
	}
	return v
}

// ParseIDs converts submitted checkbox values, skipping anything that is not
// a positive integer.
func ParseIDs(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
