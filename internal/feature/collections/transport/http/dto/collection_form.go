// Package dto はcollectionsフィーチャーのフォーム入力を定義します。
package dto

// CollectionForm はコレクション作成・編集フォームです。
// 長さと重複の検証はユースケースで行い、全項目のエラーをまとめて返します。
type CollectionForm struct {
	Name   string `form:"name"`
	Detail string `form:"detail"`
}
