// Package models はストアとサービスで共有するドキュメント型を定義します。
package models

import (
	"strings"
	"time"
)

// User は登録済みユーザーです。Username は大文字小文字を区別する一意キーです。
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImageStatus は image_url の検査結果です。
type ImageStatus string

const (
	ImageStatusNone        ImageStatus = ""
	ImageStatusPending     ImageStatus = "pending"
	ImageStatusOK          ImageStatus = "ok"
	ImageStatusNotImage    ImageStatus = "not_image"
	ImageStatusUnreachable ImageStatus = "unreachable"
)

// Book は書籍ドキュメントです。Uploader は作成時にのみ設定されます。
type Book struct {
	ID          string      `json:"_id"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Genre       string      `json:"genre"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	Uploader    string      `json:"uploader"`
	ImageStatus ImageStatus `json:"image_status,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BookPatch は更新可能なフィールドの部分更新です。nil のフィールドは変更しません。
// uploader と id は含みません。
type BookPatch struct {
	Title       *string
	Author      *string
	Genre       *string
	Description *string
	ImageURL    *string
	ImageStatus *ImageStatus
}

// Apply は patch を b に適用し、updatedAt を設定します。
func (p BookPatch) Apply(b *Book, updatedAt time.Time) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.ImageURL != nil {
		b.ImageURL = *p.ImageURL
	}
	if p.ImageStatus != nil {
		b.ImageStatus = *p.ImageStatus
	}
	b.UpdatedAt = updatedAt
}

// BookFilter は一覧取得の絞り込み条件です。空のフィールドは無視されます。
type BookFilter struct {
	Genre    string // 大文字小文字を区別しない完全一致
	Uploader string // 完全一致
	Query    string // title または author の部分一致（大文字小文字を区別しない）
}

// Match は b が条件を満たすかどうかを返します。
func (f BookFilter) Match(b *Book) bool {
	if f.Genre != "" && !strings.EqualFold(f.Genre, b.Genre) {
		return false
	}
	if f.Uploader != "" && f.Uploader != b.Uploader {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(b.Title), q) && !strings.Contains(strings.ToLower(b.Author), q) {
			return false
		}
	}
	return true
}
