// Package model はドメインモデルを定義する。
package model

// University は大学の一覧・詳細情報を表す。
// バックエンドのレスポンスをそのまま保持し、クライアント側では変換しない。
type University struct {
	ID              int       `json:"id"`
	NameJP          string    `json:"name_jp"`
	NameEN          string    `json:"name_en"`
	City            string    `json:"city"`
	IsSeoul         bool      `json:"is_seoul"`
	OwnershipType   string    `json:"ownership_type"`
	QSRank          int       `json:"qs_rank"`
	Description     string    `json:"description"`
	WebsiteURL      string    `json:"website_url"`
	FavouritesCount int       `json:"favourites_count"`
	FavouritedByMe  bool      `json:"favourited_by_me"`
	Neighbor        *Neighbor `json:"neighbor,omitempty"`
	Faculties       []Faculty `json:"faculties,omitempty"`
}

// Neighbor はランキング上で近い順位の大学を表す。
// 一覧・詳細の補足表示に使用され、存在しない場合もある。
type Neighbor struct {
	ID     int    `json:"id"`
	NameJP string `json:"name_jp"`
	NameEN string `json:"name_en"`
	Rank   int    `json:"rank"`
}

// Faculty は学部情報を表す。
type Faculty struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameJP string `json:"name_jp"`
	Fees   []Fee  `json:"fees,omitempty"`
}

// Fee は学部ごとの学費項目を表す。金額はウォン建て。
type Fee struct {
	ID       int    `json:"id"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	NotesJP  string `json:"notes_jp,omitempty"`
}

// Announcement は運営からのお知らせを表す。
type Announcement struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	LinkURL   string `json:"link_url,omitempty"`
	CreatedAt string `json:"created_at"`
}
