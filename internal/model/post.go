// Package model はドメインモデルを定義する。
package model

// Post はコミュニティ投稿を表す。
// 一覧ではコメントは含まれず、詳細取得時のみComments が設定される。
type Post struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Author        *User     `json:"author,omitempty"`
	Tags          []Tag     `json:"tags,omitempty"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	Counter       *Counter  `json:"counter,omitempty"`
	Comments      []Comment `json:"comments,omitempty"`
	CreatedAt     string    `json:"created_at"`
}

// Counter は投稿の閲覧数などの集計値を表す。
type Counter struct {
	ViewCount int `json:"view_count"`
}

// Comment は投稿へのコメントを表す。
// Comments は返信のリストで、ツリーの深さは2で固定される
// （返信の下にさらに返信はぶら下がらない）。
type Comment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Author    *User     `json:"author,omitempty"`
	CommentID *int      `json:"comment_id,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// Tag はコミュニティ投稿の分類タグを表す。
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreatePostInput は投稿作成リクエストのボディを表す。
type CreatePostInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// CreateCommentInput はコメント作成リクエストのボディを表す。
// CommentID が設定されている場合は該当コメントへの返信として扱われる。
type CreateCommentInput struct {
	Content   string `json:"content"`
	CommentID *int   `json:"comment_id,omitempty"`
}
