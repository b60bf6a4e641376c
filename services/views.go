package services

import (
	"time"

	"github.com/quietcircle/community/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PostDetail is returned after a post is created or fetched by id.
type PostDetail struct {
	ID           uint      `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	AuthorName   string    `json:"author_name"`
	Tags         []string  `json:"tags"`
	SupportCount int64     `json:"support_count"`
}

// PostSummary is the feed representation of a post.
type PostSummary = PostDetail

// CommentView is the public representation of a comment.
type CommentView struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	AuthorName string    `json:"author_name"`
}

// MeInfo describes the authenticated account. Persona fields are nil until the persona exists.
type MeInfo struct {
	Username    string  `json:"username"`
	Role        string  `json:"role"`
	PersonaID   *uint   `json:"persona_id"`
	PersonaName *string `json:"persona_name"`
}

// Pagination mirrors the envelope used by list endpoints.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Page is an ordered, page-sized slice of results.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NormalizePage clamps page to >= 1 and falls back to the default size outside 1..100.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

func newPage[T any](items []T, page, size int, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: int((total + int64(size) - 1) / int64(size)),
		},
	}
}

func commentView(c models.Comment) CommentView {
	return CommentView{
		ID:         c.ID,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		AuthorName: c.Persona.DisplayName,
	}
}
