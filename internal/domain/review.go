package domain

import "time"

// Field limits, counted in characters after trimming.
const (
	MaxTitleLength   = 200
	MaxContentLength = 5000
	MaxAuthorLength  = 200

	MinRating = 1
	MaxRating = 5
)

// Pagination bounds for review listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Review is a single rated, textual evaluation of a book.
type Review struct {
	ID          string    `json:"_id"`
	BookID      string    `json:"bookId"`
	Rating      float64   `json:"rating"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateReviewInput is the validated, trimmed payload for a new review.
// A nil PublishedAt means "now" at persistence time.
type CreateReviewInput struct {
	BookID      string
	Rating      float64
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// ReviewQuery selects a page of reviews for one book.
type ReviewQuery struct {
	BookID string
	From   int
	Size   int
}

// ReviewPage is one page of reviews plus the total for the whole book.
type ReviewPage struct {
	Reviews []Review
	Total   int64
}
