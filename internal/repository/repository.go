package repository

import (
	"context"
	"strings"

	"github.com/utafrali/review-service/internal/domain"
)

// ReviewRepository defines the persistence operations for reviews.
type ReviewRepository interface {
	// Create stores a new review. PublishedAt defaults to the current time.
	Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error)

	// FindByBookID returns a window of a book's reviews, newest publishedAt
	// first. Ties are broken newest insert first.
	FindByBookID(ctx context.Context, bookID string, from, size int) ([]domain.Review, error)

	// CountByBookID returns how many reviews a book has.
	CountByBookID(ctx context.Context, bookID string) (int64, error)

	// CountsByBookIDs returns a count for every requested id, zero when the
	// book has no reviews, computed in a single round trip.
	CountsByBookIDs(ctx context.Context, bookIDs []string) (map[string]int64, error)

	// FindByID returns one review. A malformed id is a store error, an
	// unknown one is not found.
	FindByID(ctx context.Context, id string) (*domain.Review, error)

	// DeleteAll removes every review. Tests and tooling only.
	DeleteAll(ctx context.Context) error
}

// NormalizeIDs trims ids and removes duplicates, keeping first-seen order.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ZeroCounts returns a map with every id set to 0.
func ZeroCounts(ids []string) map[string]int64 {
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}
	return counts
}
