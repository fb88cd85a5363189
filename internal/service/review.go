package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// EventPublisher publishes review domain events.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo      repository.ReviewRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, publisher EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Create persists a validated review and announces it. A failed publish is
// logged and does not fail the call.
func (s *ReviewService) Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error) {
	review, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Float64("rating", review.Rating),
	)

	if err := s.publisher.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}

// FindByBookID returns one page of a book's reviews and the book's total.
// The page and the total are fetched concurrently.
func (s *ReviewService) FindByBookID(ctx context.Context, bookID string, from, size int) (*domain.ReviewPage, error) {
	var (
		reviews []domain.Review
		total   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviews, err = s.repo.FindByBookID(gctx, bookID, from, size)
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountByBookID(gctx, bookID)
		if err != nil {
			return fmt.Errorf("count reviews: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &domain.ReviewPage{Reviews: reviews, Total: total}, nil
}

// GetCountsByBookIDs returns review counts for each requested book.
func (s *ReviewService) GetCountsByBookIDs(ctx context.Context, bookIDs []string) (map[string]int64, error) {
	if len(bookIDs) == 0 {
		return nil, apperrors.Validation("bookIds array must not be empty")
	}

	counts, err := s.repo.CountsByBookIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("count reviews by book: %w", err)
	}
	return counts, nil
}

// GetByID returns a single review.
func (s *ReviewService) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}
