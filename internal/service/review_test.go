package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/review-service/internal/domain"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, input *domain.CreateReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) FindByBookID(ctx context.Context, bookID string, from, size int) ([]domain.Review, error) {
	args := m.Called(ctx, bookID, from, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) CountByBookID(ctx context.Context, bookID string) (int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReviewRepository) CountsByBookIDs(ctx context.Context, bookIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, bookIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockReviewRepository) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestReviewService(repo *mockReviewRepository, pub *mockPublisher) *ReviewService {
	return NewReviewService(repo, pub, newTestLogger())
}

func sampleInput() *domain.CreateReviewInput {
	return &domain.CreateReviewInput{
		BookID:  "book-1",
		Rating:  4,
		Title:   "Solid",
		Content: "A solid read.",
		Author:  "Ada",
	}
}

func sampleReview() *domain.Review {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID:          "65f0c0ffee0000000000abcd",
		BookID:      "book-1",
		Rating:      4,
		Title:       "Solid",
		Content:     "A solid read.",
		Author:      "Ada",
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)
	ctx := context.Background()

	input := sampleInput()
	stored := sampleReview()
	repo.On("Create", ctx, input).Return(stored, nil)
	pub.On("PublishReviewCreated", ctx, stored).Return(nil)

	review, err := svc.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, stored, review)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	repo := new(mockReviewRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)
	ctx := context.Background()

	stored := sampleReview()
	repo.On("Create", ctx, mock.Anything).Return(stored, nil)
	pub.On("PublishReviewCreated", ctx, stored).Return(errors.New("broker down"))

	review, err := svc.Create(ctx, sampleInput())

	require.NoError(t, err)
	assert.Equal(t, stored.ID, review.ID)
}

func TestCreate_RepositoryError(t *testing.T) {
	repo := new(mockReviewRepository)
	pub := new(mockPublisher)
	svc := newTestReviewService(repo, pub)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(nil, apperrors.Store("Review validation failed", nil))

	review, err := svc.Create(ctx, sampleInput())

	assert.Nil(t, review)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStore)
	pub.AssertNotCalled(t, "PublishReviewCreated", mock.Anything, mock.Anything)
}

func TestFindByBookID_Success(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))

	reviews := []domain.Review{*sampleReview()}
	repo.On("FindByBookID", mock.Anything, "book-1", 0, 10).Return(reviews, nil)
	repo.On("CountByBookID", mock.Anything, "book-1").Return(int64(25), nil)

	page, err := svc.FindByBookID(context.Background(), "book-1", 0, 10)

	require.NoError(t, err)
	assert.Equal(t, reviews, page.Reviews)
	assert.Equal(t, int64(25), page.Total)
	repo.AssertExpectations(t)
}

func TestFindByBookID_EmptyPageIsNotNil(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))

	repo.On("FindByBookID", mock.Anything, "book-1", 40, 10).Return(nil, nil)
	repo.On("CountByBookID", mock.Anything, "book-1").Return(int64(3), nil)

	page, err := svc.FindByBookID(context.Background(), "book-1", 40, 10)

	require.NoError(t, err)
	assert.NotNil(t, page.Reviews)
	assert.Empty(t, page.Reviews)
	assert.Equal(t, int64(3), page.Total)
}

func TestFindByBookID_CountFailureCancelsFind(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))

	canceled := make(chan struct{})
	repo.On("FindByBookID", mock.Anything, "book-1", 0, 10).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			select {
			case <-ctx.Done():
				close(canceled)
			case <-time.After(2 * time.Second):
			}
		}).
		Return(nil, context.Canceled)
	repo.On("CountByBookID", mock.Anything, "book-1").Return(int64(0), errors.New("connection reset"))

	page, err := svc.FindByBookID(context.Background(), "book-1", 0, 10)

	assert.Nil(t, page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	select {
	case <-canceled:
	default:
		t.Fatal("page query was not canceled")
	}
}

func TestGetCountsByBookIDs_Empty(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))

	counts, err := svc.GetCountsByBookIDs(context.Background(), []string{})

	assert.Nil(t, counts)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "bookIds array must not be empty", appErr.Message)
	repo.AssertNotCalled(t, "CountsByBookIDs", mock.Anything, mock.Anything)
}

func TestGetCountsByBookIDs_Delegates(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))
	ctx := context.Background()

	ids := []string{"a", "b"}
	repo.On("CountsByBookIDs", ctx, ids).Return(map[string]int64{"a": 2, "b": 0}, nil)

	counts, err := svc.GetCountsByBookIDs(ctx, ids)

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 0}, counts)
}

func TestGetCountsByBookIDs_AggregationError(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))
	ctx := context.Background()

	repo.On("CountsByBookIDs", ctx, []string{"a"}).Return(nil, apperrors.Aggregation(errors.New("boom")))

	_, err := svc.GetCountsByBookIDs(ctx, []string{"a"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAggregation)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

func TestGetByID(t *testing.T) {
	repo := new(mockReviewRepository)
	svc := newTestReviewService(repo, new(mockPublisher))
	ctx := context.Background()

	stored := sampleReview()
	repo.On("FindByID", ctx, stored.ID).Return(stored, nil)
	repo.On("FindByID", ctx, "missing").Return(nil, apperrors.NotFound("Review with id missing not found"))

	review, err := svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, review)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
