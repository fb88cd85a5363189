package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/service"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/httputil"
)

// BookVerifier confirms that a referenced book exists in the catalog.
type BookVerifier interface {
	VerifyBookExists(ctx context.Context, bookID string) error
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service  *service.ReviewService
	verifier BookVerifier
	logger   *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, verifier BookVerifier, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:  svc,
		verifier: verifier,
		logger:   logger,
	}
}

// CreateReview handles POST /api/review
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	raw, err := httputil.DecodeObject(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input, err := domain.ParseCreateReview(raw)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.verifier.VerifyBookExists(r.Context(), input.BookID); err != nil {
		var appErr *apperrors.AppError
		if errors.Is(err, apperrors.ErrNotFound) && errors.As(err, &appErr) {
			httputil.WriteFailure(w, http.StatusNotFound, appErr.Message)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.Create(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, review, "Review created successfully")
}

// ListReviews handles GET /api/review?bookId=&from=&size=
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	query, err := domain.ParseReviewQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.FindByBookID(r.Context(), query.BookID, query.From, query.Size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteList(w, page.Reviews, page.Total,
		fmt.Sprintf("Retrieved %d reviews out of %d total", len(page.Reviews), page.Total))
}

// CountReviews handles POST /api/review/_counts
func (h *ReviewHandler) CountReviews(w http.ResponseWriter, r *http.Request) {
	raw, err := httputil.DecodeObject(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	bookIDs, err := domain.ParseCountsRequest(raw)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	counts, err := h.service.GetCountsByBookIDs(r.Context(), bookIDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, counts, "Review counts retrieved successfully")
}

// GetReview handles GET /api/review/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, review, "")
}
