package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
	"github.com/utafrali/review-service/pkg/logger"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated = "bookstore.review.created"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ID          string    `json:"id"`
	BookID      string    `json:"bookId"`
	Rating      float64   `json:"rating"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
}

// publisher is the part of pkg/kafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event keyed by book id, so
// all events for one book land on the same partition.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:          review.ID,
		BookID:      review.BookID,
		Rating:      review.Rating,
		Author:      review.Author,
		PublishedAt: review.PublishedAt,
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, review.BookID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	event.WithMetadata("review_id", review.ID)

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
	)

	return nil
}

// NoopPublisher discards events. Used when EVENTS_ENABLED is false.
type NoopPublisher struct{}

// PublishReviewCreated does nothing.
func (NoopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
