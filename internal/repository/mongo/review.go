package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/pkg/database"
	apperrors "github.com/utafrali/review-service/pkg/errors"
	"github.com/utafrali/review-service/pkg/validator"
)

// CollectionName is the collection reviews are stored in.
const CollectionName = "reviews"

// reviewDocument is the persisted shape of a review.
type reviewDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	BookID      string             `bson:"bookId" validate:"required"`
	Rating      float64            `bson:"rating" validate:"gte=1,lte=5"`
	Title       string             `bson:"title" validate:"required,max=200"`
	Content     string             `bson:"content" validate:"required,max=5000"`
	Author      string             `bson:"author" validate:"required,max=200"`
	PublishedAt time.Time          `bson:"publishedAt" validate:"required"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *reviewDocument) toDomain() domain.Review {
	return domain.Review{
		ID:          d.ID.Hex(),
		BookID:      d.BookID,
		Rating:      d.Rating,
		Title:       d.Title,
		Content:     d.Content,
		Author:      d.Author,
		PublishedAt: d.PublishedAt.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// ReviewRepository implements review persistence operations using MongoDB.
type ReviewRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new MongoDB-backed review repository.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{
		coll: db.Collection(CollectionName),
		now:  time.Now,
	}
}

// EnsureIndexes creates the listing indexes. Safe to call on every start.
func (r *ReviewRepository) EnsureIndexes(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, CollectionName, "createIndexes")
	defer func() { end(err) }()

	_, err = r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "publishedAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	return nil
}

// Create inserts a new review and returns the stored entity.
func (r *ReviewRepository) Create(ctx context.Context, input *domain.CreateReviewInput) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, CollectionName, "insert")
	defer func() { end(err) }()

	now := r.now().UTC().Truncate(time.Millisecond)
	publishedAt := now
	if input.PublishedAt != nil {
		publishedAt = input.PublishedAt.UTC().Truncate(time.Millisecond)
	}

	doc := reviewDocument{
		ID:          primitive.NewObjectID(),
		BookID:      input.BookID,
		Rating:      input.Rating,
		Title:       input.Title,
		Content:     input.Content,
		Author:      input.Author,
		PublishedAt: publishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if verr := validator.Validate(&doc); verr != nil {
		storeErr := apperrors.Store("Review validation failed: "+verr.Error(), verr)
		var fieldErrs *validator.ValidationError
		if errors.As(verr, &fieldErrs) {
			return nil, storeErr.WithDetails(fieldErrs.Fields())
		}
		return nil, storeErr
	}

	if _, err = r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Store("Review already exists", err)
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	review := doc.toDomain()
	return &review, nil
}

// FindByBookID returns a window of a book's reviews, newest first.
func (r *ReviewRepository) FindByBookID(ctx context.Context, bookID string, from, size int) (_ []domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, CollectionName, "find")
	defer func() { end(err) }()

	opts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(from)).
		SetLimit(int64(size))

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "bookId", Value: bookID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}

	var docs []reviewDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, docs[i].toDomain())
	}
	return reviews, nil
}

// CountByBookID returns how many reviews a book has.
func (r *ReviewRepository) CountByBookID(ctx context.Context, bookID string) (_ int64, err error) {
	ctx, end := database.TraceQuery(ctx, CollectionName, "count")
	defer func() { end(err) }()

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "bookId", Value: bookID}})
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

type bookCount struct {
	BookID string `bson:"_id"`
	Count  int64  `bson:"count"`
}

// CountsByBookIDs groups review counts for the given books in one aggregation.
// Every requested id appears in the result.
func (r *ReviewRepository) CountsByBookIDs(ctx context.Context, bookIDs []string) (_ map[string]int64, err error) {
	ids := repository.NormalizeIDs(bookIDs)
	counts := repository.ZeroCounts(ids)
	if len(ids) == 0 {
		return counts, nil
	}

	ctx, end := database.TraceQuery(ctx, CollectionName, "aggregate")
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "bookId", Value: bson.D{{Key: "$in", Value: ids}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$bookId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Aggregation(err)
	}

	var groups []bookCount
	if err = cursor.All(ctx, &groups); err != nil {
		return nil, apperrors.Aggregation(err)
	}

	for _, g := range groups {
		counts[g.BookID] = g.Count
	}
	return counts, nil
}

// FindByID returns a single review by its hex id.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	oid, perr := primitive.ObjectIDFromHex(id)
	if perr != nil {
		return nil, apperrors.Store(fmt.Sprintf("Invalid review id %q", id), perr)
	}

	ctx, end := database.TraceQuery(ctx, CollectionName, "findOne")
	defer func() { end(err) }()

	var doc reviewDocument
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(fmt.Sprintf("Review with id %s not found", id))
		}
		return nil, fmt.Errorf("find review by id: %w", err)
	}

	review := doc.toDomain()
	return &review, nil
}

// DeleteAll removes every review.
func (r *ReviewRepository) DeleteAll(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, CollectionName, "delete")
	defer func() { end(err) }()

	if _, err = r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	return nil
}
