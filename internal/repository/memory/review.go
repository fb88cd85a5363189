package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	apperrors "github.com/utafrali/review-service/pkg/errors"
)

const reviewTable = "review"

// record is the stored row. Seq orders reviews inserted with the same
// publishedAt, newest first.
type record struct {
	domain.Review
	Seq uint64
}

func newSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			reviewTable: {
				Name: reviewTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"book_id": {
						Name:    "book_id",
						Indexer: &memdb.StringFieldIndex{Field: "BookID"},
					},
				},
			},
		},
	}
}

// ReviewRepository is an in-process review store backed by go-memdb. It is
// used for local runs without MongoDB and in handler tests.
type ReviewRepository struct {
	db  *memdb.MemDB
	seq atomic.Uint64
	now func() time.Time
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates an empty in-memory review repository.
func NewReviewRepository() (*ReviewRepository, error) {
	db, err := memdb.NewMemDB(newSchema())
	if err != nil {
		return nil, fmt.Errorf("initialize in-memory database: %w", err)
	}
	return &ReviewRepository{db: db, now: time.Now}, nil
}

// Create stores a new review.
func (r *ReviewRepository) Create(_ context.Context, input *domain.CreateReviewInput) (*domain.Review, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	publishedAt := now
	if input.PublishedAt != nil {
		publishedAt = input.PublishedAt.UTC().Truncate(time.Millisecond)
	}

	rec := &record{
		Review: domain.Review{
			ID:          primitive.NewObjectID().Hex(),
			BookID:      input.BookID,
			Rating:      input.Rating,
			Title:       input.Title,
			Content:     input.Content,
			Author:      input.Author,
			PublishedAt: publishedAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Seq: r.seq.Add(1),
	}

	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(reviewTable, rec); err != nil {
		return nil, apperrors.Store("Review could not be stored", err)
	}
	txn.Commit()

	review := rec.Review
	return &review, nil
}

func (r *ReviewRepository) byBook(txn *memdb.Txn, bookID string) ([]*record, error) {
	it, err := txn.Get(reviewTable, "book_id", bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	var recs []*record
	for obj := it.Next(); obj != nil; obj = it.Next() {
		recs = append(recs, obj.(*record))
	}
	return recs, nil
}

// FindByBookID returns a window of a book's reviews, newest publishedAt first.
func (r *ReviewRepository) FindByBookID(_ context.Context, bookID string, from, size int) ([]domain.Review, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	recs, err := r.byBook(txn, bookID)
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].PublishedAt.Equal(recs[j].PublishedAt) {
			return recs[i].PublishedAt.After(recs[j].PublishedAt)
		}
		return recs[i].Seq > recs[j].Seq
	})

	reviews := []domain.Review{}
	if from >= len(recs) {
		return reviews, nil
	}
	end := len(recs)
	if size > 0 && from+size < end {
		end = from + size
	}
	for _, rec := range recs[from:end] {
		reviews = append(reviews, rec.Review)
	}
	return reviews, nil
}

// CountByBookID returns how many reviews a book has.
func (r *ReviewRepository) CountByBookID(_ context.Context, bookID string) (int64, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	recs, err := r.byBook(txn, bookID)
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}

// CountsByBookIDs returns a count for every requested id. All lookups share
// one read transaction, so the result is a single consistent snapshot. The
// single round trip rule only matters for the Mongo store.
func (r *ReviewRepository) CountsByBookIDs(_ context.Context, bookIDs []string) (map[string]int64, error) {
	ids := repository.NormalizeIDs(bookIDs)
	counts := repository.ZeroCounts(ids)

	txn := r.db.Txn(false)
	defer txn.Abort()

	for _, id := range ids {
		if id == "" {
			continue
		}
		recs, err := r.byBook(txn, id)
		if err != nil {
			return nil, apperrors.Aggregation(err)
		}
		counts[id] = int64(len(recs))
	}
	return counts, nil
}

// FindByID returns a single review.
func (r *ReviewRepository) FindByID(_ context.Context, id string) (*domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Store(fmt.Sprintf("Invalid review id %q", id), err)
	}

	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(reviewTable, "id", oid.Hex())
	if err != nil {
		return nil, fmt.Errorf("find review by id: %w", err)
	}
	if raw == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("Review with id %s not found", id))
	}

	review := raw.(*record).Review
	return &review, nil
}

// DeleteAll removes every review.
func (r *ReviewRepository) DeleteAll(_ context.Context) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(reviewTable, "id"); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	txn.Commit()
	return nil
}
