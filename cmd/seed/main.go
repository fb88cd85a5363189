// Package main seeds the review store with sample reviews for local
// development. It writes straight to the repository, so book verification
// is not involved.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
	mongorepo "github.com/utafrali/review-service/internal/repository/mongo"
	"github.com/utafrali/review-service/pkg/config"
	"github.com/utafrali/review-service/pkg/database"
	"github.com/utafrali/review-service/pkg/logger"
)

type seedConfig struct {
	MongoAddress   string   `env:"MONGO_ADDRESS" envDefault:"mongodb://localhost:27017/reviewDb"`
	MongoDatabase  string   `env:"MONGO_DATABASE" envDefault:"reviewDb"`
	BookIDs        []string `env:"SEED_BOOK_IDS" envDefault:"1,2,3,4,5" envSeparator:","`
	ReviewsPerBook int      `env:"SEED_REVIEWS_PER_BOOK" envDefault:"5"`
	Reset          bool     `env:"SEED_RESET" envDefault:"false"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
}

var (
	titles   = []string{"A must read", "Solid effort", "Could not put it down", "Slow start", "Overrated", "Hidden gem"}
	authors  = []string{"Ada", "Grace", "Linus", "Barbara", "Ken", "Margaret"}
	contents = []string{
		"The characters stayed with me long after the last page.",
		"Well researched but the middle chapters drag.",
		"Beautiful prose and a satisfying ending.",
		"Not my kind of book, though I see the appeal.",
	}
)

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var cfg seedConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New("review-seed", "development", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = cfg.MongoAddress
	mongoCfg.Database = cfg.MongoDatabase

	dbName, err := mongoCfg.DatabaseName()
	if err != nil {
		return err
	}

	log.Info("connecting to MongoDB", slog.String("database", dbName))
	client, err := database.NewMongoClient(ctx, mongoCfg, "review-seed", log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := mongorepo.NewReviewRepository(client.Database(dbName))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	if cfg.Reset {
		log.Warn("deleting all existing reviews")
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
	}

	created, err := seed(ctx, repo, cfg.BookIDs, cfg.ReviewsPerBook, log)
	if err != nil {
		return err
	}

	counts, err := repo.CountsByBookIDs(ctx, cfg.BookIDs)
	if err != nil {
		return err
	}
	for id, n := range counts {
		log.Info("book review count", slog.String("book_id", id), slog.Int64("reviews", n))
	}
	log.Info("seed complete", slog.Int("created", created))
	return nil
}

func seed(ctx context.Context, repo repository.ReviewRepository, bookIDs []string, perBook int, log *slog.Logger) (int, error) {
	created := 0
	now := time.Now().UTC()

	for _, bookID := range repository.NormalizeIDs(bookIDs) {
		if bookID == "" {
			continue
		}
		for i := range perBook {
			publishedAt := now.Add(-time.Duration(rand.IntN(365*24)) * time.Hour)
			input := &domain.CreateReviewInput{
				BookID:      bookID,
				Rating:      float64(domain.MinRating + rand.IntN(domain.MaxRating)),
				Title:       titles[rand.IntN(len(titles))],
				Content:     contents[rand.IntN(len(contents))],
				Author:      authors[rand.IntN(len(authors))],
				PublishedAt: &publishedAt,
			}
			review, err := repo.Create(ctx, input)
			if err != nil {
				return created, fmt.Errorf("seed review %d for book %s: %w", i+1, bookID, err)
			}
			created++
			log.Debug("review created", slog.String("review_id", review.ID), slog.String("book_id", bookID))
		}
	}
	return created, nil
}
