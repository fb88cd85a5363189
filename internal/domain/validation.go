package domain

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/utafrali/review-service/pkg/errors"
)

// publishedAtLayouts are tried in order. Layouts without a zone are UTC.
var publishedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseCreateReview validates a decoded JSON object and returns the trimmed
// input. Checks run in a fixed order and the first failure is returned.
func ParseCreateReview(raw map[string]any) (*CreateReviewInput, error) {
	bookID, ok := nonEmptyString(raw["bookId"])
	if !ok {
		return nil, apperrors.Validation("bookId must be a non-empty string")
	}

	rating, ok := number(raw["rating"])
	if !ok || rating < MinRating || rating > MaxRating {
		return nil, apperrors.Validation("rating must be a number between 1 and 5")
	}

	title, err := boundedText(raw, "title", MaxTitleLength)
	if err != nil {
		return nil, err
	}
	content, err := boundedText(raw, "content", MaxContentLength)
	if err != nil {
		return nil, err
	}
	author, err := boundedText(raw, "author", MaxAuthorLength)
	if err != nil {
		return nil, err
	}

	in := &CreateReviewInput{
		BookID:  bookID,
		Rating:  rating,
		Title:   title,
		Content: content,
		Author:  author,
	}

	if v, present := raw["publishedAt"]; present && v != nil {
		s, isString := v.(string)
		if !isString {
			return nil, apperrors.Validation("publishedAt must be a valid ISO 8601 date")
		}
		t, ok := ParseTimestamp(s)
		if !ok {
			return nil, apperrors.Validation("publishedAt must be a valid ISO 8601 date")
		}
		in.PublishedAt = &t
	}

	return in, nil
}

// ParseTimestamp parses an ISO 8601 date or date-time into UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseReviewQuery validates listing query parameters and applies defaults.
func ParseReviewQuery(q url.Values) (*ReviewQuery, error) {
	bookID := strings.TrimSpace(q.Get("bookId"))
	if bookID == "" {
		return nil, apperrors.Validation("bookId is required and must be a string")
	}

	from := 0
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, apperrors.Validation("from must be a non-negative number")
		}
		from = n
	}

	size := DefaultPageSize
	if v := strings.TrimSpace(q.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return nil, apperrors.Validation("size must be between 1 and 100")
		}
		size = n
	}

	return &ReviewQuery{BookID: bookID, From: from, Size: size}, nil
}

// ParseCountsRequest extracts the bookIds array from a decoded JSON object.
// Numeric ids are converted to their shortest decimal form. Trimming and
// deduplication are left to the repository.
func ParseCountsRequest(raw map[string]any) ([]string, error) {
	v, present := raw["bookIds"]
	if !present || v == nil {
		return nil, apperrors.Validation("bookIds is required")
	}

	items, ok := v.([]any)
	if !ok {
		return nil, apperrors.Validation("bookIds must be an array")
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("bookIds array must not be empty")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		switch id := item.(type) {
		case string:
			ids = append(ids, id)
		case json.Number:
			ids = append(ids, canonicalNumber(id))
		case float64:
			ids = append(ids, strconv.FormatFloat(id, 'f', -1, 64))
		default:
			return nil, apperrors.Validation("bookIds must contain only strings or numbers")
		}
	}
	return ids, nil
}

func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func boundedText(raw map[string]any, field string, max int) (string, error) {
	s, ok := nonEmptyString(raw[field])
	if !ok {
		return "", apperrors.Validation(field + " must be a non-empty string")
	}
	if utf8.RuneCountInString(s) > max {
		return "", apperrors.Validation(field + " must not exceed " + strconv.Itoa(max) + " characters")
	}
	return s, nil
}

// number accepts the numeric forms produced by encoding/json.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
