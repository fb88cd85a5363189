package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDocument struct {
	Title  string  `bson:"title" validate:"required,max=10"`
	Rating float64 `bson:"rating" validate:"gte=1,lte=5"`
	Note   string  `json:"note,omitempty" validate:"max=3"`
	Plain  string  `validate:"required"`
}

func validDocument() testDocument {
	return testDocument{Title: "ok", Rating: 3, Plain: "x"}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validDocument()))
}

func TestValidate_UsesBsonFieldName(t *testing.T) {
	doc := validDocument()
	doc.Title = ""

	fields := fieldsOf(t, Validate(doc))
	assert.Equal(t, "is required", fields["title"])
}

func TestValidate_FallsBackToJSONThenStructName(t *testing.T) {
	doc := validDocument()
	doc.Note = "toolong"
	doc.Plain = ""

	fields := fieldsOf(t, Validate(doc))
	assert.Contains(t, fields, "note")
	assert.Contains(t, fields, "Plain")
}

func TestValidate_MaxCountsRunes(t *testing.T) {
	doc := validDocument()
	doc.Title = strings.Repeat("é", 10)
	assert.NoError(t, Validate(doc))

	doc.Title = strings.Repeat("é", 11)
	fields := fieldsOf(t, Validate(doc))
	assert.Equal(t, "must not exceed 10 characters", fields["title"])
}

func TestValidate_NumericRange(t *testing.T) {
	doc := validDocument()
	doc.Rating = 6

	fields := fieldsOf(t, Validate(doc))
	assert.Equal(t, "must not exceed 5", fields["rating"])

	doc.Rating = 0.5
	fields = fieldsOf(t, Validate(doc))
	assert.Equal(t, "must be at least 1", fields["rating"])
}

func TestValidationError_ErrorJoinsMessages(t *testing.T) {
	err := Validate(testDocument{Rating: 9})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "title is required")
	assert.Contains(t, msg, "rating must not exceed 5")
	assert.Contains(t, msg, "; ")
}

func TestValidate_NonStructReturnsPlainError(t *testing.T) {
	err := Validate("not a struct")
	require.Error(t, err)

	var valErr *ValidationError
	assert.NotErrorAs(t, err, &valErr)
}
