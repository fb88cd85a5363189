package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("  upstream down \n")),
	}

	err := NewStatusError(resp, "book-service")
	assert.Equal(t, "book-service", err.Service)
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	assert.Equal(t, "upstream down", err.Body)
	assert.Equal(t, "book-service returned status 502: upstream down", err.Error())
}

func TestStatusError_EmptyBody(t *testing.T) {
	err := &StatusError{Service: "book-service", StatusCode: 500}
	assert.Equal(t, "book-service returned status 500", err.Error())
}

func TestIsConnectionRefused(t *testing.T) {
	assert.True(t, IsConnectionRefused(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
	assert.False(t, IsConnectionRefused(syscall.ECONNRESET))
	assert.False(t, IsConnectionRefused(nil))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("boom")))
}
