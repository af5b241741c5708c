package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIsMatchesByType(t *testing.T) {
	err := fmt.Errorf("item 2: %w", NewDecode(stderrors.New("bad header")))

	assert.True(t, stderrors.Is(err, New(ErrorTypeDecode, "")))
	assert.False(t, stderrors.Is(err, New(ErrorTypeEncode, "")))
	assert.True(t, IsType(err, ErrorTypeDecode))
	assert.Equal(t, ErrorTypeDecode, TypeOf(err))
}

func TestDefaultHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{NewDecode(nil), http.StatusUnprocessableEntity},
		{NewUnsupportedFormat("gif"), http.StatusBadRequest},
		{NewInvalidScale(0), http.StatusBadRequest},
		{NewEncode("jpeg", stderrors.New("boom")), http.StatusInternalServerError},
		{NewRateLimit("slow down"), http.StatusTooManyRequests},
		{New(ErrorTypeTooLarge, "too big"), http.StatusRequestEntityTooLarge},
		{New(ErrorTypeBatch, "2 of 3 images failed"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	plain := FromError(stderrors.New("disk on fire"))
	assert.Equal(t, ErrorTypeUnknown, plain.Type)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)

	wrapped := fmt.Errorf("ctx: %w", NewInvalidScale(101))
	got := FromError(wrapped)
	assert.Equal(t, ErrorTypeInvalidScale, got.Type)
	assert.Equal(t, 101, got.Details["scale"])
}

func TestErrorMessageIncludesInner(t *testing.T) {
	err := NewEncode("webp", stderrors.New("encoder exploded"))
	assert.Equal(t, "cannot encode webp: encoder exploded", err.Error())
	assert.Equal(t, "unsupported format: \"gif\"", NewUnsupportedFormat("gif").Error())
}
