package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koreanvocab/vocab-dashboard/internal/httpclient"
)

func TestWrapTransportError(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, wrapTransportError("op", nil))
	})

	t.Run("HTTP error becomes service error", func(t *testing.T) {
		t.Parallel()

		err := wrapTransportError("fetch target lists",
			httpclient.NewHTTPError(404, "http://127.0.0.1:8000/vocab/targets", "Not Found"))

		var serviceErr *ServiceError
		assert.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, 404, serviceErr.StatusCode)
		assert.Equal(t, "fetch target lists: Not Found", err.Error())
	})

	t.Run("anything else becomes network error", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("failed to execute request: connection refused")
		err := wrapTransportError("probe flashcard service", cause)

		var networkErr *NetworkError
		assert.ErrorAs(t, err, &networkErr)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "probe flashcard service: failed to execute request: connection refused", err.Error())
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "nil", err: nil, expected: KindNone},
		{name: "network", err: &NetworkError{Op: "op", Err: errors.New("refused")}, expected: KindNetwork},
		{name: "service", err: &ServiceError{Op: "op", Message: "bad"}, expected: KindService},
		{name: "wrapped service", err: fmt.Errorf("outer: %w", &ServiceError{Op: "op"}), expected: KindService},
		{name: "canceled network", err: &NetworkError{Op: "op", Err: context.Canceled}, expected: KindCanceled},
		{name: "deadline", err: context.DeadlineExceeded, expected: KindNetwork},
		{name: "plain", err: errors.New("boom"), expected: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}
