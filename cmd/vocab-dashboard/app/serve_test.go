package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanvocab/vocab-dashboard/internal/config"
)

func TestRunServe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		address     string
		errContains string
	}{
		{
			name:    "stops when the context is cancelled",
			address: "127.0.0.1:0",
		},
		{
			name:        "invalid address",
			address:     "not-an-address",
			errContains: "failed to build dashboard server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			cfg.Server.Address = tt.address
			// nothing listens on the discard port
			cfg.Services.Flashcard.URL = "http://127.0.0.1:9"
			cfg.Services.Status.URL = "http://127.0.0.1:9"

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			done := make(chan error, 1)
			go func() { done <- runServe(ctx, cfg) }()

			select {
			case err := <-done:
				if tt.errContains != "" {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.errContains)
					return
				}
				require.NoError(t, err)
			case <-time.After(10 * time.Second):
				t.Fatal("runServe did not return")
			}
		})
	}
}
