package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

// newTestServer creates a test server with keep-alives disabled so parallel tests
// closing their servers do not disturb each other.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func newClient(t *testing.T, flashcardURL, statusURL string, opts ...remote.Option) remote.Client {
	t.Helper()
	c, err := remote.New(flashcardURL, statusURL, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		flashcardURL  string
		statusURL     string
		errorContains string
	}{
		{
			name:          "empty flashcard URL",
			flashcardURL:  "",
			statusURL:     remote.DefaultStatusURL,
			errorContains: "invalid flashcard service URL",
		},
		{
			name:          "unsupported scheme",
			flashcardURL:  "ftp://127.0.0.1:8000",
			statusURL:     remote.DefaultStatusURL,
			errorContains: "unsupported scheme",
		},
		{
			name:          "status URL without host",
			flashcardURL:  remote.DefaultFlashcardURL,
			statusURL:     "http://",
			errorContains: "invalid status service URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := remote.New(tt.flashcardURL, tt.statusURL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFetchAvailableLists(t *testing.T) {
	t.Parallel()

	var path string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"files": ["TOPIK1", "TOPIK2"], "default": "TOPIK1"}`))
	}))
	defer server.Close()

	// A trailing slash on the base URL must not produce a double slash
	c := newClient(t, server.URL+"/", remote.DefaultStatusURL)

	lists, err := c.FetchAvailableLists(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/vocab/targets", path)
	assert.Equal(t, []remote.TargetListDescriptor{remote.List("TOPIK1"), remote.List("TOPIK2")}, lists.Lists)
	assert.Equal(t, remote.List("TOPIK1"), lists.Default)
}

func TestFetchAvailableLists_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		handler      http.HandlerFunc
		expectedKind remote.Kind
		contains     string
	}{
		{
			name: "non-2xx is a service error with detail preserved",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"detail": "targets directory missing"}`))
			},
			expectedKind: remote.KindService,
			contains:     "targets directory missing",
		},
		{
			name: "malformed body is a service error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			expectedKind: remote.KindService,
			contains:     "malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(tt.handler)
			defer server.Close()

			c := newClient(t, server.URL, remote.DefaultStatusURL)

			_, err := c.FetchAvailableLists(context.Background())

			require.Error(t, err)
			assert.Equal(t, tt.expectedKind, remote.Classify(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestFetchAvailableLists_ConnectionRefused(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newClient(t, url, remote.DefaultStatusURL)

	_, err := c.FetchAvailableLists(context.Background())

	require.Error(t, err)
	var networkErr *remote.NetworkError
	assert.ErrorAs(t, err, &networkErr)
	assert.Equal(t, remote.KindNetwork, remote.Classify(err))
}

func TestFetchCoverage_QueryParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		list          string
		limit         int
		expectedFile  string
		expectTopK    bool
		expectedTopK  string
		expectedCount int
	}{
		{
			name:          "summary limit",
			list:          "TOPIK1",
			limit:         5,
			expectedFile:  "TOPIK1",
			expectTopK:    true,
			expectedTopK:  "5",
			expectedCount: 5,
		},
		{
			name:          "zero limit omits top_k",
			list:          "TOPIK1",
			limit:         0,
			expectedFile:  "TOPIK1",
			expectTopK:    false,
			expectedCount: 38,
		},
		{
			name:          "identifier is escaped",
			list:          "my list&more.txt",
			limit:         10,
			expectedFile:  "my list&more.txt",
			expectTopK:    true,
			expectedTopK:  "10",
			expectedCount: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				gotFile    string
				gotTopK    string
				gotHasTopK bool
			)
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/vocab/coverage", r.URL.Path)
				q := r.URL.Query()
				gotFile = q.Get("file")
				gotHasTopK = q.Has("top_k")
				gotTopK = q.Get("top_k")

				missing := make([]string, 38)
				for i := range missing {
					missing[i] = "word"
				}
				if n, err := strconv.Atoi(gotTopK); err == nil && n > 0 && n < len(missing) {
					missing = missing[:n]
				}
				_ = json.NewEncoder(w).Encode(map[string]any{
					"target_word_count":   100,
					"existing_count":      62,
					"missing_count":       38,
					"coverage_percentage": 62.0,
					"missing_words":       missing,
				})
			}))
			defer server.Close()

			c := newClient(t, server.URL, remote.DefaultStatusURL)

			result, err := c.FetchCoverage(context.Background(), remote.List(tt.list), tt.limit)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedFile, gotFile)
			assert.Equal(t, tt.expectTopK, gotHasTopK)
			if tt.expectTopK {
				assert.Equal(t, tt.expectedTopK, gotTopK)
			}
			assert.Len(t, result.MissingWords, tt.expectedCount)
			assert.Equal(t, 100, result.TargetWordCount)
			assert.Equal(t, 62, result.ExistingCount)
			assert.Equal(t, 38, result.MissingCount)
			assert.InDelta(t, 62.0, result.CoveragePercentage, 0.0001)
		})
	}
}

func TestFetchCoverage_PassesInvariantViolationsThrough(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"target_word_count": 10,
			"existing_count": 7,
			"missing_count": 7,
			"coverage_percentage": 70,
			"missing_words": ["가다"]
		}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL, remote.DefaultStatusURL)

	result, err := c.FetchCoverage(context.Background(), remote.List("TOPIK1"), 5)

	require.NoError(t, err)
	assert.Equal(t, remote.CoverageResult{
		TargetWordCount:    10,
		ExistingCount:      7,
		MissingCount:       7,
		CoveragePercentage: 70,
		MissingWords:       []string{"가다"},
	}, result)
}

func TestFetchCoverage_NullMissingWordsBecomesEmpty(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"target_word_count": 3, "existing_count": 3, "missing_count": 0,
			"coverage_percentage": 100, "missing_words": null}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL, remote.DefaultStatusURL)

	result, err := c.FetchCoverage(context.Background(), remote.List("TOPIK1"), 0)

	require.NoError(t, err)
	assert.NotNil(t, result.MissingWords)
	assert.Empty(t, result.MissingWords)
}

func TestFetchLearnedWords(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vocab/words", r.URL.Path)
		_, _ = w.Write([]byte(`{"words": ["학생", "학교", "선생님"]}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL, remote.DefaultStatusURL)

	words, err := c.FetchLearnedWords(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"학생", "학교", "선생님"}, words)
}

func TestProbeFlashcardService(t *testing.T) {
	t.Parallel()

	t.Run("2xx is connected", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := newClient(t, server.URL, remote.DefaultStatusURL)

		health := c.ProbeFlashcardService(context.Background())

		assert.True(t, health.Connected)
		assert.False(t, health.Checking)
		assert.Empty(t, health.LastError)
		assert.False(t, health.CheckedAt.IsZero())
	})

	t.Run("non-2xx is disconnected with message", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		c := newClient(t, server.URL, remote.DefaultStatusURL)

		health := c.ProbeFlashcardService(context.Background())

		assert.False(t, health.Connected)
		assert.False(t, health.Checking)
		assert.Contains(t, health.LastError, "502")
	})

	t.Run("timeout is disconnected", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		c := newClient(t, server.URL, remote.DefaultStatusURL, remote.WithTimeout(50*time.Millisecond))

		health := c.ProbeFlashcardService(context.Background())

		assert.False(t, health.Connected)
		assert.False(t, health.Checking)
		assert.NotEmpty(t, health.LastError)
	})
}

func TestProbeStatusService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		statusCode      int
		body            string
		expectConnected bool
		expectVersion   int
		errorContains   string
	}{
		{
			name:            "version reply is connected",
			statusCode:      http.StatusOK,
			body:            `{"result": 6, "error": null}`,
			expectConnected: true,
			expectVersion:   6,
		},
		{
			name:            "reply without error field is connected",
			statusCode:      http.StatusOK,
			body:            `{"result": 6}`,
			expectConnected: true,
			expectVersion:   6,
		},
		{
			name:          "service-reported error",
			statusCode:    http.StatusOK,
			body:          `{"result": null, "error": "unsupported action"}`,
			errorContains: "unsupported action",
		},
		{
			name:          "missing result field",
			statusCode:    http.StatusOK,
			body:          `{"error": null}`,
			errorContains: "missing result field",
		},
		{
			name:          "invalid JSON",
			statusCode:    http.StatusOK,
			body:          `AnkiConnect v.6`,
			errorContains: "invalid JSON",
		},
		{
			name:          "non-2xx",
			statusCode:    http.StatusForbidden,
			body:          ``,
			errorContains: "403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received map[string]any
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(raw, &received)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newClient(t, remote.DefaultFlashcardURL, server.URL)

			health := c.ProbeStatusService(context.Background())

			assert.Equal(t, "version", received["action"])
			assert.EqualValues(t, remote.StatusProtocolVersion, received["version"])
			assert.Equal(t, tt.expectConnected, health.Connected)
			assert.False(t, health.Checking)
			assert.Equal(t, tt.expectVersion, health.Version)
			if tt.errorContains != "" {
				assert.Contains(t, health.LastError, tt.errorContains)
			} else {
				assert.Empty(t, health.LastError)
			}
		})
	}
}

type countingTransport struct {
	gets  atomic.Int32
	posts atomic.Int32
}

func (c *countingTransport) Get(_ context.Context, _ string) ([]byte, error) {
	c.gets.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func (c *countingTransport) PostJSON(_ context.Context, _ string, _ any) ([]byte, error) {
	c.posts.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func TestWithHTTPClient_ProbesNeverRetry(t *testing.T) {
	t.Parallel()

	transport := &countingTransport{}
	c := newClient(t, remote.DefaultFlashcardURL, remote.DefaultStatusURL, remote.WithHTTPClient(transport))

	flashcard := c.ProbeFlashcardService(context.Background())
	status := c.ProbeStatusService(context.Background())

	assert.False(t, flashcard.Connected)
	assert.False(t, status.Connected)
	assert.Contains(t, flashcard.LastError, "connection refused")
	assert.Contains(t, status.LastError, "connection refused")
	assert.Equal(t, int32(1), transport.gets.Load())
	assert.Equal(t, int32(1), transport.posts.Load())
}
