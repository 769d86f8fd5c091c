package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/koreanvocab/vocab-dashboard/internal/config"
	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
	"github.com/koreanvocab/vocab-dashboard/internal/remote/mocks"
)

var (
	topik1 = remote.List("TOPIK1")
	topik2 = remote.List("TOPIK2")
)

// useClient swaps the client constructor for the duration of the test.
// Tests calling it must not run in parallel.
func useClient(t *testing.T, client remote.Client) {
	t.Helper()

	prev := newClient
	newClient = func(*config.Config) (remote.Client, error) {
		return client, nil
	}
	t.Cleanup(func() { newClient = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusCmd(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	useClient(t, client)

	client.EXPECT().ProbeFlashcardService(gomock.Any()).
		Return(remote.ServiceHealth{Connected: true, CheckedAt: time.Now()}).Times(2)
	client.EXPECT().ProbeStatusService(gomock.Any()).
		Return(remote.Disconnected(errors.New("connection refused"))).Times(2)

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "flashcard")
	assert.Contains(t, out, "connection refused")

	out, err = execute(t, "status", "--format", "json")
	require.NoError(t, err)

	var snap health.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.True(t, snap.Flashcard.Connected)
	assert.False(t, snap.Status.Connected)
	assert.Equal(t, "connection refused", snap.Status.LastError)
}

func TestTargetsCmd(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	useClient(t, client)

	client.EXPECT().FetchAvailableLists(gomock.Any()).Return(remote.TargetLists{
		Lists:   []remote.TargetListDescriptor{topik1, topik2},
		Default: topik1,
	}, nil).Times(2)

	out, err := execute(t, "targets")
	require.NoError(t, err)
	assert.Contains(t, out, "TOPIK1")
	assert.Contains(t, out, "TOPIK2")
	assert.Contains(t, out, "*")

	out, err = execute(t, "targets", "--format", "json")
	require.NoError(t, err)

	var lists remote.TargetLists
	require.NoError(t, json.Unmarshal([]byte(out), &lists))
	assert.Equal(t, topik1, lists.Default)
	assert.Len(t, lists.Lists, 2)
}

func TestTargetsCmd_UpstreamFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	useClient(t, client)

	client.EXPECT().FetchAvailableLists(gomock.Any()).
		Return(remote.TargetLists{}, &remote.NetworkError{Op: "fetch target lists", Err: errors.New("connection refused")})

	_, err := execute(t, "targets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCoverageCmd(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	useClient(t, client)

	client.EXPECT().FetchAvailableLists(gomock.Any()).Return(remote.TargetLists{
		Lists:   []remote.TargetListDescriptor{topik1, topik2},
		Default: topik1,
	}, nil)
	client.EXPECT().FetchCoverage(gomock.Any(), topik2, 3).Return(remote.CoverageResult{
		TargetWordCount:    100,
		ExistingCount:      40,
		MissingCount:       60,
		CoveragePercentage: 40,
		MissingWords:       []string{"사과", "학교", "친구"},
	}, nil)

	out, err := execute(t, "coverage", "TOPIK2", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "TOPIK2")
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, "학교")
}

func TestCoverageCmd_DetailLimitFromConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	useClient(t, client)

	client.EXPECT().FetchAvailableLists(gomock.Any()).Return(remote.TargetLists{
		Lists:   []remote.TargetListDescriptor{topik1},
		Default: topik1,
	}, nil)
	client.EXPECT().FetchCoverage(gomock.Any(), topik1, config.DefaultDetailLimit).
		Return(remote.CoverageResult{TargetWordCount: 10, ExistingCount: 10, CoveragePercentage: 100}, nil)

	out, err := execute(t, "coverage", "--format", "json")
	require.NoError(t, err)

	var st coverage.SyncState
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.NotNil(t, st.SelectedList)
	assert.Equal(t, topik1, *st.SelectedList)
	require.NotNil(t, st.Coverage)
	assert.InDelta(t, 100.0, st.Coverage.CoveragePercentage, 0.001)
}

func TestComputeCoverage(t *testing.T) {
	t.Parallel()

	lists := remote.TargetLists{
		Lists:   []remote.TargetListDescriptor{topik1, topik2},
		Default: topik1,
	}

	tests := []struct {
		name        string
		list        remote.TargetListDescriptor
		limit       int
		setup       func(c *mocks.MockClient)
		wantList    remote.TargetListDescriptor
		errContains string
		validation  bool
	}{
		{
			name:  "default list",
			limit: 0,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(lists, nil)
				c.EXPECT().FetchCoverage(gomock.Any(), topik1, 0).Return(remote.CoverageResult{TargetWordCount: 1}, nil)
			},
			wantList: topik1,
		},
		{
			name:  "explicit default list",
			list:  topik1,
			limit: 2,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(lists, nil)
				c.EXPECT().FetchCoverage(gomock.Any(), topik1, 2).Return(remote.CoverageResult{TargetWordCount: 1}, nil)
			},
			wantList: topik1,
		},
		{
			name:  "unknown list",
			list:  remote.List("JLPT"),
			limit: 2,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(lists, nil)
			},
			errContains: "unknown target list",
			validation:  true,
		},
		{
			name:        "negative limit",
			limit:       -1,
			setup:       func(*mocks.MockClient) {},
			errContains: "limit must not be negative",
			validation:  true,
		},
		{
			name:  "no default list",
			limit: 1,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(remote.TargetLists{
					Lists: []remote.TargetListDescriptor{topik1},
				}, nil)
			},
			errContains: "no default target list",
		},
		{
			name:  "explicit list only fetches that list",
			list:  topik2,
			limit: 4,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(lists, nil)
				c.EXPECT().FetchCoverage(gomock.Any(), topik2, 4).Return(remote.CoverageResult{TargetWordCount: 3}, nil)
			},
			wantList: topik2,
		},
		{
			name:  "lists unavailable for explicit list",
			list:  topik2,
			limit: 1,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).
					Return(remote.TargetLists{}, errors.New("connection refused"))
			},
			errContains: "connection refused",
		},
		{
			name:  "lists unavailable",
			limit: 1,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).
					Return(remote.TargetLists{}, errors.New("connection refused"))
			},
			errContains: "connection refused",
		},
		{
			name:  "coverage unavailable",
			list:  topik2,
			limit: 1,
			setup: func(c *mocks.MockClient) {
				c.EXPECT().FetchAvailableLists(gomock.Any()).Return(lists, nil)
				c.EXPECT().FetchCoverage(gomock.Any(), topik2, 1).
					Return(remote.CoverageResult{}, errors.New("flashcard service returned 500"))
			},
			errContains: "returned 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			tt.setup(client)

			st, err := computeCoverage(context.Background(), client, tt.list, tt.limit)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Equal(t, tt.validation, coverage.IsValidationError(err))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, st.SelectedList)
			assert.Equal(t, tt.wantList, *st.SelectedList)
			assert.NotNil(t, st.Coverage)
		})
	}
}

func TestStatusRow(t *testing.T) {
	t.Parallel()

	checked := time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)

	tests := []struct {
		name   string
		health remote.ServiceHealth
		want   []string
	}{
		{
			name:   "connected with version",
			health: remote.ServiceHealth{Connected: true, Version: 6, CheckedAt: checked},
			want:   []string{"status", "connected", "6", "14:05:09", "-"},
		},
		{
			name:   "checking before first result",
			health: remote.Checking(),
			want:   []string{"status", "checking", "-", "-", "-"},
		},
		{
			name:   "disconnected",
			health: remote.ServiceHealth{LastError: "timeout", CheckedAt: checked},
			want:   []string{"status", "disconnected", "-", "14:05:09", "timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusRow(remote.ServiceStatus, tt.health))
		})
	}
}

func TestLoadConfig_FlagsAndEnv(t *testing.T) {
	t.Setenv("VOCAB_DASHBOARD_STATUS_URL", "http://10.0.0.2:8765")

	cmd := NewRootCmd()
	var got *config.Config

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	prev := newClient
	newClient = func(cfg *config.Config) (remote.Client, error) {
		got = cfg
		return client, nil
	}
	t.Cleanup(func() { newClient = prev })

	client.EXPECT().FetchAvailableLists(gomock.Any()).Return(remote.TargetLists{}, nil)

	cmd.SetArgs([]string{"targets", "--flashcard-url", "http://10.0.0.1:9000", "--timeout", "3s", "--format", "json"})
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.NotNil(t, got)
	assert.Equal(t, "http://10.0.0.1:9000", got.Services.Flashcard.URL)
	assert.Equal(t, "http://10.0.0.2:8765", got.Services.Status.URL)
	assert.Equal(t, 3*time.Second, got.GetTimeout())
	assert.Equal(t, config.DefaultAddress, got.Server.Address)
}

func TestOutputFormat_Rejected(t *testing.T) {
	_, err := execute(t, "targets", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "yaml"`)
}
