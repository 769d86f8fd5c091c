package coverage

import (
	"slices"

	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

// SyncState is the session-wide view of target lists and coverage.
// Subscribers and State() always receive independent copies.
type SyncState struct {
	SelectedList      *remote.TargetListDescriptor  `json:"selectedList"`
	AvailableLists    []remote.TargetListDescriptor `json:"availableLists"`
	Coverage          *remote.CoverageResult        `json:"coverage"`
	Loading           bool                          `json:"loading"`
	Error             string                        `json:"error,omitempty"`
	RequestGeneration uint64                        `json:"requestGeneration"`
}

// Clone returns a deep copy of the state
func (s SyncState) Clone() SyncState {
	out := s
	if s.SelectedList != nil {
		selected := *s.SelectedList
		out.SelectedList = &selected
	}
	if s.AvailableLists != nil {
		out.AvailableLists = slices.Clone(s.AvailableLists)
	}
	if s.Coverage != nil {
		c := s.Coverage.Clone()
		out.Coverage = &c
	}
	return out
}

// HasLists reports whether the available lists have been loaded
func (s SyncState) HasLists() bool {
	return len(s.AvailableLists) > 0
}

// IsAvailable reports whether list is one of the loaded lists
func (s SyncState) IsAvailable(list remote.TargetListDescriptor) bool {
	return slices.Contains(s.AvailableLists, list)
}
