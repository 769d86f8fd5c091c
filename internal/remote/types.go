package remote

import "time"

// TargetListDescriptor is an opaque handle for a target word-list managed by the
// flashcard service.
type TargetListDescriptor struct {
	Identifier string `json:"identifier"`
}

// List returns a descriptor for the given identifier.
func List(identifier string) TargetListDescriptor {
	return TargetListDescriptor{Identifier: identifier}
}

// String returns the identifier
func (d TargetListDescriptor) String() string {
	return d.Identifier
}

// IsZero reports whether the descriptor carries no identifier
func (d TargetListDescriptor) IsZero() bool {
	return d.Identifier == ""
}

// TargetLists is the set of target lists the flashcard service offers, plus its default.
type TargetLists struct {
	Lists   []TargetListDescriptor `json:"lists"`
	Default TargetListDescriptor   `json:"default"`
}

// CoverageResult describes how many words of a target list are already learned.
// The values are passed through exactly as the service reported them.
type CoverageResult struct {
	TargetWordCount    int      `json:"target_word_count"`
	ExistingCount      int      `json:"existing_count"`
	MissingCount       int      `json:"missing_count"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	MissingWords       []string `json:"missing_words"`
}

// Clone returns a deep copy of the result.
func (c CoverageResult) Clone() CoverageResult {
	out := c
	if c.MissingWords != nil {
		out.MissingWords = append([]string(nil), c.MissingWords...)
	}
	return out
}

// ServiceHealth is the outcome of a single probe against one monitored service.
type ServiceHealth struct {
	Connected bool      `json:"connected"`
	Checking  bool      `json:"checking"`
	LastError string    `json:"lastError,omitempty"`
	Version   int       `json:"version,omitempty"`
	CheckedAt time.Time `json:"checkedAt,omitzero"`
}

// Checking returns the health entry a probe cycle starts from.
func Checking() ServiceHealth {
	return ServiceHealth{Checking: true}
}

// Disconnected returns a settled health entry for a failed probe.
func Disconnected(err error) ServiceHealth {
	h := ServiceHealth{CheckedAt: time.Now()}
	if err != nil {
		h.LastError = err.Error()
	}
	return h
}
