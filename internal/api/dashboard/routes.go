// Package dashboard provides the REST handlers used by the dashboard and the
// list-manager views.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/koreanvocab/vocab-dashboard/internal/api/common"
	"github.com/koreanvocab/vocab-dashboard/internal/coverage"
	"github.com/koreanvocab/vocab-dashboard/internal/health"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

// StatusService is the health state the handlers read and refresh.
type StatusService interface {
	Snapshot() health.Snapshot
	Refresh() bool
}

// CoverageService is the shared coverage state the handlers read and drive.
type CoverageService interface {
	State() coverage.SyncState
	SummaryLimit() int
	StartSelect(ctx context.Context, list remote.TargetListDescriptor, limit int) (func(), error)
	StartRefresh(ctx context.Context, limit int) (func(), error)
}

// WordSource returns the learned-word list.
type WordSource interface {
	FetchLearnedWords(ctx context.Context) ([]string, error)
}

// TargetsResponse lists the available target lists and the current selection
type TargetsResponse struct {
	Lists    []remote.TargetListDescriptor `json:"lists"`
	Selected *remote.TargetListDescriptor  `json:"selected"`
	Loading  bool                          `json:"loading"`
	Error    string                        `json:"error,omitempty"`
}

// WordsResponse is the (optionally filtered) learned-word list
type WordsResponse struct {
	Words []string `json:"words"`
	Total int      `json:"total"`
	Query string   `json:"query,omitempty"`
}

// AcceptedResponse acknowledges an operation whose result arrives through the shared state
type AcceptedResponse struct {
	Status string `json:"status"`
	List   string `json:"list,omitempty"`
	Limit  int    `json:"limit"`
}

// SelectRequest is the body of POST /coverage/select
type SelectRequest struct {
	List  string `json:"list"`
	Limit *int   `json:"limit,omitempty"`
}

// RefreshRequest is the body of POST /coverage/refresh
type RefreshRequest struct {
	Limit *int `json:"limit,omitempty"`
	All   bool `json:"all,omitempty"`
}

// Routes holds the handler dependencies
type Routes struct {
	status   StatusService
	coverage CoverageService
	words    WordSource

	wordsGroup singleflight.Group
}

// NewRoutes creates a new Routes instance with the provided services
func NewRoutes(status StatusService, cov CoverageService, words WordSource) *Routes {
	return &Routes{
		status:   status,
		coverage: cov,
		words:    words,
	}
}

// Router creates the router for the dashboard API
func Router(status StatusService, cov CoverageService, words WordSource) http.Handler {
	routes := NewRoutes(status, cov, words)

	r := chi.NewRouter()

	r.Get("/status", routes.getStatus)
	r.Post("/status/refresh", routes.refreshStatus)

	r.Get("/targets", routes.getTargets)

	r.Get("/coverage", routes.getCoverage)
	r.Post("/coverage/select", routes.selectList)
	r.Post("/coverage/refresh", routes.refreshCoverage)

	r.Get("/words", routes.getWords)

	return r
}

func (rr *Routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, rr.status.Snapshot(), http.StatusOK)
}

// refreshStatus asks the poller for an immediate cycle
func (rr *Routes) refreshStatus(w http.ResponseWriter, _ *http.Request) {
	if !rr.status.Refresh() {
		common.WriteErrorResponse(w, "health poller is not running", http.StatusServiceUnavailable)
		return
	}
	common.WriteJSONResponse(w, AcceptedResponse{Status: "accepted"}, http.StatusAccepted)
}

func (rr *Routes) getTargets(w http.ResponseWriter, _ *http.Request) {
	st := rr.coverage.State()
	lists := st.AvailableLists
	if lists == nil {
		lists = []remote.TargetListDescriptor{}
	}
	common.WriteJSONResponse(w, TargetsResponse{
		Lists:    lists,
		Selected: st.SelectedList,
		Loading:  st.Loading,
		Error:    st.Error,
	}, http.StatusOK)
}

func (rr *Routes) getCoverage(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, rr.coverage.State(), http.StatusOK)
}

// selectList makes the selection and fetches its coverage in the background.
func (rr *Routes) selectList(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	list := remote.List(strings.TrimSpace(req.List))
	limit := rr.coverage.SummaryLimit()
	if req.Limit != nil {
		limit = *req.Limit
	}

	// the selection holds its generation before it is acknowledged
	fetch, err := rr.coverage.StartSelect(context.WithoutCancel(r.Context()), list, limit)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	go fetch()

	common.WriteJSONResponse(w, AcceptedResponse{
		Status: "accepted",
		List:   list.Identifier,
		Limit:  limit,
	}, http.StatusAccepted)
}

// refreshCoverage re-fetches the current selection in the background.
func (rr *Routes) refreshCoverage(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := rr.coverage.SummaryLimit()
	switch {
	case req.All:
		limit = 0
	case req.Limit != nil:
		limit = *req.Limit
	}

	fetch, err := rr.coverage.StartRefresh(context.WithoutCancel(r.Context()), limit)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	go fetch()

	common.WriteJSONResponse(w, AcceptedResponse{Status: "accepted", Limit: limit}, http.StatusAccepted)
}

// getWords returns the learned words, filtered by the case-insensitive ?q= substring.
// Concurrent requests share one upstream call.
func (rr *Routes) getWords(w http.ResponseWriter, r *http.Request) {
	v, err, _ := rr.wordsGroup.Do("words", func() (any, error) {
		return rr.words.FetchLearnedWords(context.WithoutCancel(r.Context()))
	})
	if err != nil {
		slog.Warn("Failed to fetch learned words", "kind", remote.Classify(err), "error", err)
		common.WriteErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	words := filterWords(v.([]string), query)
	common.WriteJSONResponse(w, WordsResponse{
		Words: words,
		Total: len(words),
		Query: query,
	}, http.StatusOK)
}

func filterWords(words []string, query string) []string {
	out := make([]string, 0, len(words))
	if query == "" {
		return append(out, words...)
	}
	needle := strings.ToLower(query)
	for _, w := range words {
		if strings.Contains(strings.ToLower(w), needle) {
			out = append(out, w)
		}
	}
	return out
}

func writeValidationError(w http.ResponseWriter, err error) {
	slog.Debug("Rejected coverage request", "error", err, "validation", coverage.IsValidationError(err))
	common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
}
