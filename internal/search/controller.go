// Package search mediates between a query field and a books.Provider.
//
// A Controller is owned by a single event loop (the bubbletea Update loop in
// the terminal UI). Its methods must only be called from that loop; the only
// work that leaves the loop is the tea.Cmd returned by Submit, which touches
// no controller state and reports back through a ResultMsg.
package search

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/logging"
	"github.com/ssh-vom/bookbinder/internal/metrics"
)

type State int

const (
	StateIdle State = iota
	StateSearching
)

func (state State) String() string {
	if state == StateSearching {
		return "searching"
	}
	return "idle"
}

// ResultMsg carries the outcome of one search back onto the event loop.
type ResultMsg struct {
	ID      string
	Query   string
	Results books.SearchResult
	Err     error
}

type inflight struct {
	id      string
	query   string
	started time.Time
	cancel  context.CancelFunc
}

type Controller struct {
	provider books.Provider
	logger   *logrus.Logger
	recorder *metrics.Recorder

	query   string
	results books.SearchResult
	state   State
	lastErr error
	current *inflight
}

func NewController(provider books.Provider, logger *logrus.Logger, recorder *metrics.Recorder) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		provider: provider,
		logger:   logger,
		recorder: recorder,
		results:  books.SearchResult{},
		state:    StateIdle,
	}
}

func (controller *Controller) Query() string               { return controller.query }
func (controller *Controller) Results() books.SearchResult { return controller.results }
func (controller *Controller) State() State                { return controller.state }

// Err is the failure of the most recent completed search, cleared by the next success.
func (controller *Controller) Err() error { return controller.lastErr }

func (controller *Controller) SetQuery(query string) {
	controller.query = query
}

func (controller *Controller) SetProvider(provider books.Provider) {
	controller.provider = provider
}

// Submit starts a search for the current query. A blank query is ignored and
// yields a nil command. A search already in flight is canceled and its
// outcome will be discarded.
func (controller *Controller) Submit() tea.Cmd {
	if books.IsBlank(controller.query) {
		controller.logger.Debug("ignoring blank query")
		return nil
	}

	controller.supersede()

	id := ulid.Make().String()
	ctx, cancel := context.WithCancel(logging.ContextWithSearchID(context.Background(), id))
	controller.current = &inflight{id: id, query: controller.query, started: time.Now(), cancel: cancel}
	controller.state = StateSearching
	controller.recorder.SearchStarted()

	entry := logging.For(ctx, controller.logger).WithField("query", controller.query)
	entry.Info("search submitted")

	return searchCmd(ctx, cancel, controller.provider, id, controller.query, entry)
}

func searchCmd(ctx context.Context, cancel context.CancelFunc, provider books.Provider, id, query string, entry *logrus.Entry) tea.Cmd {
	return func() tea.Msg {
		defer cancel()
		if provider == nil {
			return ResultMsg{ID: id, Query: query, Err: books.ErrProviderUnavailable}
		}
		defer logging.Track(entry, "search")()
		results, err := provider.Search(ctx, query)
		return ResultMsg{ID: id, Query: query, Results: results, Err: err}
	}
}

// Handle applies a search outcome. It reports false when msg belongs to a
// search that has been superseded or closed.
func (controller *Controller) Handle(msg ResultMsg) bool {
	current := controller.current
	if current == nil || current.id != msg.ID {
		controller.logger.WithField("search_id", msg.ID).Debug("discarding superseded search result")
		return false
	}

	controller.current = nil
	controller.state = StateIdle
	elapsed := time.Since(current.started)
	entry := controller.logger.WithFields(logrus.Fields{"search_id": msg.ID, "query": msg.Query})

	if msg.Err != nil {
		controller.lastErr = msg.Err
		kind := failureKind(msg.Err)
		controller.recorder.SearchFailed(kind, elapsed)
		entry.WithError(msg.Err).WithField("kind", kind).Warn("search failed")
		return true
	}

	results := msg.Results
	if results == nil {
		results = books.SearchResult{}
	}
	controller.results = results
	controller.lastErr = nil
	controller.recorder.SearchSucceeded(elapsed, len(results))
	entry.WithField("results", len(results)).Info("search finished")
	return true
}

// Close cancels any search in flight.
func (controller *Controller) Close() {
	controller.supersede()
	controller.state = StateIdle
}

func (controller *Controller) supersede() {
	if controller.current == nil {
		return
	}
	controller.current.cancel()
	controller.recorder.SearchCanceled()
	controller.logger.WithField("search_id", controller.current.id).Debug("canceled search in flight")
	controller.current = nil
}

func failureKind(err error) string {
	if kind := books.KindOf(err); kind != 0 {
		return kind.String()
	}
	if errors.Is(err, books.ErrProviderUnavailable) {
		return "unavailable"
	}
	return "unknown"
}
