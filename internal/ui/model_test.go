package ui

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/config"
	"github.com/ssh-vom/bookbinder/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu      sync.Mutex
	queries []string
	results books.SearchResult
	err     error
}

func (provider *stubProvider) Search(_ context.Context, query string) (books.SearchResult, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.queries = append(provider.queries, query)
	return provider.results, provider.err
}

func newTestModel(provider books.Provider) model {
	m := NewModel(Options{Config: config.DefaultConfig(), Deps: Dependencies{Provider: provider}})
	m.supportsGraphics = false
	return m
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(model)
	require.True(t, ok)
	return next, cmd
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// collectResult runs cmd, expanding batches, and returns the first search result.
func collectResult(t *testing.T, cmd tea.Cmd) search.ResultMsg {
	t.Helper()
	require.NotNil(t, cmd)

	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			pending = append(pending, msg...)
		case search.ResultMsg:
			return msg
		}
	}

	t.Fatal("no search result produced")
	return search.ResultMsg{}
}

func TestTypingBindsQuery(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m = typeText(t, m, "dune")

	assert.Equal(t, "dune", m.controller.Query())
	assert.Equal(t, "dune", m.textInput.Value())
}

func TestEnterOnBlankQueryDoesNothing(t *testing.T) {
	provider := &stubProvider{}
	m := newTestModel(provider)
	m = typeText(t, m, "   ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, search.StateIdle, m.controller.State())
	assert.Empty(t, m.controller.Results())
	assert.Equal(t, "Search query cannot be empty", m.infoMessage)
	assert.Empty(t, provider.queries)
}

func TestSearchRendersTitlesAndAuthors(t *testing.T) {
	provider := &stubProvider{results: books.SearchResult{
		{ID: "1", Title: "Dune", Authors: []string{"Frank Herbert"}, ThumbnailURL: "http://x/1.jpg"},
		{ID: "2", Title: "Anonymous Tales"},
		{ID: "3", Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}},
	}}
	m := newTestModel(provider)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = typeText(t, m, "dune")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, search.StateSearching, m.controller.State())
	assert.Contains(t, m.View(), "Searching...")

	m, _ = update(t, m, collectResult(t, cmd))

	assert.Equal(t, []string{"dune"}, provider.queries)
	assert.Equal(t, search.StateIdle, m.controller.State())

	items := m.resultsList.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "Dune", items[0].(bookItem).Title())
	assert.Equal(t, "Frank Herbert", items[0].(bookItem).Description())
	assert.Equal(t, "Unknown Author", items[1].(bookItem).Description())
	assert.Equal(t, "Terry Pratchett, Neil Gaiman", items[2].(bookItem).Description())

	view := m.View()
	assert.Contains(t, view, "Dune")
	assert.Contains(t, view, "Frank Herbert")
}

func TestFailedSearchKeepsResultsAndShowsWarning(t *testing.T) {
	provider := &stubProvider{results: books.SearchResult{{ID: "1", Title: "Dune"}}}
	m := newTestModel(provider)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = typeText(t, m, "dune")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, collectResult(t, cmd))

	provider.err = &books.RequestError{Kind: books.KindTransport, Err: errors.New("connection refused")}
	provider.results = nil
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, collectResult(t, cmd))

	require.Len(t, m.controller.Results(), 1)
	assert.Len(t, m.resultsList.Items(), 1)
	assert.Contains(t, m.View(), "Search failed")
}

func TestEmptyResultsShowMessage(t *testing.T) {
	m := newTestModel(&stubProvider{results: books.SearchResult{}})
	m = typeText(t, m, "zzzz")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, collectResult(t, cmd))

	assert.Contains(t, m.View(), "No books found.")
}

func TestStaleResultIsIgnored(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m, _ = update(t, m, search.ResultMsg{ID: "stale", Results: books.SearchResult{{ID: "1", Title: "Ghost"}}})

	assert.Empty(t, m.controller.Results())
	assert.Empty(t, m.resultsList.Items())
}

func TestTabMovesFocusAndResultsKeys(t *testing.T) {
	m := newTestModel(&stubProvider{})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusResults, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Equal(t, stateAbout, m.state)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateSearch, m.state)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, stateSettings, m.state)
}

func TestStartupErrorOpensSettings(t *testing.T) {
	m := NewModel(Options{Config: config.DefaultConfig(), StartupErr: config.ErrMissingAPIKey})

	assert.Equal(t, stateSettings, m.state)
	assert.Contains(t, m.View(), config.ErrMissingAPIKey.Error())
}

func TestSaveSettingsRebuildsProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	rebuilt := &stubProvider{results: books.SearchResult{{ID: "9", Title: "Rebuilt"}}}
	var built config.Config

	m := NewModel(Options{
		Config:     config.DefaultConfig(),
		ConfigPath: path,
		BuildDeps: func(cfg config.Config) (Dependencies, error) {
			built = cfg
			return Dependencies{Provider: rebuilt}, nil
		},
		StartupErr: config.ErrMissingAPIKey,
	})
	m.supportsGraphics = false

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("my-key")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, stateSearch, m.state)
	assert.Equal(t, "my-key", built.GoogleBooks.APIKey)

	saved, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-key", saved.GoogleBooks.APIKey)

	m = typeText(t, m, "anything")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, collectResult(t, cmd))
	assert.Equal(t, []string{"anything"}, rebuilt.queries)
	assert.Equal(t, "Rebuilt", m.controller.Results()[0].Title)
}

func TestBuildConfigFromSettings(t *testing.T) {
	settings := newSettingsModel(config.DefaultConfig())

	_, err := buildConfigFromSettings(config.DefaultConfig(), settings.inputs)
	assert.Error(t, err, "api key is required")

	settings.inputs[settingsAPIKey].SetValue("k")
	settings.inputs[settingsBaseURL].SetValue("http://localhost:8080/books/v1/")
	settings.inputs[settingsRateLimit].SetValue("2.5")
	cfg, err := buildConfigFromSettings(config.DefaultConfig(), settings.inputs)
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.GoogleBooks.APIKey)
	assert.Equal(t, "http://localhost:8080/books/v1", cfg.GoogleBooks.BaseURL)
	assert.Equal(t, 2.5, cfg.GoogleBooks.RateLimit)

	for _, rate := range []string{"-1", "NaN", "nan"} {
		settings.inputs[settingsRateLimit].SetValue(rate)
		_, err = buildConfigFromSettings(config.DefaultConfig(), settings.inputs)
		assert.Error(t, err, rate)
	}
}

func TestUpdateSettingsFocusWraps(t *testing.T) {
	assert.Equal(t, 1, updateSettingsFocus("tab", 0, 3))
	assert.Equal(t, 0, updateSettingsFocus("tab", 2, 3))
	assert.Equal(t, 2, updateSettingsFocus("shift+tab", 0, 3))
}

func TestLogWriterSplitsLines(t *testing.T) {
	channel := make(chan logMsg, 4)
	writer := logWriter{channel: channel}

	n, err := writer.Write([]byte("first\n\n second \n"))
	require.NoError(t, err)
	assert.Equal(t, len("first\n\n second \n"), n)

	assert.Equal(t, logMsg("first"), <-channel)
	assert.Equal(t, logMsg("second"), <-channel)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 3))
}

func TestDetailPanelWithoutThumbnail(t *testing.T) {
	m := newTestModel(&stubProvider{})
	panel := m.detailPanel(books.BookRecord{Title: "Dune", Description: "Spice."}, 40)

	assert.Contains(t, panel, "Dune")
	assert.Contains(t, panel, "Unknown Author")
	assert.Contains(t, panel, "No cover available.")
	assert.Contains(t, panel, "Spice.")
}
