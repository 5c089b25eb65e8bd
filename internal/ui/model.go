package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/config"
	"github.com/ssh-vom/bookbinder/internal/cover"
	"github.com/ssh-vom/bookbinder/internal/metrics"
	"github.com/ssh-vom/bookbinder/internal/search"
)

type appState int

const (
	stateSearch appState = iota
	stateSettings
	stateAbout
)

type focusArea int

const (
	focusQuery focusArea = iota
	focusResults
)

type bookItem struct {
	record books.BookRecord
}

func (item bookItem) Title() string       { return item.record.Title }
func (item bookItem) Description() string { return item.record.AuthorLine() }
func (item bookItem) FilterValue() string { return item.record.Title }

type logMsg string

type model struct {
	state appState
	focus focusArea

	config     config.Config
	configPath string
	controller *search.Controller
	thumbnails books.ThumbnailFetcher
	buildDeps  BuildDependencies
	logger     *logrus.Logger

	textInput   textinput.Model
	resultsList list.Model
	spinner     spinner.Model
	searched    bool

	thumbnailCache      map[string]cover.Image
	thumbnailErrors     map[string]string
	thumbnailLoadingURL string
	supportsGraphics    bool

	settings    settingsModel
	returnState appState
	infoMessage string

	width  int
	height int

	logChannel chan logMsg
	logLines   []string
	verbose    bool
}

type Dependencies struct {
	Provider   books.Provider
	Thumbnails books.ThumbnailFetcher
}

type BuildDependencies func(cfg config.Config) (Dependencies, error)

type Options struct {
	Config     config.Config
	ConfigPath string
	Deps       Dependencies
	BuildDeps  BuildDependencies
	Logger     *logrus.Logger
	Recorder   *metrics.Recorder
	StartupErr error
}

func NewModel(options Options) model {
	spinnerModel := spinner.New()
	spinnerModel.Spinner = spinner.Dot

	model := model{
		state:            stateSearch,
		focus:            focusQuery,
		config:           options.Config,
		configPath:       options.ConfigPath,
		controller:       search.NewController(options.Deps.Provider, options.Logger, options.Recorder),
		thumbnails:       options.Deps.Thumbnails,
		buildDeps:        options.BuildDeps,
		logger:           options.Logger,
		textInput:        newQueryInput(),
		resultsList:      newResultsList(nil, 0, 0),
		spinner:          spinnerModel,
		thumbnailCache:   map[string]cover.Image{},
		thumbnailErrors:  map[string]string{},
		supportsGraphics: cover.SupportsGraphics(os.Getenv("TERM")),
		verbose:          options.Config.Verbose,
	}

	if options.StartupErr != nil {
		model.settings = newSettingsModel(options.Config)
		model.settings.errorText = options.StartupErr.Error()
		model.returnState = stateSearch
		model.state = stateSettings
	}

	if model.verbose && model.logger != nil {
		model.logChannel = make(chan logMsg, 200)
		model.logger.SetOutput(logWriter{channel: model.logChannel})
	}

	return model
}

func (model model) Init() tea.Cmd {
	commands := []tea.Cmd{textinput.Blink}
	if model.verbose && model.logChannel != nil {
		commands = append(commands, listenLogCmd(model.logChannel))
	}
	return tea.Batch(commands...)
}

func (model model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.height = msg.Height
		model.resultsList.SetSize(resultsListWidth(msg.Width), listHeight(msg.Height))
		model.textInput.Width = max(msg.Width-6, 10)
		return model, nil
	case search.ResultMsg:
		if !model.controller.Handle(msg) {
			return model, nil
		}
		if msg.Err != nil {
			return model, nil
		}
		model.searched = true
		model.infoMessage = ""
		model.resultsList = newResultsList(model.controller.Results(), resultsListWidth(model.width), listHeight(model.height))
		return model, model.requestThumbnailCmd()
	case thumbnailLoadedMsg:
		if msg.err != nil {
			model.thumbnailErrors[msg.url] = msg.err.Error()
		} else if msg.image.FilePath != "" {
			model.thumbnailCache[msg.url] = msg.image
		}
		if model.thumbnailLoadingURL == msg.url {
			model.thumbnailLoadingURL = ""
		}
		return model, model.requestThumbnailCmd()
	case spinner.TickMsg:
		if model.controller.State() != search.StateSearching {
			return model, nil
		}
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(msg)
		return model, cmd
	case logMsg:
		if model.verbose {
			model.logLines = append(model.logLines, string(msg))
			if len(model.logLines) > 6 {
				model.logLines = model.logLines[len(model.logLines)-6:]
			}
			return model, listenLogCmd(model.logChannel)
		}
		return model, nil
	}

	switch model.state {
	case stateSettings:
		return model, model.updateSettings(msg)
	case stateAbout:
		return model, model.updateAbout(msg)
	default:
		return model, model.updateSearch(msg)
	}
}

func (model *model) updateSearch(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok {
		switch key.String() {
		case "ctrl+c":
			model.controller.Close()
			return tea.Quit
		case "tab", "shift+tab":
			model.toggleFocus()
			return nil
		case "ctrl+s":
			model.openSettings()
			return nil
		}
	}

	if model.focus == focusResults {
		return model.updateResults(msg)
	}

	if ok && key.String() == "enter" {
		return model.submit()
	}
	if ok {
		model.infoMessage = ""
	}

	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(msg)
	model.controller.SetQuery(model.textInput.Value())
	return cmd
}

func (model *model) submit() tea.Cmd {
	model.controller.SetQuery(model.textInput.Value())
	searchCmd := model.controller.Submit()
	if searchCmd == nil {
		model.infoMessage = "Search query cannot be empty"
		return nil
	}
	model.infoMessage = ""
	return tea.Batch(searchCmd, model.spinner.Tick)
}

func (model *model) updateResults(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q":
			model.controller.Close()
			return tea.Quit
		case "s":
			model.openSettings()
			return nil
		case "?":
			model.state = stateAbout
			return nil
		case "/", "esc":
			model.toggleFocus()
			return nil
		}
	}

	var cmd tea.Cmd
	model.resultsList, cmd = model.resultsList.Update(msg)
	return tea.Batch(cmd, model.requestThumbnailCmd())
}

func (model *model) updateAbout(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok && (key.String() == "esc" || key.String() == "q" || key.String() == "?") {
		model.state = stateSearch
	}
	return nil
}

func (model *model) toggleFocus() {
	if model.focus == focusQuery {
		model.focus = focusResults
		model.textInput.Blur()
		return
	}
	model.focus = focusQuery
	model.textInput.Focus()
}

func (model *model) openSettings() {
	model.settings = newSettingsModel(model.config)
	model.returnState = stateSearch
	model.state = stateSettings
}

func (model model) View() string {
	view := ""

	switch model.state {
	case stateSettings:
		view = model.settingsView()
	case stateAbout:
		view = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("About"),
			"Search Google Books from the terminal.",
			"Type a query and press enter. Tab moves between the query and the results.",
			secondaryStyle.Render("Press esc to go back"),
		)
	default:
		view = model.searchView()
	}

	if model.verbose {
		view = lipgloss.JoinVertical(lipgloss.Left, view, model.logView())
	}

	return view
}

func (model model) searchView() string {
	queryLine := model.textInput.View()
	if model.controller.State() == search.StateSearching {
		queryLine = lipgloss.JoinHorizontal(lipgloss.Top, queryLine, "  ", model.spinner.View()+" Searching...")
	}

	lines := []string{titleStyle.Render("Search Books"), queryLine}
	if model.infoMessage != "" {
		lines = append(lines, warningStyle.Render(model.infoMessage))
	}
	if err := model.controller.Err(); err != nil {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("Search failed: %v", err)))
	}

	lines = append(lines, model.resultsView())

	help := "enter search · tab results · ctrl+s settings · ctrl+c quit"
	if model.focus == focusResults {
		help = "↑/↓ move · tab query · s settings · ? about · q quit"
	}
	lines = append(lines, secondaryStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (model model) resultsView() string {
	if len(model.controller.Results()) == 0 {
		if model.searched {
			return secondaryStyle.Render("No books found.")
		}
		return ""
	}

	listView := lipgloss.NewStyle().Width(resultsListWidth(model.width)).Render(model.resultsList.View())

	selected := books.BookRecord{}
	if item, ok := model.resultsList.SelectedItem().(bookItem); ok {
		selected = item.record
	}
	panel := model.detailPanel(selected, detailPanelWidth(model.width))

	if model.width < 80 {
		return lipgloss.JoinVertical(lipgloss.Left, listView, panel)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, listView, panel)
}

func (model model) logView() string {
	if len(model.logLines) == 0 {
		return secondaryStyle.Render("Logs: (no entries)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		secondaryStyle.Render("Logs:"),
		strings.Join(model.logLines, "\n"),
	)
}

func newQueryInput() textinput.Model {
	input := textinput.New()
	input.Placeholder = "e.g. Dune"
	input.Prompt = "> "
	input.Focus()
	return input
}

func newResultsList(results books.SearchResult, width, height int) list.Model {
	items := make([]list.Item, 0, len(results))
	for _, record := range results {
		items = append(items, bookItem{record: record})
	}

	resultList := list.New(items, list.NewDefaultDelegate(), width, height)
	resultList.Title = "Results"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(false)
	resultList.SetShowHelp(false)

	return resultList
}

func listHeight(height int) int {
	if height <= 12 {
		return height
	}

	return height - 10
}

func detailPanelWidth(totalWidth int) int {
	if totalWidth < 80 {
		return max(totalWidth-4, 20)
	}

	return max(totalWidth/3, 28)
}

func resultsListWidth(totalWidth int) int {
	if totalWidth < 80 {
		return max(totalWidth-4, 20)
	}

	return max(totalWidth-detailPanelWidth(totalWidth)-2, 20)
}

func listenLogCmd(ch <-chan logMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

type logWriter struct {
	channel chan<- logMsg
}

func (writer logWriter) Write(data []byte) (int, error) {
	message := strings.TrimSpace(string(data))
	if message == "" {
		return len(data), nil
	}

	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case writer.channel <- logMsg(line):
		default:
		}
	}

	return len(data), nil
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	secondaryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	focusedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	panelStyle      = lipgloss.NewStyle().Padding(0, 1)
)
