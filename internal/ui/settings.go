package ui

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ssh-vom/bookbinder/internal/config"
	"github.com/ssh-vom/bookbinder/internal/cover"
)

const (
	settingsAPIKey = iota
	settingsBaseURL
	settingsRateLimit
	settingsCount
)

type settingsModel struct {
	inputs    []textinput.Model
	focus     int
	errorText string
	infoText  string
}

func (model *model) updateSettings(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if ok {
		model.settings.infoText = ""
		switch key.String() {
		case "ctrl+c":
			model.controller.Close()
			return tea.Quit
		case "esc":
			model.state = model.returnState
			return nil
		case "tab", "shift+tab", "up", "down":
			model.settings.focus = updateSettingsFocus(key.String(), model.settings.focus, len(model.settings.inputs))
			model.settings = applySettingsFocus(model.settings)
			return nil
		case "enter":
			return model.saveSettings()
		case "ctrl+x":
			if err := cover.ClearCache(); err != nil {
				model.settings.errorText = err.Error()
				return nil
			}
			model.thumbnailCache = map[string]cover.Image{}
			model.thumbnailErrors = map[string]string{}
			model.thumbnailLoadingURL = ""
			model.settings.errorText = ""
			model.settings.infoText = "Thumbnail cache cleared."
			return nil
		}
	}

	var cmd tea.Cmd
	current := &model.settings.inputs[model.settings.focus]
	*current, cmd = current.Update(msg)
	return cmd
}

func (model *model) saveSettings() tea.Cmd {
	updated, err := buildConfigFromSettings(model.config, model.settings.inputs)
	if err != nil {
		model.settings.errorText = err.Error()
		return nil
	}

	if err := config.Save(updated, model.configPath); err != nil {
		model.settings.errorText = err.Error()
		return nil
	}

	model.config = updated
	if model.buildDeps != nil {
		deps, err := model.buildDeps(updated)
		if err != nil {
			model.settings.errorText = err.Error()
			return nil
		}
		model.controller.SetProvider(deps.Provider)
		model.thumbnails = deps.Thumbnails
	}

	model.settings.errorText = ""
	model.state = stateSearch
	model.focus = focusQuery
	model.textInput.Focus()
	return nil
}

func (model model) settingsView() string {
	lines := []string{
		titleStyle.Render("Settings"),
		"Google Books connection.",
	}

	for _, input := range model.settings.inputs {
		lines = append(lines, input.View())
	}
	if model.settings.errorText != "" {
		lines = append(lines, warningStyle.Render(model.settings.errorText))
	}
	if model.settings.infoText != "" {
		lines = append(lines, secondaryStyle.Render(model.settings.infoText))
	}
	lines = append(lines, secondaryStyle.Render("ctrl+x clears the thumbnail cache"))
	lines = append(lines, secondaryStyle.Render("Enter to save · Esc to cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func updateSettingsFocus(direction string, focus, total int) int {
	if direction == "tab" || direction == "down" {
		focus++
	} else {
		focus--
	}
	if focus >= total {
		focus = 0
	} else if focus < 0 {
		focus = total - 1
	}
	return focus
}

func applySettingsFocus(settings settingsModel) settingsModel {
	for i := range settings.inputs {
		if i == settings.focus {
			settings.inputs[i].Focus()
			settings.inputs[i].PromptStyle = focusedStyle
			settings.inputs[i].TextStyle = focusedStyle
		} else {
			settings.inputs[i].Blur()
			settings.inputs[i].PromptStyle = blurStyle
			settings.inputs[i].TextStyle = blurStyle
		}
	}
	return settings
}

func newSettingsModel(cfg config.Config) settingsModel {
	inputs := make([]textinput.Model, settingsCount)

	keyInput := textinput.New()
	keyInput.Prompt = "API key: "
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.SetValue(cfg.GoogleBooks.APIKey)
	keyInput.CharLimit = 120

	urlInput := textinput.New()
	urlInput.Prompt = "Base URL: "
	urlInput.SetValue(cfg.GoogleBooks.BaseURL)
	urlInput.CharLimit = 200

	rateInput := textinput.New()
	rateInput.Prompt = "Requests/s (0 = unlimited): "
	if cfg.GoogleBooks.RateLimit > 0 {
		rateInput.SetValue(strconv.FormatFloat(cfg.GoogleBooks.RateLimit, 'f', -1, 64))
	}
	rateInput.CharLimit = 8

	inputs[settingsAPIKey] = keyInput
	inputs[settingsBaseURL] = urlInput
	inputs[settingsRateLimit] = rateInput

	return applySettingsFocus(settingsModel{inputs: inputs, focus: settingsAPIKey})
}

func buildConfigFromSettings(cfg config.Config, inputs []textinput.Model) (config.Config, error) {
	apiKey := strings.TrimSpace(inputs[settingsAPIKey].Value())
	baseURL := strings.TrimSpace(inputs[settingsBaseURL].Value())
	rateValue := strings.TrimSpace(inputs[settingsRateLimit].Value())

	if apiKey == "" {
		return cfg, errors.New("api key is required")
	}
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	normalized, err := config.NormalizeBaseURL(baseURL)
	if err != nil {
		return cfg, err
	}

	rateLimit := 0.0
	if rateValue != "" {
		rateLimit, err = strconv.ParseFloat(rateValue, 64)
		if err != nil || math.IsNaN(rateLimit) || rateLimit < 0 {
			return cfg, errors.New("requests per second must be a non-negative number")
		}
	}

	cfg.GoogleBooks.APIKey = apiKey
	cfg.GoogleBooks.BaseURL = normalized
	cfg.GoogleBooks.RateLimit = rateLimit

	return cfg, nil
}
