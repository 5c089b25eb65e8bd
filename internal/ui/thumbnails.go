package ui

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/cover"
)

const (
	cellAspectRatio      = 0.5
	maxDescriptionLength = 600
)

type thumbnailLoadedMsg struct {
	url   string
	image cover.Image
	err   error
}

func fetchThumbnailCmd(fetcher books.ThumbnailFetcher, thumbnailURL string) tea.Cmd {
	return func() tea.Msg {
		if fetcher == nil {
			return thumbnailLoadedMsg{url: thumbnailURL, err: errors.New("thumbnail source unavailable")}
		}

		cached, ok, err := cover.LoadCached(thumbnailURL)
		if err != nil {
			return thumbnailLoadedMsg{url: thumbnailURL, err: err}
		}
		if ok {
			return thumbnailLoadedMsg{url: thumbnailURL, image: cached}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		body, err := fetcher.FetchThumbnail(ctx, thumbnailURL)
		if err != nil {
			return thumbnailLoadedMsg{url: thumbnailURL, err: err}
		}

		image, err := cover.Save(thumbnailURL, body)
		if err != nil {
			return thumbnailLoadedMsg{url: thumbnailURL, err: err}
		}

		return thumbnailLoadedMsg{url: thumbnailURL, image: image}
	}
}

// requestThumbnailCmd loads the selected book's thumbnail unless it is
// cached, already loading, or known to fail.
func (model *model) requestThumbnailCmd() tea.Cmd {
	if !model.supportsGraphics || model.thumbnails == nil {
		return nil
	}
	if model.thumbnailLoadingURL != "" {
		return nil
	}

	thumbnailURL := model.selectedThumbnailURL()
	if thumbnailURL == "" {
		return nil
	}
	if _, ok := model.thumbnailCache[thumbnailURL]; ok {
		return nil
	}
	if _, ok := model.thumbnailErrors[thumbnailURL]; ok {
		return nil
	}

	model.thumbnailLoadingURL = thumbnailURL
	return fetchThumbnailCmd(model.thumbnails, thumbnailURL)
}

func (model *model) selectedThumbnailURL() string {
	if item, ok := model.resultsList.SelectedItem().(bookItem); ok {
		return item.record.ThumbnailURL
	}
	return ""
}

func (model model) detailPanel(record books.BookRecord, width int) string {
	if width < 20 {
		width = 20
	}

	if record.Title == "" {
		return panelStyle.Width(width).Render(secondaryStyle.Render("Select a book to preview."))
	}

	lines := []string{
		panelTitleStyle.Render(record.Title),
		record.AuthorLine(),
		"",
	}

	lines = append(lines, model.thumbnailLines(record, width)...)

	if record.Description != "" {
		lines = append(lines, "", truncate(record.Description, maxDescriptionLength))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model model) thumbnailLines(record books.BookRecord, width int) []string {
	if !record.HasThumbnail() {
		return []string{secondaryStyle.Render("No cover available.")}
	}
	if !model.supportsGraphics {
		return nil
	}

	image, ok := model.thumbnailCache[record.ThumbnailURL]
	if !ok {
		if model.thumbnailLoadingURL == record.ThumbnailURL {
			cols, rows := thumbnailRenderSize(width, 0, 0)
			return []string{secondaryStyle.Render("Loading cover..."), placeholder(rows, cols)}
		}
		if errText, failed := model.thumbnailErrors[record.ThumbnailURL]; failed {
			return []string{warningStyle.Render(errText)}
		}
		return []string{secondaryStyle.Render("Cover available.")}
	}

	cols, rows := thumbnailRenderSize(width, image.Width, image.Height)
	render, err := cover.RenderKittyImageFromFile(image.FilePath, cols, rows)
	if err != nil {
		return []string{warningStyle.Render(err.Error())}
	}

	return []string{render + "\n" + placeholder(rows, cols)}
}

func thumbnailRenderSize(panelWidth int, imageWidth, imageHeight int) (int, int) {
	cols := min(panelWidth-2, 24)
	if cols < 8 {
		cols = 8
	}

	rows := 8
	if imageWidth > 0 && imageHeight > 0 {
		ratio := float64(imageHeight) / float64(imageWidth)
		rows = int(math.Round(float64(cols) * ratio * cellAspectRatio))
	}

	return cols, min(max(rows, 4), 16)
}

func placeholder(rows, cols int) string {
	if rows <= 0 || cols <= 0 {
		return ""
	}

	line := strings.Repeat(" ", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
