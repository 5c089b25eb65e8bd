package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/ssh-vom/bookbinder/internal/books"
	"github.com/ssh-vom/bookbinder/internal/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	userAgent      = "bookbinder/0.1"
	maxErrorBody   = 512
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

type Option func(*Client)

// WithRateLimit caps outgoing searches per second. Zero or less disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(client *Client) {
		if perSecond <= 0 {
			client.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		client.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

func New(httpClient *http.Client, baseURL, apiKey string, options ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     logging.Discard(),
	}
	for _, option := range options {
		option(client)
	}

	return client
}

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title       *string     `json:"title"`
	Authors     []string    `json:"authors"`
	ImageLinks  *imageLinks `json:"imageLinks"`
	Description string      `json:"description"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// Search runs one volumes lookup. The query is sent as given, even when empty.
// Records keep the response order. An item without a title fails the whole
// search with a parse error.
func (client *Client) Search(ctx context.Context, query string) (books.SearchResult, error) {
	entry := logging.For(ctx, client.logger).WithField("query", query)

	if err := client.limiter.Wait(ctx); err != nil {
		return nil, &books.RequestError{Kind: books.KindTransport, Err: fmt.Errorf("waiting for rate limiter: %w", err)}
	}

	searchURL, err := url.Parse(client.baseURL + "/volumes")
	if err != nil {
		return nil, &books.RequestError{Kind: books.KindTransport, Err: fmt.Errorf("error parsing search URL: %w", err)}
	}

	q := searchURL.Query()
	q.Set("q", query)
	q.Set("key", client.apiKey)
	searchURL.RawQuery = q.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, &books.RequestError{Kind: books.KindTransport, Err: fmt.Errorf("error building search request: %w", err)}
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", userAgent)

	entry.Debug("sending volumes request")
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &books.RequestError{Kind: books.KindTransport, Err: fmt.Errorf("error making search request: %w", err)}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		entry.WithField("status", response.StatusCode).Debugf("volumes request rejected: %s", strings.TrimSpace(string(body)))
		return nil, &books.RequestError{
			Kind:       books.KindResponse,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("search request failed: %s", response.Status),
		}
	}

	var result volumesResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, &books.RequestError{Kind: books.KindParse, Err: fmt.Errorf("error parsing search response: %w", err)}
	}

	records := make(books.SearchResult, 0, len(result.Items))
	for index, item := range result.Items {
		if item.VolumeInfo.Title == nil {
			return nil, &books.RequestError{
				Kind: books.KindParse,
				Err:  fmt.Errorf("error parsing search response: item %d (id %q) has no title", index, item.ID),
			}
		}
		records = append(records, toRecord(item))
	}

	entry.WithField("results", len(records)).Debug("volumes request finished")
	return records, nil
}

func (client *Client) FetchThumbnail(ctx context.Context, thumbnailURL string) ([]byte, error) {
	if strings.TrimSpace(thumbnailURL) == "" {
		return nil, fmt.Errorf("thumbnail url missing")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building thumbnail request: %w", err)
	}
	request.Header.Set("User-Agent", userAgent)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error fetching thumbnail: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail request failed: %s", response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading thumbnail: %w", err)
	}

	return body, nil
}

func toRecord(item volumeItem) books.BookRecord {
	record := books.BookRecord{
		ID:          item.ID,
		Title:       *item.VolumeInfo.Title,
		Authors:     item.VolumeInfo.Authors,
		Description: plainText(item.VolumeInfo.Description),
	}
	if item.VolumeInfo.ImageLinks != nil {
		record.ThumbnailURL = item.VolumeInfo.ImageLinks.SmallThumbnail
	}
	return record
}

// plainText drops markup the API embeds in some descriptions.
func plainText(description string) string {
	if !strings.ContainsAny(description, "<&") {
		return strings.TrimSpace(description)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return strings.TrimSpace(description)
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p").AppendHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}

var (
	_ books.Provider         = (*Client)(nil)
	_ books.ThumbnailFetcher = (*Client)(nil)
)
