package books

import "context"

type Provider interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

type ThumbnailFetcher interface {
	FetchThumbnail(ctx context.Context, thumbnailURL string) ([]byte, error)
}
