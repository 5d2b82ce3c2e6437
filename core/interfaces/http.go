// ABOUTME: Transport contract used by the fetcher to download remote assets
// ABOUTME: Responses expose the body as a stream so progress can be observed

package interfaces

import (
	"context"
	"io"
)

// HTTPClient downloads remote asset locations.
// Implementations decide retries and connection limits; the fetcher owns
// cache-busting and the inactivity timeout.
type HTTPClient interface {
	// Get requests url. A non-2xx status is returned as a Response, not an error.
	// Cancelling ctx must abort an in-progress body read.
	Get(ctx context.Context, url string) (Response, error)
}

// Response is a streamed HTTP response
type Response interface {
	// StatusCode returns the HTTP status code
	StatusCode() int

	// Body streams the payload; the caller closes it
	Body() io.ReadCloser

	// Header returns the named header, or "" when absent
	Header(key string) string
}
