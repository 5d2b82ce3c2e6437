package fetcher

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	assetErrors "filter-assets/core/errors"
	"filter-assets/core/interfaces"
	utiltime "filter-assets/pkg/utils/time"
)

func pinnedClock(ms int64) utiltime.Clock {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestCacheBust(t *testing.T) {
	tests := []struct {
		name string
		url  string
		now  int64
		want string
	}{
		{"no query", "https://example.com/list.txt", 7200000 * 3, "https://example.com/list.txt?_=3"},
		{"existing query", "https://example.com/list.txt?v=1", 7200000*3 + 5, "https://example.com/list.txt?v=1&_=3"},
		{"first bucket", "https://example.com/a", 7199999, "https://example.com/a?_=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheBust(tt.url, tt.now); got != tt.want {
				t.Errorf("CacheBust() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchText_Remote(t *testing.T) {
	var requested string
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			requested = url
			return &mockResponse{statusCode: 200, body: "! Title: List\n||ads.example^"}, nil
		},
	}
	f := New(client, nil, nil, WithClock(pinnedClock(7200000*10)))

	res, err := f.FetchText(context.Background(), "https://example.com/list.txt")
	if err != nil {
		t.Fatalf("FetchText() error = %v", err)
	}
	if requested != "https://example.com/list.txt?_=10" {
		t.Errorf("requested %q", requested)
	}
	if res.URL != "https://example.com/list.txt" {
		t.Errorf("Result.URL = %q, want URL without cache buster", res.URL)
	}
	if res.Content != "! Title: List\n||ads.example^" {
		t.Errorf("Result.Content = %q", res.Content)
	}
}

func TestFetchText_RemoteErrors(t *testing.T) {
	tests := []struct {
		name      string
		resp      *mockResponse
		err       error
		check     func(error) bool
		wantWarns bool
	}{
		{
			name:  "server error status",
			resp:  &mockResponse{statusCode: 503, body: "busy"},
			check: assetErrors.IsNetwork,
		},
		{
			name:  "not found status",
			resp:  &mockResponse{statusCode: 404, body: "nope"},
			check: assetErrors.IsNetwork,
		},
		{
			name:      "transport failure",
			err:       errors.New("connection refused"),
			check:     assetErrors.IsNetwork,
			wantWarns: true,
		},
		{
			name:  "empty body",
			resp:  &mockResponse{statusCode: 200, body: ""},
			check: assetErrors.IsInvalidContent,
		},
		{
			name:  "html error page",
			resp:  &mockResponse{statusCode: 200, body: "<html><title>Captive portal</title></html>\n"},
			check: assetErrors.IsInvalidContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			client := &mockHTTPClient{
				getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return tt.resp, nil
				},
			}
			f := New(client, nil, logger)

			res, err := f.FetchText(context.Background(), "https://example.com/list.txt")
			if err == nil {
				t.Fatal("FetchText() expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
			if res.Content != "" {
				t.Errorf("Result.Content = %q, want empty", res.Content)
			}
			if tt.wantWarns && logger.warnCount() == 0 {
				t.Error("transport failure should be logged")
			}
		})
	}
}

func TestFetchText_HTMLTitleInError(t *testing.T) {
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return &mockResponse{statusCode: 200, body: "<html><head><title>Access Denied</title></head></html>"}, nil
		},
	}
	f := New(client, nil, nil)

	_, err := f.FetchText(context.Background(), "https://example.com/list.txt")
	if err == nil || !assetErrors.IsInvalidContent(err) {
		t.Fatalf("FetchText() error = %v, want invalid content", err)
	}
	if got := err.Error(); got != `invalid content from https://example.com/list.txt: html document "Access Denied"` {
		t.Errorf("error = %q", got)
	}
}

func TestFetchText_InactivityTimeout(t *testing.T) {
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return &mockResponse{statusCode: 200, reader: &stallingReader{ctx: ctx}}, nil
		},
	}
	logger := &recordingLogger{}
	f := New(client, nil, logger, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := f.FetchText(context.Background(), "https://example.com/slow.txt")
	if err == nil {
		t.Fatal("FetchText() expected timeout error")
	}
	if !assetErrors.IsTimeout(err) {
		t.Errorf("error = %v, want inactivity timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
	if logger.warnCount() == 0 {
		t.Error("timeout should be logged")
	}
}

func TestFetchText_CallerCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockHTTPClient{
		getFunc: func(reqCtx context.Context, url string) (interfaces.Response, error) {
			cancel()
			return nil, reqCtx.Err()
		},
	}
	f := New(client, nil, nil)

	_, err := f.FetchText(ctx, "https://example.com/list.txt")
	if !assetErrors.IsNetwork(err) {
		t.Fatalf("error = %v, want network error", err)
	}
	if assetErrors.IsTimeout(err) {
		t.Error("caller cancellation reported as inactivity timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got %v", err)
	}
}

func TestFetchText_Local(t *testing.T) {
	local := fstest.MapFS{
		"assets/ublock/filters.txt": {Data: []byte("||tracker.example^")},
		"assets/empty.txt":          {Data: []byte{}},
	}
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			t.Errorf("local fetch issued http request for %s", url)
			return nil, errors.New("unexpected")
		},
	}
	f := New(client, local, nil)

	res, err := f.FetchText(context.Background(), "/assets/ublock/filters.txt")
	if err != nil {
		t.Fatalf("FetchText() error = %v", err)
	}
	if res.Content != "||tracker.example^" || res.URL != "/assets/ublock/filters.txt" {
		t.Errorf("Result = %+v", res)
	}

	if _, err := f.FetchText(context.Background(), "assets/missing.txt"); !assetErrors.IsNotFound(err) {
		t.Errorf("missing file error = %v, want not found", err)
	}
	if _, err := f.FetchText(context.Background(), "assets/empty.txt"); !assetErrors.IsInvalidContent(err) {
		t.Errorf("empty file error = %v, want invalid content", err)
	}
}

func TestFetchText_NoBackends(t *testing.T) {
	f := New(nil, nil, nil)

	if _, err := f.FetchText(context.Background(), "https://example.com/a"); !assetErrors.IsNetwork(err) {
		t.Errorf("remote without client error = %v", err)
	}
	if _, err := f.FetchText(context.Background(), "assets/a.txt"); !assetErrors.IsNotFound(err) {
		t.Errorf("local without fs error = %v", err)
	}
}
