package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RelayEngine retrieves pages through a remote HTML relay that exposes
// GET <base>/api/fetch?url=<target>. The relay answers with the page HTML
// on success and mirrors the upstream status code otherwise.
type RelayEngine struct {
	base    string
	client  *http.Client
	maxBody int64
}

// NewRelayEngine creates a RelayEngine for the relay at baseURL. A nil
// client selects http.DefaultClient.
func NewRelayEngine(baseURL string, client *http.Client, maxBody int64) *RelayEngine {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &RelayEngine{
		base:    strings.TrimRight(baseURL, "/"),
		client:  client,
		maxBody: maxBody,
	}
}

func (e *RelayEngine) Name() string { return "relay" }

func (e *RelayEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	relayURL := e.base + "/api/fetch?url=" + url.QueryEscape(req.URL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("relay_engine: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay_engine: could not reach relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
	if err != nil {
		return nil, fmt.Errorf("relay_engine: read body: %w", err)
	}

	return &FetchResult{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   req.URL,
		EngineName: e.Name(),
	}, nil
}
