package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/prodex/config"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{Timeout: 5 * time.Second, MaxBodyBytes: 1 << 20}
}

func TestHTTPEngine_Success(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><title>ok</title></html>")
	}))
	defer srv.Close()

	res, err := NewHTTPEngine(testFetchConfig()).Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/old"})
	require.NoError(t, err)

	assert.Equal(t, "<html><title>ok</title></html>", res.HTML)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/new", res.FinalURL)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, config.DefaultUserAgent, gotUA)
	assert.Equal(t, "en-US,en;q=0.9", gotLang)
}

func TestHTTPEngine_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPEngine(testFetchConfig()).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestHTTPEngine_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxBodyBytes = 100
	res, err := NewHTTPEngine(cfg).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, res.HTML, 100)
}

func TestHTTPEngine_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPEngine(testFetchConfig()).Fetch(ctx, &FetchRequest{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, StatusOf(err))
}

func TestRelayEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fetch", r.URL.Path)
		switch target := r.URL.Query().Get("url"); target {
		case "https://shop.example.com/p?id=1&c=red":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html>relayed</html>")
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Upstream returned 404"}`)
		}
	}))
	defer srv.Close()

	eng := NewRelayEngine(srv.URL+"/", srv.Client(), 0)

	res, err := eng.Fetch(context.Background(), &FetchRequest{URL: "https://shop.example.com/p?id=1&c=red"})
	require.NoError(t, err)
	assert.Equal(t, "<html>relayed</html>", res.HTML)
	assert.Equal(t, "relay", res.EngineName)

	_, err = eng.Fetch(context.Background(), &FetchRequest{URL: "https://shop.example.com/gone"})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestRelayEngine_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewRelayEngine(base, nil, 0).Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Zero(t, StatusOf(err))
}

func TestBlockedTypes(t *testing.T) {
	set := blockedTypes([]string{"Image", "Script", "Bogus", "Font"})
	assert.Len(t, set, 2)
}
