package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/ad-asset-client/pkg/cache"
	"github.com/Sternrassler/ad-asset-client/pkg/prefetch"
	"github.com/Sternrassler/ad-asset-client/pkg/tracking"
)

func setupTestAgent(t *testing.T) (*agent, string) {
	t.Helper()

	base := t.TempDir()
	store, err := cache.NewStore(base, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	return &agent{
		store:      store,
		janitor:    cache.NewJanitor(store, 7, zerolog.Nop()),
		checker:    cache.NewAvailabilityChecker(store, zerolog.Nop()),
		downloader: prefetch.NewDownloader(prefetch.HTTPFetcher{}, store, tracking.NopSink{}, prefetch.DefaultConfig(), zerolog.Nop()),
		logger:     zerolog.Nop(),
	}, base
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	a, _ := setupTestAgent(t)

	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCacheInfoEndpoint(t *testing.T) {
	a, _ := setupTestAgent(t)
	if err := a.store.Write(cache.NamespaceImage, "a.png", []byte("12345")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, httptest.NewRequest("GET", "/cache/info", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var info map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if string(info[cache.FolderSizeKey]) != "5" {
		t.Errorf("%s = %s, want 5", cache.FolderSizeKey, info[cache.FolderSizeKey])
	}
	if !strings.Contains(string(info["images"]), `"size":5`) {
		t.Errorf("images = %s, want size 5", info["images"])
	}
}

func TestSweepEndpoint(t *testing.T) {
	a, base := setupTestAgent(t)
	sentinel := filepath.Join(base, cache.RootDirName, cache.LegacySentinel)
	if err := os.WriteFile(sentinel, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("post runs sweep", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.routes().ServeHTTP(w, httptest.NewRequest("POST", "/cache/sweep", nil))

		var got sweepResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		if !got.SentinelRemoved {
			t.Errorf("SentinelRemoved = false, want true")
		}
		if _, err := os.Stat(sentinel); !os.IsNotExist(err) {
			t.Errorf("sentinel still present: %v", err)
		}
	})

	t.Run("get returns last report", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.routes().ServeHTTP(w, httptest.NewRequest("GET", "/cache/sweep", nil))

		var got sweepResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		if !got.SentinelRemoved {
			t.Errorf("last report SentinelRemoved = false, want true from previous POST")
		}
	})

	t.Run("other methods rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.routes().ServeHTTP(w, httptest.NewRequest("DELETE", "/cache/sweep", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})
}

func TestPrefetchEndpoint(t *testing.T) {
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/logo.png" {
			_, _ = w.Write([]byte("logo"))
			return
		}
		http.NotFound(w, r)
	}))
	defer assets.Close()

	a, _ := setupTestAgent(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReady  bool
	}{
		{
			name:       "all assets cached",
			body:       `{"ad_id":"ad-1","assets":{"logo":{"url":"` + assets.URL + `/img/logo.png","namespace":"images"}}}`,
			wantStatus: http.StatusOK,
			wantReady:  true,
		},
		{
			name:       "missing asset",
			body:       `{"ad_id":"ad-2","assets":{"video":{"url":"` + assets.URL + `/vid/none.mp4","namespace":"videos"}}}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "invalid unit",
			body:       `{"assets":{"x":{"url":"https://x/a.png","namespace":"downloads"}}}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "not json",
			body:       `{{{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.routes().ServeHTTP(w, httptest.NewRequest("POST", "/cache/prefetch", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK && tt.wantStatus != http.StatusBadGateway {
				return
			}

			var got prefetchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if got.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", got.Ready, tt.wantReady)
			}
			if !tt.wantReady && len(got.Errors) == 0 {
				t.Error("Errors empty for failed prefetch")
			}
		})
	}

	if !a.store.Exists(cache.NamespaceImage, "logo.png") {
		t.Error("logo.png not cached")
	}
}

func TestEventsEndpoint_NotConfigured(t *testing.T) {
	a, _ := setupTestAgent(t)

	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, httptest.NewRequest("GET", "/events", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a, _ := setupTestAgent(t)

	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	// Unlabelled cache counters are exported from the start.
	if !strings.Contains(body, "adcache_") {
		t.Error("Expected metrics output to contain adcache_ metrics")
	}
}
