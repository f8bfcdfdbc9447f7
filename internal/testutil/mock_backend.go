// Package testutil provides a mock ad backend for tests.
package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Sternrassler/ad-asset-client/pkg/request"
)

// MockResponse defines the behavior for a mock backend endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock ad backend. Besides the API endpoints
// it serves static asset content registered with SetAsset.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	assets   map[string][]byte

	// Secret, when set, makes API requests with a wrong signature fail with 401.
	Secret string

	// Tracking
	RequestCount      int
	AssetRequestCount int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		assets:   make(map[string][]byte),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		asset, isAsset := mock.assets[r.URL.Path]
		if isAsset {
			mock.AssetRequestCount++
		} else {
			mock.RequestCount++
			mock.LastRequestHeader = r.Header.Clone()
			mock.LastRequestBody = body
		}
		secret := mock.Secret
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if isAsset {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(asset)
			return
		}

		if secret != "" && r.Header.Get(request.HeaderSignature) != request.Sign(r.Method, r.URL.Path, secret, body) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid signature"}`))
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Client returns an HTTP client for the mock server.
func (m *MockBackend) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AssetRequestCount = 0
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
}

// SetSecret enables signature verification.
func (m *MockBackend) SetSecret(secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Secret = secret
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// SetAsset serves data at path and returns the absolute asset URL.
func (m *MockBackend) SetAsset(path string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[path] = data
	return m.server.URL + path
}

// GetRequestCount returns the number of API requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAssetRequestCount returns the number of asset downloads.
func (m *MockBackend) GetAssetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AssetRequestCount
}

// GetLastRequest returns the headers and body of the last API request.
func (m *MockBackend) GetLastRequest() (http.Header, []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader, m.LastRequestBody
}

// defaultHandler answers with an embedded 404 "no ad" document.
func (m *MockBackend) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":404,"message":"No ad found"}`))
}

// AssetSpec describes one asset of a mock ad response.
type AssetSpec struct {
	URL       string `json:"url"`
	Namespace string `json:"namespace"`
	Filename  string `json:"filename,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
}

// NewAdResponse creates a 200 OK ad response with the given assets.
func NewAdResponse(adID string, assets map[string]AssetSpec) MockResponse {
	doc := map[string]any{
		"status":   200,
		"message":  "success",
		"ad_id":    adID,
		"template": "tpl-" + adID,
		"assets":   assets,
	}
	raw, _ := json.Marshal(doc)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(raw),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNoAdResponse creates a 200 response whose embedded status is 404.
func NewNoAdResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"status":404,"message":"No ad found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewGarbageResponse creates a 200 response whose body is not JSON.
func NewGarbageResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>maintenance</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

// SHA1Hex returns the lowercase hex SHA-1 of data, as used for asset checksums.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
