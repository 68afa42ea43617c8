package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRESTGenerator(t *testing.T) {
	g := NewRESTGenerator(RESTConfig{BaseURL: "https://example.test/", APIKey: "k", Model: "gemini-2.0-flash"}, nil)

	assert.NotNil(t, g.httpClient)
	assert.NotNil(t, g.tracer)
	assert.NotNil(t, g.breaker)
	assert.Equal(t, "https://example.test", g.baseURL)
	assert.Equal(t, 45*time.Second, g.timeout)
	assert.Equal(t, "gemini-2.0-flash", g.Model())
}

func TestRESTGenerator_Generate(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedResult string
		expectedCat    Category
		expectedStatus int
	}{
		{
			name: "successful generation",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

				var req generateRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				require.Len(t, req.Contents, 1)
				assert.Equal(t, "explain channels", req.Contents[0].Parts[0].Text)
				assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}]}`))
			},
			expectedResult: `{"a":1}`,
		},
		{
			name: "server error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`))
			},
			expectedCat:    CategoryStatus,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "invalid key",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
			},
			expectedCat:    CategoryCredentials,
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "prompt blocked",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
			},
			expectedCat: CategorySafety,
		},
		{
			name: "candidate blocked",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
			},
			expectedCat: CategorySafety,
		},
		{
			name: "empty completion",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"STOP"}]}`))
			},
			expectedCat: CategoryEmpty,
		},
		{
			name: "no candidates",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"candidates":[]}`))
			},
			expectedCat: CategoryEmpty,
		},
		{
			name: "invalid json response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("invalid json"))
			},
			expectedCat: CategoryTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			g := NewRESTGenerator(RESTConfig{
				BaseURL: server.URL,
				APIKey:  "test-key",
				Model:   "gemini-test",
				Timeout: 5 * time.Second,
			}, zap.NewNop())

			got, err := g.Generate(context.Background(), "explain channels")
			if tt.expectedCat != "" {
				require.Error(t, err)
				var me *Error
				require.ErrorAs(t, err, &me)
				assert.Equal(t, tt.expectedCat, me.Category)
				assert.Equal(t, tt.expectedStatus, me.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, got)
		})
	}
}

func TestRESTGenerator_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	g := NewRESTGenerator(RESTConfig{BaseURL: server.URL, Model: "m"}, nil)
	_, err := g.Generate(context.Background(), "p")

	assert.True(t, IsCategory(err, CategoryCredentials))
	assert.False(t, called)
}

func TestRESTGenerator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	g := NewRESTGenerator(RESTConfig{BaseURL: server.URL, APIKey: "k", Model: "m", Timeout: 50 * time.Millisecond}, nil)
	_, err := g.Generate(context.Background(), "p")

	assert.True(t, IsCategory(err, CategoryTimeout), "got %v", err)
}

func TestRESTGenerator_BreakerIgnoresContentFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	g := NewRESTGenerator(RESTConfig{BaseURL: server.URL, APIKey: "k", Model: "m"}, nil)
	for i := 0; i < 10; i++ {
		_, err := g.Generate(context.Background(), "p")
		assert.True(t, IsCategory(err, CategorySafety))
	}
}

func TestRESTGenerator_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewRESTGenerator(RESTConfig{BaseURL: server.URL, APIKey: "k", Model: "m"}, nil)
	var err error
	for i := 0; i < 8; i++ {
		_, err = g.Generate(context.Background(), "p")
	}

	assert.True(t, IsCategory(err, CategoryUnavailable))
	assert.Equal(t, 6, calls)
}
