package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

// ============================================
// Success Path Tests
// ============================================

func TestClient_Do_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c-1"}`))
	}))
	t.Cleanup(server.Close)

	var out struct {
		ID string `json:"id"`
	}
	err := NewClient(server.URL).Get(context.Background(), "/cart", &out)

	require.NoError(t, err)
	assert.Equal(t, "c-1", out.ID)
}

func TestClient_Do_SendsJSONBodyAndAuthHeader(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, WithTokenSource(staticToken("tok-123")))
	err := client.Post(context.Background(), "/cart/items", map[string]int{"quantity": 1}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}

func TestClient_Do_EmptyTokenSendsNoHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, WithTokenSource(staticToken("")))
	require.NoError(t, client.Get(context.Background(), "/cart", nil))
	assert.Empty(t, gotAuth)
}

// ============================================
// Error Classification Tests
// ============================================

func TestClient_Do_ExtractsErrorMessageFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"quantity too large"}`, "quantity too large"},
		{"message", `{"message":"item gone"}`, "item gone"},
		{"error", `{"error":"nope"}`, "nope"},
		{"detail wins over message", `{"detail":"a","message":"b"}`, "a"},
		{"unknown fields", `{"reason":"?"}`, MsgGenericFailure},
		{"not json", `<html>bad gateway</html>`, MsgGenericFailure},
		{"empty", ``, MsgGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			err := NewClient(server.URL).Get(context.Background(), "/cart", nil)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestClient_Do_TransportFailureHasZeroStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	err := NewClient(server.URL).Get(context.Background(), "/cart", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, MsgUnreachable, apiErr.Message)
	assert.Error(t, errors.Unwrap(apiErr))
}

func TestClient_Do_TimeoutRejectsLikeAnyFailure(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		server.Close()
	})

	client := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	err := client.Get(context.Background(), "/cart", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, MsgUnreachable, apiErr.Message)
}

func TestClient_Do_UndecodableSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	t.Cleanup(server.Close)

	var out map[string]any
	err := NewClient(server.URL).Get(context.Background(), "/cart", &out)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, MsgGenericFailure, apiErr.Message)
}
