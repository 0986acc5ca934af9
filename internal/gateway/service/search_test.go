package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tavilyFake(t *testing.T, n int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"results":[`)
		for i := 1; i <= n; i++ {
			if i > 1 {
				_, _ = io.WriteString(w, ",")
			}
			_, _ = fmt.Fprintf(w, `{"title":"T%d","url":"https://%d.example","content":"C%d"}`, i, i, i)
		}
		_, _ = io.WriteString(w, `]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	srv := tavilyFake(t, 7, &calls)
	f := newFixture(t, map[string]string{"tavily": srv.URL})

	w := f.postJSON(t, "/api/search", websearch.Query{Query: "go", Provider: "tavily", APIKey: "k"})
	require.Equal(t, http.StatusOK, w.Code)

	var res websearch.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Data, 5)
	assert.Contains(t, res.Results, "[1] Title: T1\nURL: https://1.example\nContent: C1")
	assert.NotContains(t, res.Results, "T6")
}

func TestSearch_UnknownProvider(t *testing.T) {
	var calls atomic.Int32
	srv := tavilyFake(t, 1, &calls)
	f := newFixture(t, map[string]string{"tavily": srv.URL})

	w := f.postJSON(t, "/api/search", websearch.Query{Query: "go", Provider: "altavista", APIKey: "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "Invalid provider", body.Error)
	assert.Equal(t, apperrors.ErrProviderNotFound, body.Code)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_MissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := tavilyFake(t, 1, &calls)
	f := newFixture(t, map[string]string{"bing": srv.URL})

	w := f.postJSON(t, "/api/search", websearch.Query{Query: "go", Provider: "bing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid provider configuration: missing API key", decodeError(t, w).Error)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_MissingQuery(t *testing.T) {
	f := newFixture(t, nil)

	w := f.postJSON(t, "/api/search", websearch.Query{Provider: "tavily", APIKey: "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid parameters: missing query", decodeError(t, w).Error)
}

func TestSearch_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newFixture(t, map[string]string{"tavily": srv.URL})
	w := f.postJSON(t, "/api/search", websearch.Query{Query: "go", Provider: "tavily", APIKey: "k"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrSearchFailed, decodeError(t, w).Code)
}
