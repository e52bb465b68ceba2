package normalize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/normalize", r.URL.Path)
		assert.Equal(t, "BRAF V600E", r.URL.Query().Get("q"))
		w.Write([]byte(`{"variation":{"id":"ga4gh:VA.j4XnsLZcdzDIYa5pvvXM7t1wn9OITr0L"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL).Normalize(context.Background(), "BRAF V600E")
	require.NoError(t, err)
	assert.Equal(t, "ga4gh:VA.j4XnsLZcdzDIYa5pvvXM7t1wn9OITr0L", id)
}

func TestNormalize_NonConcrete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"variation":null,"warnings":["Unable to find valid result"]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Normalize(context.Background(), "BRAF gibberish")
	require.ErrorIs(t, err, ErrNonConcrete)
}

func TestNormalize_ClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Normalize(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx responses are not retried")
}
