package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers HEAD and DELETE for any key and records the request paths.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T, handler http.Handler) *S3 {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewS3(context.Background(), config.S3Config{
		Bucket:          "decks",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	}, NewRetrier(1))
	require.NoError(t, err)
	return s
}

func TestS3DeleteUsesCleanedKey(t *testing.T) {
	fake := &fakeS3{}
	s := newTestS3(t, fake)

	ok, err := s.Delete(context.Background(), "presentations/p1//i1/./original.pptx")
	require.NoError(t, err)
	assert.True(t, ok)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{
		"HEAD /decks/presentations/p1/i1/original.pptx",
		"DELETE /decks/presentations/p1/i1/original.pptx",
	}, fake.requests)
}

func TestS3DeleteRejectsInvalidKey(t *testing.T) {
	fake := &fakeS3{}
	s := newTestS3(t, fake)

	ok, err := s.Delete(context.Background(), "presentations/../secrets")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.False(t, ok)
	assert.Empty(t, fake.requests)
}
