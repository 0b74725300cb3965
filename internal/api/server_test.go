package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx/pptxtest"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/repository"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/services"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg services.IngestorConfig, opts ...Option) *Server {
	t.Helper()
	ingestor := services.NewIngestor(storagetest.NewMemory(), repository.NewMemory(), cfg)
	return NewServer(ingestor, opts...)
}

func uploadRequest(t *testing.T, productID, filename string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/products/"+productID+"/presentation", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, services.IngestorConfig{})
	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadDescribeRemove(t *testing.T) {
	s := newTestServer(t, services.IngestorConfig{})
	payload := pptxtest.Build(pptxtest.FiveSlideDeck())

	w := serve(s, uploadRequest(t, "prod-1", "deck.pptx", payload))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "prod-1", resp.Presentation.ProductID)
	assert.Equal(t, 5, resp.Presentation.Metadata.SlideCount)
	assert.Len(t, resp.Slides, 5)
	assert.Len(t, resp.Thumbnails, 5)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/products/prod-1/presentation", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var view models.PresentationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, resp.Presentation.ID, view.Presentation.ID)

	w = serve(s, httptest.NewRequest(http.MethodDelete, "/v1/products/prod-1/presentation", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var removed models.RemoveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &removed))
	assert.Equal(t, 11, removed.DeletedAssets)

	w = serve(s, httptest.NewRequest(http.MethodDelete, "/v1/products/prod-1/presentation", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(s, httptest.NewRequest(http.MethodGet, "/v1/products/prod-1/presentation", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadValidation(t *testing.T) {
	s := newTestServer(t, services.IngestorConfig{MaxPayloadBytes: 16})
	cases := []struct {
		name   string
		req    *http.Request
		code   int
		reason string
	}{
		{"missing file", uploadRequest(t, "prod-1", "", nil), http.StatusBadRequest, "empty_payload"},
		{"empty file", uploadRequest(t, "prod-1", "deck.pptx", nil), http.StatusBadRequest, "empty_payload"},
		{"bad extension", uploadRequest(t, "prod-1", "deck.docx", []byte("x")), http.StatusBadRequest, "unsupported_extension"},
		{"too large", uploadRequest(t, "prod-1", "deck.pptx", make([]byte, 20)), http.StatusRequestEntityTooLarge, "payload_too_large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(s, tc.req)
			assert.Equal(t, tc.code, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.reason, body["reason"])
		})
	}
}

func TestUploadMalformedDeckStillSucceeds(t *testing.T) {
	s := newTestServer(t, services.IngestorConfig{})
	w := serve(s, uploadRequest(t, "prod-1", "deck.pptx", []byte("garbage")))
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Presentation.Metadata.SlideCount)
	assert.NotEmpty(t, resp.Warnings)
}

func TestStaticDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))
	s := newTestServer(t, services.IngestorConfig{}, WithStaticDir("/assets", root))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/assets/hello.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", w.Body.String())
}
