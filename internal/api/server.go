package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/ABDULS21985/vivaexcel-sub001/internal/common/errors"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the payload limit for form framing.
const multipartOverhead = 1 << 20

// Ingestor is the pipeline behind the routes.
type Ingestor interface {
	Process(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error)
	Remove(ctx context.Context, productID string) (*models.RemoveResponse, error)
	Describe(ctx context.Context, productID string) (*models.PresentationView, error)
	MaxPayloadBytes() int64
}

// Server holds the state for the REST API server.
type Server struct {
	ingestor Ingestor
	router   *gin.Engine
}

type Option func(*Server)

// WithStaticDir serves a local storage root under prefix so its locators
// resolve.
func WithStaticDir(prefix, root string) Option {
	return func(s *Server) { s.router.Static(prefix, root) }
}

// NewServer creates a new Server instance.
func NewServer(ingestor Ingestor, opts ...Option) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s := &Server{ingestor: ingestor, router: r}
	s.setupRoutes()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/v1/products/:productId/presentation", s.handleIngest)
	s.router.GET("/v1/products/:productId/presentation", s.handleDescribe)
	s.router.DELETE("/v1/products/:productId/presentation", s.handleRemove)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleIngest accepts the deck as multipart field "file".
func (s *Server) handleIngest(c *gin.Context) {
	limit := s.ingestor.MaxPayloadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(c, apperrors.NewValidationError(apperrors.ReasonPayloadTooLarge, "request body exceeds %d bytes", limit))
			return
		}
		handleError(c, apperrors.NewValidationError(apperrors.ReasonEmptyPayload, "multipart field \"file\" is required"))
		return
	}
	if header.Size > limit {
		handleError(c, apperrors.NewValidationError(apperrors.ReasonPayloadTooLarge,
			"payload is %d bytes, limit is %d", header.Size, limit))
		return
	}

	file, err := header.Open()
	if err != nil {
		handleError(c, apperrors.NewAppError(http.StatusBadRequest, "Unreadable upload", err))
		return
	}
	defer file.Close()
	payload, err := io.ReadAll(file)
	if err != nil {
		handleError(c, apperrors.NewAppError(http.StatusBadRequest, "Unreadable upload", err))
		return
	}

	resp, err := s.ingestor.Process(c.Request.Context(), models.IngestRequest{
		ProductID: c.Param("productId"),
		Filename:  header.Filename,
		Payload:   payload,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDescribe(c *gin.Context) {
	view, err := s.ingestor.Describe(c.Request.Context(), c.Param("productId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleRemove(c *gin.Context) {
	resp, err := s.ingestor.Remove(c.Request.Context(), c.Param("productId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func handleError(c *gin.Context, err error) {
	appErr := apperrors.MapError(err)
	if appErr.Code >= http.StatusInternalServerError {
		slog.Error("Request failed.", "path", c.FullPath(), "error", err)
	}
	body := gin.H{"error": appErr.Message}
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		body["reason"] = validationErr.Reason
	}
	c.JSON(appErr.Code, body)
}

// requestLogger writes one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request.",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}
