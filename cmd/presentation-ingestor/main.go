package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/api"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/services"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

var (
	server  *api.Server
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleIngestPresentation" is the entry point name configured in GCP.
	functions.HTTP("HandleIngestPresentation", handleIngestPresentation)
}

// main is required by the Go Functions Framework.
func main() {}

func newServer(ctx context.Context) (*api.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ingestor, _, err := services.NewIngestorFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return api.NewServer(ingestor), nil
}

// handleIngestPresentation routes upload, lookup and removal requests.
func handleIngestPresentation(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		server, initErr = newServer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	server.Handler().ServeHTTP(w, r)
}
