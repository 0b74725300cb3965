package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/services"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	reprocessorInstance *services.ReprocessorFunction
	once                sync.Once
	initErr             error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ReprocessPresentation", reprocessPresentation)
}

// main is required by the Go Functions Framework.
func main() {}

// reprocessPresentation ingests a deck written to the uploads bucket.
func reprocessPresentation(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		reprocessorInstance, initErr = services.NewReprocessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process.
	return reprocessorInstance.Process(ctx, gcsEvent)
}
