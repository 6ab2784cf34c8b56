package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/docproc-backend/internal/extractor"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/worker"
)

func workerCmd() *cobra.Command {
	var (
		coordinatorURL string
		name           string
		apiURL         string
		model          string
		apiKey         string
		workerID       string
		schemaDir      string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a document-processing worker against a coordinator",
		Long: `Run a document-processing worker against a coordinator.

The worker registers itself, polls for documents, runs the extraction
model on each one and reports the outcome. Pass --worker-id to resume an
existing worker record instead of registering a new one.

Example:
  worker --coordinator http://localhost:8000 --name invoices-1 \
    --api-url https://api.openai.com/v1/chat/completions --model gpt-4o-mini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := os.Getenv("LOG_MODE")
			if logMode == "" {
				logMode = "development"
			}
			log, err := logger.New(logMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			client := worker.NewClient(coordinatorURL, log)
			ex := extractor.NewVisionExtractor(log)
			w := worker.New(worker.Config{
				CoordinatorURL: coordinatorURL,
				Name:           name,
				APIURL:         apiURL,
				Model:          model,
				APIKey:         apiKey,
				WorkerID:       workerID,
				ProcessID:      strconv.Itoa(os.Getpid()),
				SchemaDir:      schemaDir,
			}, client, ex, log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = w.Run(ctx)
			if errors.Is(err, worker.ErrShutdown) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&coordinatorURL, "coordinator", "http://localhost:8000", "Coordinator URL")
	cmd.Flags().StringVar(&name, "name", "worker-"+uuid.NewString()[:8], "Worker name")
	cmd.Flags().StringVar(&apiURL, "api-url", "https://api.openai.com/v1/chat/completions", "LLM API URL")
	cmd.Flags().StringVar(&model, "model", "gpt-4o-mini", "LLM model name")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("OPENAI_API_KEY"), "LLM API key")
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Resume an existing worker record instead of registering")
	cmd.Flags().StringVar(&schemaDir, "schema-dir", "./schemas", "Local schema fallback directory")

	return cmd
}

func main() {
	if err := workerCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worker failed: %v\n", err)
		os.Exit(1)
	}
}
