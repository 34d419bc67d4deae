// Command train fits the survival pipeline from params.yaml and writes the
// artifact the server loads. With -tune it grid-searches the tuning grid
// instead and prints the best parameters.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/training"
	"github.com/enesgulerml/titanic-mlops-k8s/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "train: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, trains or tunes, and prints the outcome to stdout. Logs
// go to stderr and, when LOG_DIR is set, to a file there.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "params.yaml", "path to the training params file")
	tune := fs.Bool("tune", false, "grid-search tuning_config instead of training")
	folds := fs.Int("folds", training.DefaultFolds, "cross-validation folds for -tune")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, closeLog, err := observability.InitLogger(observability.LogConfig{
		Level:  *logLevel,
		Format: "text",
		Dir:    os.Getenv("LOG_DIR"),
		Output: stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()
	defer func() {
		if err != nil {
			logger.Error("train failed", "error", err)
		}
	}()

	params, err := training.ReadParams(*configPath)
	if err != nil {
		return fmt.Errorf("failed to read params %s: %w", *configPath, err)
	}

	if *tune {
		ds, err := training.LoadCSV(params.ExternalData.CSV)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		result, err := training.Tune(ctx, params, ds, *folds, logger)
		if err != nil {
			return fmt.Errorf("tuning failed: %w", err)
		}
		for _, c := range result.Candidates {
			fmt.Fprintf(stdout, "n_estimators=%-4d max_depth=%-3d accuracy=%.4f\n", c.NEstimators, c.MaxDepth, c.Score)
		}
		fmt.Fprintf(stdout, "best: n_estimators=%d max_depth=%d accuracy=%.4f\n",
			result.Best.NEstimators, result.Best.MaxDepth, result.Best.Score)
		fmt.Fprintln(stdout, "copy these into model_config in", *configPath)
		return nil
	}

	report, err := training.NewTrainer(params, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s (%s) accuracy=%.4f train=%d test=%d\n",
		report.ModelPath, report.ModelVersion, report.Accuracy, report.TrainRows, report.TestRows)
	return nil
}
