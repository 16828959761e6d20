// Command evalharness scores a labelled dataset of requirements against the configured model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "github.com/avatarctic/requirements-evaluator/configs"
	"github.com/avatarctic/requirements-evaluator/internal/application/harness"
	"github.com/avatarctic/requirements-evaluator/internal/application/services"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/llm"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/logging"
)

var (
	datasetPath string
	outputPath  string
	threshold   int
)

var rootCmd = &cobra.Command{
	Use:   "evalharness",
	Short: "Offline accuracy checks for the requirements evaluator",
	Long: `evalharness sends every requirement of a labelled dataset to the model configured
through the usual MODEL_* environment variables and reports how often each category
score lands within the allowed distance of the expected score.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a dataset and print accuracy per category",
	RunE:  runHarness,
}

func init() {
	runCmd.Flags().StringVar(&datasetPath, "dataset", "eval_dataset.json", "path to the labelled dataset")
	runCmd.Flags().StringVar(&outputPath, "output", "", "optional path for the full JSON report")
	runCmd.Flags().IntVar(&threshold, "threshold", harness.DefaultThreshold, "allowed score distance when a sample sets none")
	rootCmd.AddCommand(runCmd)
}

func runHarness(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.NewLogger(&cfg.Log)
	if cfg.Log.File == "" {
		// Keep stdout for the report table.
		logger.SetOutput(cmd.ErrOrStderr())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := harness.LoadDataset(datasetPath)
	if err != nil {
		return err
	}

	model, err := llm.NewModelClient(ctx, &cfg.Model)
	if err != nil {
		return fmt.Errorf("init model client: %w", err)
	}
	normalizer := services.NewNormalizer(&services.NormalizerConfig{MaxSuggestions: cfg.Validation.MaxSuggestions}, logger)

	runner := harness.NewRunner(model, normalizer, harness.RunnerConfig{
		MaxSuggestions: cfg.Validation.MaxSuggestions,
		Threshold:      threshold,
		Timeout:        cfg.Model.Timeout,
	}, logger)

	logger.WithFields(logrus.Fields{"samples": len(ds.Samples), "model": model.Name()}).Info("starting evaluation run")
	rep, err := runner.Run(ctx, ds)
	if err != nil {
		return err
	}
	if err := rep.PrintSummary(cmd.OutOrStdout()); err != nil {
		return err
	}

	if outputPath != "" {
		if err := writeReport(outputPath, rep); err != nil {
			return err
		}
		logger.WithField("path", outputPath).Info("report written")
	}
	return nil
}

// writeReport writes the JSON report to path. A failed close is reported, since
// buffered data may not have reached the file.
func writeReport(path string, rep *harness.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := rep.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
