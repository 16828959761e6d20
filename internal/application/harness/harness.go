// Package harness measures how closely the model's scores track hand-labelled
// expectations for a fixed dataset of requirements.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/application/services"
	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

// DefaultThreshold is the allowed score distance when neither the sample nor the caller sets one.
const DefaultThreshold = 2

// Expected holds hand-assigned scores. Categories left nil are not compared.
type Expected struct {
	Ambiguity    *int `json:"ambiguity,omitempty"`
	Testability  *int `json:"testability,omitempty"`
	Completeness *int `json:"completeness,omitempty"`
	Threshold    int  `json:"threshold,omitempty"`
}

func (e Expected) score(c evaluation.Category) *int {
	switch c {
	case evaluation.CategoryAmbiguity:
		return e.Ambiguity
	case evaluation.CategoryTestability:
		return e.Testability
	case evaluation.CategoryCompleteness:
		return e.Completeness
	}
	return nil
}

type Sample struct {
	Requirement string   `json:"requirement"`
	Expected    Expected `json:"expected"`
}

type Dataset struct {
	Samples []Sample `json:"samples"`
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

func ReadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("dataset has no samples")
	}
	return &ds, nil
}

// Comparison is the per-category outcome for one sample.
type Comparison struct {
	AI        int  `json:"ai"`
	Expected  int  `json:"expected"`
	Threshold int  `json:"threshold"`
	Within    bool `json:"within_threshold"`
}

type SampleResult struct {
	Requirement string                             `json:"requirement"`
	Status      string                             `json:"status"`
	Error       string                             `json:"error,omitempty"`
	Fallback    bool                               `json:"fallback,omitempty"`
	Result      *evaluation.Result                 `json:"ai_output,omitempty"`
	Comparisons map[evaluation.Category]Comparison `json:"comparisons,omitempty"`
}

type CategoryStats struct {
	Within   int     `json:"within_threshold"`
	Outside  int     `json:"outside_threshold"`
	Accuracy float64 `json:"accuracy"`
}

type Report struct {
	Model      string                                 `json:"model"`
	Total      int                                    `json:"total_samples"`
	Successful int                                    `json:"successful_evaluations"`
	Errors     int                                    `json:"errors"`
	Fallbacks  int                                    `json:"fallbacks"`
	Categories map[evaluation.Category]*CategoryStats `json:"categories"`
	Results    []SampleResult                         `json:"results"`
	Duration   time.Duration                          `json:"-"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Runner drives the model directly; the rate limiter is not involved.
type Runner struct {
	model          ports.ModelClient
	normalizer     ports.ResponseNormalizer
	maxSuggestions int
	threshold      int
	timeout        time.Duration
	logger         *logrus.Logger
}

type RunnerConfig struct {
	MaxSuggestions int
	Threshold      int
	Timeout        time.Duration
}

func NewRunner(model ports.ModelClient, normalizer ports.ResponseNormalizer, cfg RunnerConfig, logger *logrus.Logger) *Runner {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = evaluation.MaxSuggestions
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Runner{
		model:          model,
		normalizer:     normalizer,
		maxSuggestions: cfg.MaxSuggestions,
		threshold:      cfg.Threshold,
		timeout:        cfg.Timeout,
		logger:         logger,
	}
}

// Run evaluates every sample in order. Per-sample failures are counted, not returned;
// only a cancelled ctx aborts the run.
func (r *Runner) Run(ctx context.Context, ds *Dataset) (*Report, error) {
	start := time.Now()
	rep := &Report{Model: r.model.Name(), Categories: make(map[evaluation.Category]*CategoryStats, len(evaluation.Categories))}
	for _, c := range evaluation.Categories {
		rep.Categories[c] = &CategoryStats{}
	}

	for i, s := range ds.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{"sample": i + 1, "of": len(ds.Samples)}).Info("evaluating sample")
		res := r.evaluate(ctx, s)
		rep.Total++
		if res.Status == statusError {
			rep.Errors++
		} else {
			rep.Successful++
			if res.Fallback {
				rep.Fallbacks++
			}
			for c, cmp := range res.Comparisons {
				if cmp.Within {
					rep.Categories[c].Within++
				} else {
					rep.Categories[c].Outside++
				}
			}
		}
		rep.Results = append(rep.Results, res)
	}

	for _, st := range rep.Categories {
		if n := st.Within + st.Outside; n > 0 {
			st.Accuracy = float64(st.Within) / float64(n)
		}
	}
	rep.Duration = time.Since(start)
	return rep, nil
}

func (r *Runner) evaluate(ctx context.Context, s Sample) SampleResult {
	out := SampleResult{Requirement: s.Requirement}

	mctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	raw, err := r.model.Complete(mctx, services.BuildPrompt(s.Requirement, r.maxSuggestions))
	if err != nil {
		r.logger.WithError(err).Warn("model call failed")
		out.Status = statusError
		out.Error = err.Error()
		return out
	}

	res, fallback := r.normalizer.Parse(raw)
	out.Status = statusSuccess
	out.Result = res
	out.Fallback = fallback

	threshold := s.Expected.Threshold
	if threshold <= 0 {
		threshold = r.threshold
	}
	out.Comparisons = make(map[evaluation.Category]Comparison)
	for _, c := range evaluation.Categories {
		want := s.Expected.score(c)
		if want == nil {
			continue
		}
		got := res.Score(c).Score
		diff := got - *want
		if diff < 0 {
			diff = -diff
		}
		out.Comparisons[c] = Comparison{AI: got, Expected: *want, Threshold: threshold, Within: diff <= threshold}
	}
	return out
}

// WriteJSON writes the full report, including per-sample results.
func (rep *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintSummary writes a human readable table.
func (rep *Report) PrintSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Model:\t%s\n", rep.Model)
	fmt.Fprintf(tw, "Samples:\t%d\n", rep.Total)
	fmt.Fprintf(tw, "Successful:\t%d\n", rep.Successful)
	fmt.Fprintf(tw, "Errors:\t%d\n", rep.Errors)
	fmt.Fprintf(tw, "Fallbacks:\t%d\n", rep.Fallbacks)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CATEGORY\tWITHIN\tOUTSIDE\tACCURACY")
	for _, c := range evaluation.Categories {
		st := rep.Categories[c]
		if st == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", c, st.Within, st.Outside, st.Accuracy*100)
	}
	return tw.Flush()
}
