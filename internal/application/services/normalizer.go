package services

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/evaluation"
)

// NormalizerConfig bounds the normalized result.
type NormalizerConfig struct {
	MaxSuggestions int
	MinScore       int
	MaxScore       int
	NeutralScore   int
}

// Normalizer converts free-form model output into a complete evaluation.Result.
// It holds no mutable state.
type Normalizer struct {
	cfg    NormalizerConfig
	logger *logrus.Logger
}

func NewNormalizer(cfg *NormalizerConfig, logger *logrus.Logger) *Normalizer {
	c := NormalizerConfig{
		MaxSuggestions: evaluation.MaxSuggestions,
		MinScore:       evaluation.MinScore,
		MaxScore:       evaluation.MaxScore,
		NeutralScore:   evaluation.NeutralScore,
	}
	if cfg != nil {
		if cfg.MaxSuggestions > 0 && cfg.MaxSuggestions < c.MaxSuggestions {
			c.MaxSuggestions = cfg.MaxSuggestions
		}
		if cfg.MinScore > 0 && cfg.MaxScore >= cfg.MinScore {
			c.MinScore, c.MaxScore = cfg.MinScore, cfg.MaxScore
		}
		if cfg.NeutralScore >= c.MinScore && cfg.NeutralScore <= c.MaxScore {
			c.NeutralScore = cfg.NeutralScore
		}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Normalizer{cfg: c, logger: logger}
}

func (n *Normalizer) Normalize(raw string) *evaluation.Result {
	res, _ := n.Parse(raw)
	return res
}

func (n *Normalizer) Parse(raw string) (*evaluation.Result, bool) {
	obj, ok := FirstJSONObject(raw)
	if !ok {
		n.logger.WithField("raw_length", len(raw)).Warn("normalizer: no JSON object in model output; using fallback")
		return n.fallback(), true
	}
	// Numbers stay json.Number so out-of-range scores clamp instead of failing the decode.
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		n.logger.WithError(err).Warn("normalizer: model output is not valid JSON; using fallback")
		return n.fallback(), true
	}

	res := &evaluation.Result{Suggestions: n.suggestions(doc["suggestions"])}
	for _, c := range evaluation.Categories {
		sub, _ := doc[string(c)].(map[string]any)
		res.SetScore(c, evaluation.CategoryScore{
			Score:    n.score(sub["score"]),
			Feedback: feedback(c, sub["feedback"]),
		})
	}
	return res, false
}

func (n *Normalizer) fallback() *evaluation.Result {
	res := evaluation.Fallback()
	for _, c := range evaluation.Categories {
		s := res.Score(c)
		s.Score = n.cfg.NeutralScore
		res.SetScore(c, s)
	}
	return res
}

// score rounds half away from zero, then clamps. Non-numbers get the neutral score.
func (n *Normalizer) score(v any) int {
	num, ok := v.(json.Number)
	if !ok {
		return n.cfg.NeutralScore
	}
	// ParseFloat reports ErrRange with ±Inf or 0 as the value, both of which clamp below.
	f, err := strconv.ParseFloat(string(num), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return n.cfg.NeutralScore
	}
	if math.IsNaN(f) {
		return n.cfg.NeutralScore
	}
	r := math.Round(f)
	if r < float64(n.cfg.MinScore) {
		return n.cfg.MinScore
	}
	if r > float64(n.cfg.MaxScore) {
		return n.cfg.MaxScore
	}
	return int(r)
}

func feedback(c evaluation.Category, v any) string {
	if s, ok := v.(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return evaluation.UnableToEvaluate(c)
}

func (n *Normalizer) suggestions(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if len(out) == n.cfg.MaxSuggestions {
			break
		}
		s, ok := item.(string)
		if !ok {
			continue
		}
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FirstJSONObject returns the first balanced {...} group in s. Braces inside
// JSON string literals do not count. An opening brace that never closes is
// skipped and the scan resumes at the next one. ok is false when no group closes.
func FirstJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := balancedEnd(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(s string, start int) (int, bool) {
	inString := false
	escape := false
	depth := 0
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
