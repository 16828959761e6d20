package services

import (
	"context"
	"encoding/hex"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

// RateLimiterService implements a per-client fixed window over a UsageStore.
// Every store failure is logged and treated as allowed.
type RateLimiterService struct {
	store        ports.UsageStore
	maxPerWindow int
	window       time.Duration
	keyPrefix    string
	storeTimeout time.Duration
	skip         bool
	hashIDs      bool
	now          func() time.Time
	metrics      ports.EvaluationMetrics
	logger       *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	MaxPerWindow   int
	Window         time.Duration
	KeyPrefix      string
	StoreTimeout   time.Duration
	Skip           bool
	HashIdentities bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func NewRateLimiterService(store ports.UsageStore, cfg *RateLimiterConfig, metrics ports.EvaluationMetrics, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	s := &RateLimiterService{
		store:        store,
		maxPerWindow: 50,
		window:       24 * time.Hour,
		keyPrefix:    "ratelimit:client",
		storeTimeout: time.Second,
		now:          time.Now,
		metrics:      metrics,
		logger:       logger,
	}
	if cfg != nil {
		if cfg.MaxPerWindow > 0 {
			s.maxPerWindow = cfg.MaxPerWindow
		}
		if cfg.Window > 0 {
			s.window = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			s.keyPrefix = cfg.KeyPrefix
		}
		if cfg.StoreTimeout > 0 {
			s.storeTimeout = cfg.StoreTimeout
		}
		if cfg.Now != nil {
			s.now = cfg.Now
		}
		s.skip = cfg.Skip
		s.hashIDs = cfg.HashIdentities
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics{}
	}
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}
	return s
}

// KeyFor returns the store key for identifier. With hashing enabled the raw
// address never reaches the store.
func (s *RateLimiterService) KeyFor(identifier string) string {
	if !s.hashIDs {
		return s.keyPrefix + ":" + identifier
	}
	sum := blake2b.Sum256([]byte(identifier))
	return s.keyPrefix + ":" + hex.EncodeToString(sum[:16])
}

func (s *RateLimiterService) bypassed(identifier string) bool {
	return s.skip || identifier == "" || identifier == usage.UnknownClient
}

func (s *RateLimiterService) Check(ctx context.Context, identifier string) usage.Decision {
	if s.bypassed(identifier) {
		s.logger.WithField("client", identifier).Debug("rate limiter: skipped")
		return usage.Decision{Allowed: true}
	}
	now := s.now()
	key := s.KeyFor(identifier)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rec, err := s.store.Get(sctx, key)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("rate limiter: failed to read usage; allowing request (fail-open)")
		return usage.Decision{Allowed: true}
	}

	d := usage.Decision{Allowed: true, Tracked: true, Limit: s.maxPerWindow, Remaining: s.maxPerWindow, ResetAt: now.Add(s.window)}
	if rec == nil || rec.Expired(now, s.window) {
		return d
	}
	d.ResetAt = rec.WindowStart.Add(s.window)
	if rec.Count >= s.maxPerWindow {
		d.Allowed = false
		d.Remaining = 0
		return d
	}
	d.Remaining = s.maxPerWindow - rec.Count
	return d
}

func (s *RateLimiterService) Record(ctx context.Context, identifier string) {
	if s.bypassed(identifier) {
		return
	}
	now := s.now()
	key := s.KeyFor(identifier)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	applied, err := s.store.ConditionalIncrement(sctx, key, now, s.window)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("rate limiter: failed to increment usage")
		return
	}
	if applied {
		return
	}
	s.logger.WithFields(logrus.Fields{"key": key}).Info("rate limiter: window rolled over, resetting counter")
	if err := s.store.Reset(sctx, key, now, s.window); err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("rate limiter: failed to reset usage")
	}
}

func (s *RateLimiterService) CheckAndRecord(ctx context.Context, identifier string) usage.Decision {
	d := s.Check(ctx, identifier)
	if d.Tracked {
		s.metrics.ObserveRateLimit(d.Allowed)
		s.logger.WithFields(logrus.Fields{"key": s.KeyFor(identifier), "allowed": d.Allowed, "remaining": d.Remaining, "limit": d.Limit}).Debug("rate limiter window state")
	}
	if !d.Allowed {
		return d
	}
	s.Record(ctx, identifier)
	if d.Tracked && d.Remaining > 0 {
		d.Remaining--
	}
	return d
}

// Usage reports how much of the current window identifier has consumed.
func (s *RateLimiterService) Usage(ctx context.Context, identifier string) usage.Snapshot {
	snap := usage.Snapshot{Limit: s.maxPerWindow, Remaining: s.maxPerWindow, Window: s.window.String()}
	if s.bypassed(identifier) {
		return snap
	}
	now := s.now()
	snap.Tracked = true
	snap.ResetAt = now.Add(s.window)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rec, err := s.store.Get(sctx, s.KeyFor(identifier))
	if err != nil {
		s.logger.WithError(err).Error("rate limiter: failed to read usage snapshot")
		return snap
	}
	if rec == nil || rec.Expired(now, s.window) {
		return snap
	}
	snap.Used = rec.Count
	snap.Remaining = max(0, s.maxPerWindow-rec.Count)
	snap.ResetAt = rec.WindowStart.Add(s.window)
	return snap
}
