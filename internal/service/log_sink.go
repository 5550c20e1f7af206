package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/models"
	"github.com/lumostories/telemetry-api/internal/observability"
	"github.com/lumostories/telemetry-api/internal/repository"
)

// WriteStatus is the typed outcome of a sink write. Callers on the primary
// request path may ignore it; nothing here ever panics or propagates.
type WriteStatus string

const (
	// WriteOK means the entry was durably committed.
	WriteOK WriteStatus = "written"
	// WriteDisabledByConfig means the global configuration toggle is off.
	WriteDisabledByConfig WriteStatus = "disabled_by_config"
	// WriteDisabledByFailure means the circuit breaker tripped after
	// consecutive store failures.
	WriteDisabledByFailure WriteStatus = "disabled_by_failure"
	// WriteFailed means this write failed but the breaker has not tripped.
	WriteFailed WriteStatus = "failed"
)

// WriteResult carries the typed status plus the underlying store error, if
// any.
type WriteResult struct {
	Status WriteStatus
	Err    error
}

// SinkStatus is a snapshot of the sink's process-wide state for the admin
// status endpoint.
type SinkStatus struct {
	Enabled             bool   `json:"enabled"`
	Active              bool   `json:"active"`
	DisableReason       string `json:"disable_reason,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// LogSink appends entries to the document store behind a circuit breaker.
// After threshold consecutive failures the sink deactivates itself and
// subsequent writes become no-ops, trading log durability for availability
// of the primary application. State is shared by all callers in the
// process; the mutex keeps counter transitions atomic.
type LogSink struct {
	repo      repository.LogEntryRepository
	enabled   bool
	threshold int
	logger    zerolog.Logger

	mu       sync.Mutex
	active   bool
	failures int
	reason   string
}

// NewLogSink constructs the sink. It starts inactive; Warmup flips it
// active once the store answers.
func NewLogSink(repo repository.LogEntryRepository, enabled bool, threshold int, logger zerolog.Logger) *LogSink {
	if threshold <= 0 {
		threshold = 3
	}
	return &LogSink{
		repo:      repo,
		enabled:   enabled,
		threshold: threshold,
		logger:    logger.With().Str("component", "log_sink").Logger(),
	}
}

// Warmup probes the backing store and activates the sink when it answers.
// It also serves as the manual re-enable path after the breaker trips.
func (s *LogSink) Warmup(ctx context.Context) error {
	if !s.enabled {
		s.setInactive("activity logging disabled by configuration")
		return nil
	}

	if err := s.repo.Warmup(ctx); err != nil {
		s.setInactive(err.Error())
		s.logger.Warn().Err(err).Msg("activity log warm-up failed; sink inactive")
		return err
	}

	s.mu.Lock()
	s.active = true
	s.failures = 0
	s.reason = ""
	s.mu.Unlock()

	s.logger.Debug().Msg("activity log sink active")
	return nil
}

// Write appends the entry, honoring the config gate and breaker state. It
// never returns an error past its boundary; the typed result is the whole
// contract.
func (s *LogSink) Write(ctx context.Context, entry *models.LogEntry) WriteResult {
	if !s.enabled {
		return WriteResult{Status: WriteDisabledByConfig}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return WriteResult{Status: WriteDisabledByFailure}
	}
	s.mu.Unlock()

	if err := s.repo.Create(ctx, entry); err != nil {
		observability.SinkFailures().Inc()

		s.mu.Lock()
		s.failures++
		tripped := s.failures >= s.threshold
		if tripped {
			s.active = false
			s.reason = err.Error()
		}
		s.mu.Unlock()

		if tripped {
			s.logger.Warn().Err(err).Int("threshold", s.threshold).Msg("disabling activity logging after consecutive failures")
			return WriteResult{Status: WriteDisabledByFailure, Err: err}
		}

		s.logger.Warn().Err(err).Msg("failed to write activity log entry")
		return WriteResult{Status: WriteFailed, Err: err}
	}

	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()

	return WriteResult{Status: WriteOK}
}

// Status reports the current sink state.
func (s *LogSink) Status() SinkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SinkStatus{
		Enabled:             s.enabled,
		Active:              s.active,
		DisableReason:       s.reason,
		ConsecutiveFailures: s.failures,
	}
}

func (s *LogSink) setInactive(reason string) {
	s.mu.Lock()
	s.active = false
	s.reason = reason
	s.mu.Unlock()
}
