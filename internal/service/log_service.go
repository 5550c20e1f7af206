package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/catalog"
	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/observability"
)

// FlaggedSubject is the NATS subject carrying entries whose (type, action)
// pair is outside the recognized catalog. Downstream ops tooling subscribes
// to it; the entries themselves are persisted regardless.
const FlaggedSubject = "lumo.activity.flagged"

// LogService is the single write path into the activity log. Producers call
// Record; failures never propagate into the caller's primary flow.
type LogService interface {
	Record(ctx context.Context, raw RawEvent) (dto.LogEventResponse, error)
	Status() SinkStatus
	Enable(ctx context.Context) error
}

type logService struct {
	normalizer *Normalizer
	sink       *LogSink
	catalog    *catalog.Catalog
	nats       *nats.Conn
	logger     zerolog.Logger
}

type flaggedEvent struct {
	ID     uint   `json:"id"`
	Type   string `json:"type"`
	Action string `json:"action"`
}

// NewLogService constructs the log service. The NATS connection may be nil;
// flagged entries are then only counted, not fanned out.
func NewLogService(normalizer *Normalizer, sink *LogSink, cat *catalog.Catalog, natsConn *nats.Conn, logger zerolog.Logger) LogService {
	return &logService{
		normalizer: normalizer,
		sink:       sink,
		catalog:    cat,
		nats:       natsConn,
		logger:     logger.With().Str("component", "log_service").Logger(),
	}
}

// Record normalizes and persists one event. The only error it returns is
// ValidationError for malformed input; store trouble is reported through
// the typed write status instead.
func (s *logService) Record(ctx context.Context, raw RawEvent) (dto.LogEventResponse, error) {
	entry, err := s.normalizer.Normalize(raw)
	if err != nil {
		return dto.LogEventResponse{}, err
	}

	flagged := !s.catalog.Recognized(entry.Type, entry.Action)
	if flagged {
		observability.FlaggedEvents().WithLabelValues(entry.Type).Inc()
		s.logger.Warn().
			Str("type", entry.Type).
			Str("action", entry.Action).
			Msg("event action outside recognized catalog")
	}

	result := s.sink.Write(ctx, &entry)
	observability.Events().WithLabelValues(entry.Type, entry.Result).Inc()

	response := dto.LogEventResponse{WriteStatus: string(result.Status)}
	if result.Status == WriteOK {
		entryResponse := dto.NewLogEntryResponse(entry)
		entryResponse.Flagged = flagged
		response.Entry = &entryResponse

		if flagged {
			s.publishFlagged(entry.ID, entry.Type, entry.Action)
		}
	}

	return response, nil
}

func (s *logService) Status() SinkStatus {
	return s.sink.Status()
}

// Enable re-runs the warm-up check, re-activating a sink disabled by the
// circuit breaker.
func (s *logService) Enable(ctx context.Context) error {
	return s.sink.Warmup(ctx)
}

func (s *logService) publishFlagged(id uint, eventType, action string) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(flaggedEvent{ID: id, Type: eventType, Action: action})
	if err != nil {
		return
	}

	if err := s.nats.Publish(FlaggedSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish flagged event")
	}
}
