package dto

import (
	"time"

	"github.com/lumostories/telemetry-api/internal/models"
)

// LogEventRequest is the ingest payload for a single activity event.
// client_ip is deliberately absent: it is only ever taken from forwarding
// headers set by upstream infrastructure, never from the body.
type LogEventRequest struct {
	Type     string                 `json:"type" validate:"required"`
	Action   string                 `json:"action" validate:"required"`
	Result   string                 `json:"result"`
	Error    string                 `json:"error" validate:"omitempty,max=2000"`
	Params   []string               `json:"params"`
	Metadata map[string]interface{} `json:"metadata"`
}

// LogEntryResponse serializes a stored log entry.
type LogEntryResponse struct {
	ID           uint                   `json:"id"`
	Type         string                 `json:"type"`
	Action       string                 `json:"action"`
	Result       string                 `json:"result"`
	ActorID      *string                `json:"actor_id"`
	ClientIP     *string                `json:"client_ip"`
	Params       []*string              `json:"params"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
	TimestampISO string                 `json:"timestamp_iso"`
	Year         int                    `json:"year"`
	Month        int                    `json:"month"`
	Day          int                    `json:"day"`
	Flagged      bool                   `json:"flagged"`
}

// LogEventResponse wraps the recorded entry with the typed sink outcome.
type LogEventResponse struct {
	WriteStatus string            `json:"write_status"`
	Entry       *LogEntryResponse `json:"entry,omitempty"`
}

// NewLogEntryResponse converts a log entry model into a DTO.
func NewLogEntryResponse(entry models.LogEntry) LogEntryResponse {
	params := entry.Params()

	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}

	return LogEntryResponse{
		ID:           entry.ID,
		Type:         entry.Type,
		Action:       entry.Action,
		Result:       entry.Result,
		ActorID:      entry.ActorID,
		ClientIP:     entry.ClientIP,
		Params:       params[:],
		Metadata:     metadata,
		Timestamp:    entry.Timestamp,
		TimestampISO: entry.TimestampISO,
		Year:         entry.Year,
		Month:        entry.Month,
		Day:          entry.Day,
	}
}
