package service

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/lumostories/telemetry-api/internal/models"
)

// errorSummaryLimit bounds the human-readable failure summary copied into
// entry metadata.
const errorSummaryLimit = 500

// RawEvent is the unvalidated event description producers hand to the log
// service. Err, when set, is the failure of the operation being logged; its
// presence forces result=fail regardless of the Result field.
type RawEvent struct {
	Type     string
	Action   string
	Result   string
	Err      error
	ActorID  string
	ClientIP string
	Params   []string
	Metadata map[string]interface{}
}

// Normalizer turns raw event descriptions into fully-populated log entries.
// It is the single timestamping point in the system: the instant and its
// localized breakdown are stamped together here and never re-derived.
type Normalizer struct {
	location *time.Location
	now      func() time.Time
}

// NewNormalizer constructs a normalizer stamping entries in the given
// location.
func NewNormalizer(location *time.Location) *Normalizer {
	if location == nil {
		location = time.UTC
	}
	return &Normalizer{location: location, now: time.Now}
}

// Normalize validates and completes a raw event. The returned entry always
// carries exactly five positional parameters; missing slots are null.
// Supplying more than five is a caller bug and fails with ValidationError
// rather than silently dropping data.
func (n *Normalizer) Normalize(raw RawEvent) (models.LogEntry, error) {
	eventType := strings.TrimSpace(raw.Type)
	if !models.EventType(eventType).Valid() {
		return models.LogEntry{}, validationErrorf("unrecognized event type %q", raw.Type)
	}

	if len(raw.Params) > models.ParamSlots {
		return models.LogEntry{}, validationErrorf("at most %d positional parameters are allowed, got %d", models.ParamSlots, len(raw.Params))
	}

	action := strings.TrimSpace(raw.Action)
	if action == "" {
		action = "unknown"
	}

	metadata := datatypes.JSONMap{}
	for key, value := range raw.Metadata {
		metadata[key] = value
	}

	result := normalizeResult(raw.Result)
	if raw.Err != nil {
		result = models.ResultFail
		metadata["error"] = summarizeError(raw.Err)
	}

	var slots [models.ParamSlots]*string
	for i, value := range raw.Params {
		slots[i] = optionalString(value)
	}

	now := n.now().In(n.location)

	return models.LogEntry{
		Type:         eventType,
		Action:       action,
		Result:       string(result),
		ActorID:      optionalString(raw.ActorID),
		ClientIP:     optionalString(raw.ClientIP),
		Param1:       slots[0],
		Param2:       slots[1],
		Param3:       slots[2],
		Param4:       slots[3],
		Param5:       slots[4],
		Metadata:     metadata,
		Timestamp:    now,
		TimestampISO: now.Format(time.RFC3339),
		Year:         now.Year(),
		Month:        int(now.Month()),
		Day:          now.Day(),
	}, nil
}

// normalizeResult coerces free-form outcome signals into the two-value enum.
// Empty and explicit failure markers count as fail; any other non-empty
// signal counts as success.
func normalizeResult(result string) models.EventResult {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "", "fail", "failure", "error":
		return models.ResultFail
	default:
		return models.ResultSuccess
	}
}

func summarizeError(err error) string {
	summary := strings.TrimSpace(err.Error())
	if len(summary) > errorSummaryLimit {
		summary = summary[:errorSummaryLimit]
	}
	return summary
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
