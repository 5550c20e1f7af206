package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType classifies the origin of a log entry.
type EventType string

// Recognized event types. Entries with any other type are rejected at
// normalization time.
const (
	EventTypeStory      EventType = "story"
	EventTypeUser       EventType = "user"
	EventTypeBoard      EventType = "board"
	EventTypeAdmin      EventType = "admin"
	EventTypeModeration EventType = "moderation"
)

// Valid reports whether the type is one of the recognized enum values.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeStory, EventTypeUser, EventTypeBoard, EventTypeAdmin, EventTypeModeration:
		return true
	default:
		return false
	}
}

// EventResult is the two-value outcome enum carried by every entry.
type EventResult string

const (
	ResultSuccess EventResult = "success"
	ResultFail    EventResult = "fail"
)

// ParamSlots is the fixed number of positional parameters on every entry.
const ParamSlots = 5

// LogEntry is one immutable record of a platform event. Rows are only ever
// appended; nothing in this service mutates or deletes them.
//
// The year/month/day columns are the localized breakdown stamped once at
// write time and are the source of truth for date-range filtering. They are
// never recomputed from Timestamp.
type LogEntry struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Type         string            `gorm:"size:32;not null;index:idx_log_entries_type_ts,priority:1;index:idx_log_entries_type_action_ts,priority:1;index:idx_log_entries_type_result_ts,priority:1" json:"type"`
	Action       string            `gorm:"size:64;not null;index:idx_log_entries_action_ts,priority:1;index:idx_log_entries_type_action_ts,priority:2" json:"action"`
	Result       string            `gorm:"size:16;not null;index:idx_log_entries_result_ts,priority:1;index:idx_log_entries_type_result_ts,priority:2" json:"result"`
	ActorID      *string           `gorm:"size:255;index" json:"actor_id"`
	ClientIP     *string           `gorm:"size:64" json:"client_ip"`
	Param1       *string           `gorm:"size:512" json:"param1"`
	Param2       *string           `gorm:"size:512" json:"param2"`
	Param3       *string           `gorm:"size:512" json:"param3"`
	Param4       *string           `gorm:"size:512" json:"param4"`
	Param5       *string           `gorm:"size:512" json:"param5"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Timestamp    time.Time         `gorm:"not null;index:idx_log_entries_ts;index:idx_log_entries_type_ts,priority:2;index:idx_log_entries_action_ts,priority:2;index:idx_log_entries_result_ts,priority:2;index:idx_log_entries_type_action_ts,priority:3;index:idx_log_entries_type_result_ts,priority:3" json:"timestamp"`
	TimestampISO string            `gorm:"size:64;not null" json:"timestamp_iso"`
	Year         int               `gorm:"not null;index:idx_log_entries_date,priority:1" json:"year"`
	Month        int               `gorm:"not null;index:idx_log_entries_date,priority:2" json:"month"`
	Day          int               `gorm:"not null;index:idx_log_entries_date,priority:3" json:"day"`
}

// Params returns the five positional slots in order.
func (e LogEntry) Params() [ParamSlots]*string {
	return [ParamSlots]*string{e.Param1, e.Param2, e.Param3, e.Param4, e.Param5}
}
