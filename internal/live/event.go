package live

import (
	"time"

	"github.com/google/uuid"

	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// EventType tags the reducer events every component writes through.
type EventType int

const (
	EventSceneChanged EventType = iota + 1
	EventLogInserted
	EventLogUpdated
	EventLogRemoved
)

// LogFields carries the mutable part of a log entry for last-write-wins
// merges. Nil fields are left untouched.
type LogFields struct {
	LikeCount     *int  `json:"like_count,omitempty"`
	IsHighlighted *bool `json:"is_highlighted,omitempty"`
	IsAnswered    *bool `json:"is_answered,omitempty"`
}

// Event is one state delta. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType
	Scene   *scene.Scene
	Entry   *models.LogEntry
	Kind    models.LogKind
	EntryID uuid.UUID
	Fields  LogFields
	At      time.Time
}

// Wire ops for log topics.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpRemove = "remove"
)

// LogEvent is the wire shape published on log topics.
type LogEvent struct {
	Op     string           `json:"op"`
	Entry  *models.LogEntry `json:"entry,omitempty"`
	ID     uuid.UUID        `json:"id,omitempty"`
	Fields *LogFields       `json:"fields,omitempty"`
}
