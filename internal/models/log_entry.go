package models

import (
	"time"

	"github.com/google/uuid"
)

// LogKind separates the two append-only collections a session carries.
type LogKind string

const (
	LogKindQuestion LogKind = "question"
	LogKindChat     LogKind = "chat"
)

// LogEntry is one audience question or chat message. The id is assigned by
// the writing client before any network call, which is what makes redelivery
// of the same insert a harmless no-op everywhere.
type LogEntry struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uint       `gorm:"not null;index" json:"session_id"`
	Kind          LogKind    `gorm:"size:20;not null;index" json:"kind"`
	AuthorID      *uuid.UUID `gorm:"type:uuid" json:"author_id,omitempty"`
	AuthorName    string     `gorm:"size:100;not null" json:"author_name"`
	Body          string     `gorm:"type:text;not null" json:"body"`
	LikeCount     int        `gorm:"not null;default:0" json:"like_count"`
	IsHighlighted bool       `gorm:"not null;default:false" json:"is_highlighted"`
	IsAnswered    bool       `gorm:"not null;default:false" json:"is_answered"`
	CreatedAt     time.Time  `json:"created_at"`
}
