package models

import "time"

type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HostID    uint      `gorm:"not null;index" json:"host_id"`
	Code      string    `gorm:"size:6;uniqueIndex" json:"code"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Status    string    `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// SceneSnapshot is the single durable row per session holding the current
// scene for late-join catch-up. Written only by the host's synchronizer,
// upserted last-write-wins.
type SceneSnapshot struct {
	SessionID uint      `gorm:"primaryKey" json:"session_id"`
	Scene     string    `gorm:"type:text;not null" json:"scene"`
	UpdatedAt time.Time `json:"updated_at"`
}
