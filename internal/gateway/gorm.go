package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// GormGateway implements Gateway on top of Postgres through gorm.
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) GetSnapshot(ctx context.Context, sessionID uint) (*scene.Scene, error) {
	var row models.SceneSnapshot
	err := g.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sc, err := scene.Decode([]byte(row.Scene))
	if err != nil {
		return nil, fmt.Errorf("snapshot for session %d: %w", sessionID, err)
	}
	return &sc, nil
}

func (g *GormGateway) PutSnapshot(ctx context.Context, sessionID uint, sc scene.Scene) error {
	payload, err := sc.Encode()
	if err != nil {
		return err
	}

	row := models.SceneSnapshot{
		SessionID: sessionID,
		Scene:     string(payload),
		UpdatedAt: time.Now(),
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"scene", "updated_at"}),
	}).Create(&row).Error
}

func (g *GormGateway) ListLogEntries(ctx context.Context, sessionID uint, kind models.LogKind, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if limit > DefaultLogLimit {
		limit = DefaultLogLimit
	}

	// Newest N selected first, then flipped so the caller replays oldest
	// to newest.
	var newest []models.LogEntry
	err := g.db.WithContext(ctx).
		Where("session_id = ? AND kind = ?", sessionID, kind).
		Order("created_at DESC").
		Limit(limit).
		Find(&newest).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.LogEntry, len(newest))
	for i, e := range newest {
		entries[len(newest)-1-i] = e
	}
	return entries, nil
}

func (g *GormGateway) InsertLogEntry(ctx context.Context, e models.LogEntry) error {
	// Redelivered inserts carry the same client-assigned id; the conflict
	// clause turns them into no-ops instead of errors.
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&e).Error
}

func (g *GormGateway) UpdateLogEntry(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if err := checkLogFields(fields); err != nil {
		return err
	}

	res := g.db.WithContext(ctx).Model(&models.LogEntry{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormGateway) DeleteLogEntry(ctx context.Context, id uuid.UUID) error {
	return g.db.WithContext(ctx).Delete(&models.LogEntry{}, "id = ?", id).Error
}

func (g *GormGateway) IncrementCounter(ctx context.Context, id uuid.UUID, field string, delta int) (int, error) {
	if !counterFields[field] {
		return 0, fmt.Errorf("%w: %s", ErrBadField, field)
	}

	var updated models.LogEntry
	res := g.db.WithContext(ctx).Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: field}}}).
		Where("id = ?", id).
		Update(field, gorm.Expr("GREATEST("+field+" + ?, 0)", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return updated.LikeCount, nil
}
