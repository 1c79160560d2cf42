package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/seolcoding/dajam-sub000/internal/gateway"
	"github.com/seolcoding/dajam-sub000/internal/models"
	"github.com/seolcoding/dajam-sub000/internal/scene"
)

// SessionService manages session lifecycle: creation with a join code, code
// resolution, and teardown. The live state itself flows through the core, not
// through here.
type SessionService struct {
	db *gorm.DB
	gw gateway.Gateway
}

func NewSessionService(db *gorm.DB, gw gateway.Gateway) *SessionService {
	return &SessionService{db: db, gw: gw}
}

// CreateSession opens a new session for a host and persists the default scene
// snapshot, so participants joining before the first host action still get a
// well-defined baseline.
func (s *SessionService) CreateSession(ctx context.Context, hostID uint, title string) (*models.Session, error) {
	if title == "" {
		return nil, errors.New("session title is required")
	}

	session := models.Session{
		HostID: hostID,
		Code:   s.generateUniqueCode(),
		Title:  title,
		Status: models.SessionStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	if err := s.gw.PutSnapshot(ctx, session.ID, scene.Default()); err != nil {
		return nil, fmt.Errorf("seed scene snapshot: %w", err)
	}
	return &session, nil
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("code = ? AND status = ?", code, models.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, errors.New("session not found")
	}
	return &session, nil
}

func (s *SessionService) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, errors.New("session not found")
	}
	return &session, nil
}

// IsHost reports whether hostID owns the session. Host-only routes check this
// before touching the core; the reducer itself trusts its inputs.
func (s *SessionService) IsHost(ctx context.Context, sessionID, hostID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND host_id = ?", sessionID, hostID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SessionService) EndSession(ctx context.Context, sessionID, hostID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND host_id = ? AND status = ?", sessionID, hostID, models.SessionStatusActive).
		Update("status", models.SessionStatusEnded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("session not found")
	}
	return nil
}

func (s *SessionService) ListSessions(ctx context.Context, hostID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *SessionService) generateUniqueCode() string {
	for {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		var count int64
		s.db.Model(&models.Session{}).
			Where("code = ? AND status = ?", code, models.SessionStatusActive).
			Count(&count)
		if count == 0 {
			return code
		}
	}
}
