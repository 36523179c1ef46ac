package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/repos"
)

type PushInput struct {
	UserID    string
	Data      json.RawMessage
	SessionID *string
}

type SyncService struct {
	repo *repos.SyncRepo
	now  func() time.Time
}

func NewSyncService(repo *repos.SyncRepo) *SyncService {
	return &SyncService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Pull returns the user's row, or nil without error when the user never synced.
func (s *SyncService) Pull(ctx context.Context, userID string) (*models.CloudRow, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId is required")
	}
	row, err := s.repo.GetRow(ctx, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, backend("Failed to load progress", err)
	}
	return row, nil
}

// Push overwrites the user's row with in.Data. There is no version check.
func (s *SyncService) Push(ctx context.Context, in PushInput) (*models.CloudRow, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, invalid("userId is required")
	}
	data, err := normalizeObject(in.Data)
	if err != nil {
		return nil, err
	}
	var sessionID *string
	if in.SessionID != nil && strings.TrimSpace(*in.SessionID) != "" {
		v := strings.TrimSpace(*in.SessionID)
		sessionID = &v
	}
	row := &models.CloudRow{
		UserID:     userID,
		Data:       data,
		SessionID:  sessionID,
		LastSynced: s.now(),
	}
	if err := s.repo.UpsertRow(ctx, row); err != nil {
		return nil, backend("Failed to save progress", err)
	}
	return row, nil
}

func normalizeObject(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, invalid("data is required")
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, &ValidationError{Message: "data must be a JSON object"}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, &ValidationError{Message: "data must be a JSON object", Details: err.Error()}
	}
	return buf.Bytes(), nil
}
