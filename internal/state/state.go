// Package state holds the agent's runtime sync status shared between the
// orchestrator and the local HTTP surface.
package state

import (
	"strings"
	"sync"
	"time"
)

const (
	SyncIdle    = "idle"
	SyncSyncing = "syncing"
	SyncSynced  = "synced"
	SyncFailed  = "sync-failed"
)

type SyncStatus struct {
	State           string `json:"state"`
	Enabled         bool   `json:"enabled"`
	UserID          string `json:"userId,omitempty"`
	SessionID       string `json:"sessionId,omitempty"`
	LastTrigger     string `json:"lastTrigger,omitempty"`
	LastAttemptUnix int64  `json:"lastAttemptUnix"`
	LastSuccessUnix int64  `json:"lastSuccessUnix"`
	// LastResult is synced or sync-failed once any attempt has finished.
	LastResult string `json:"lastResult,omitempty"`
	LastError  string `json:"lastError,omitempty"`
}

type AgentState struct {
	mu         sync.RWMutex
	syncStatus SyncStatus
	now        func() time.Time
}

func NewAgentState(enabled bool, userID, sessionID string) *AgentState {
	return &AgentState{
		syncStatus: SyncStatus{
			State:     SyncIdle,
			Enabled:   enabled,
			UserID:    strings.TrimSpace(userID),
			SessionID: sessionID,
		},
		now: time.Now,
	}
}

func (s *AgentState) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncStatus.UserID
}

func (s *AgentState) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncStatus.SessionID
}

// SetUser records the signed-in identity. It reports whether the user changed.
func (s *AgentState) SetUser(userID string) bool {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.syncStatus.UserID != userID
	s.syncStatus.UserID = userID
	return changed
}

func (s *AgentState) MarkSyncing(trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncStatus.State = SyncSyncing
	s.syncStatus.LastTrigger = trigger
	s.syncStatus.LastAttemptUnix = s.now().Unix()
}

func (s *AgentState) MarkSyncSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncStatus.State = SyncSynced
	s.syncStatus.LastResult = SyncSynced
	s.syncStatus.LastError = ""
	s.syncStatus.LastSuccessUnix = s.now().Unix()
}

// MarkSyncError records a failed attempt. The status falls back to idle until
// the next trigger; the failure stays visible through LastResult and LastError.
func (s *AgentState) MarkSyncError(err string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncStatus.State = SyncIdle
	s.syncStatus.LastResult = SyncFailed
	s.syncStatus.LastError = err
}

func (s *AgentState) SyncStatusSnapshot() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncStatus
}
