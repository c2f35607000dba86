package cycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionSnapshot is the persisted shape of the live session, used for
// crash/reload recovery. All timestamps are absolute so elapsed time can
// be recomputed after a restart.
type SessionSnapshot struct {
	Status            Status             `json:"status"`
	Template          *Template          `json:"template,omitempty"`
	Tags              SessionTags        `json:"tags"`
	CurrentStage      Stage              `json:"currentStage,omitempty"`
	CurrentStageIndex int                `json:"currentStageIndex"`
	SessionStartTime  time.Time          `json:"sessionStartTime"`
	StageStartTime    time.Time          `json:"stageStartTime"`
	PausedAt          time.Time          `json:"pausedAt"`
	TotalPausedMs     int64              `json:"totalPausedMs"`
	ActualDurations   StageDurations     `json:"actualDurations"`
	Distractions      []Distraction      `json:"distractions,omitempty"`
	SkippedStages     []Stage            `json:"skippedStages,omitempty"`
	StageNotes        map[Stage]string   `json:"stageNotes,omitempty"`
	PauseCount        int                `json:"pauseCount"`
	MidPeakCheckpoint bool               `json:"midPeakCheckpoint"`
	Momentum          *MomentumExtension `json:"momentumExtension,omitempty"`
	MomentumEligible  bool               `json:"momentumEligible"`
	RecoveryActivity  []RecoveryActivity `json:"recoveryActivities,omitempty"`
}

// Snapshot captures the machine's full live state.
func (m *SessionMachine) Snapshot() *SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &SessionSnapshot{
		Status:            m.status,
		Template:          m.template,
		Tags:              m.tags,
		CurrentStage:      m.currentStage,
		CurrentStageIndex: m.currentStageIndex,
		SessionStartTime:  m.sessionStartTime,
		StageStartTime:    m.stageStartTime,
		PausedAt:          m.pausedAt,
		TotalPausedMs:     m.totalPaused.Milliseconds(),
		ActualDurations:   m.actualDurations.Clone(),
		Distractions:      append([]Distraction(nil), m.distractions...),
		SkippedStages:     append([]Stage(nil), m.skippedStages...),
		StageNotes:        cloneStageNotes(m.stageNotes),
		PauseCount:        m.pauseCount,
		MidPeakCheckpoint: m.midPeakCheckpoint,
		Momentum:          m.momentum,
		MomentumEligible:  m.momentumEligible,
		RecoveryActivity:  append([]RecoveryActivity(nil), m.recoveryActivities...),
	}
}

// RestoreSnapshot loads a previously captured snapshot into the machine.
// The snapshot is validated and repaired first, so a corrupted store can
// never leave the machine in an impossible state.
func (m *SessionMachine) RestoreSnapshot(s *SessionSnapshot) {
	if s == nil {
		return
	}
	validateAndRepairSnapshot(s)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	m.status = s.Status
	m.template = s.Template
	m.tags = s.Tags
	m.currentStage = s.CurrentStage
	m.currentStageIndex = s.CurrentStageIndex
	m.sessionStartTime = s.SessionStartTime
	m.stageStartTime = s.StageStartTime
	m.pausedAt = s.PausedAt
	m.totalPaused = time.Duration(s.TotalPausedMs) * time.Millisecond
	if s.ActualDurations != nil {
		m.actualDurations = s.ActualDurations.Clone()
	}
	m.distractions = append([]Distraction(nil), s.Distractions...)
	m.skippedStages = append([]Stage(nil), s.SkippedStages...)
	if s.StageNotes != nil {
		m.stageNotes = cloneStageNotes(s.StageNotes)
	}
	m.pauseCount = s.PauseCount
	m.midPeakCheckpoint = s.MidPeakCheckpoint
	m.momentum = s.Momentum
	m.momentumEligible = s.MomentumEligible
	m.recoveryActivities = append([]RecoveryActivity(nil), s.RecoveryActivity...)
}

// validateAndRepairSnapshot fixes inconsistencies in a loaded snapshot.
func validateAndRepairSnapshot(s *SessionSnapshot) {
	repairs := 0

	switch s.Status {
	case StatusIdle, StatusRunning, StatusPaused, StatusCompleted:
	default:
		log.Printf("Invalid status %q in snapshot, resetting to idle", s.Status)
		s.Status = StatusIdle
		repairs++
	}

	if s.Status == StatusIdle {
		if s.CurrentStage != "" || s.CurrentStageIndex != -1 {
			s.CurrentStage = ""
			s.CurrentStageIndex = -1
			repairs++
		}
	} else if s.CurrentStage != "" && !IsValidStage(s.CurrentStage) {
		log.Printf("Invalid stage %q in snapshot, resetting to idle", s.CurrentStage)
		s.Status = StatusIdle
		s.CurrentStage = ""
		s.CurrentStageIndex = -1
		repairs++
	}

	if s.CurrentStage != "" && s.CurrentStageIndex != StageIndex(s.CurrentStage) {
		s.CurrentStageIndex = StageIndex(s.CurrentStage)
		repairs++
	}

	if s.Status == StatusPaused && s.PausedAt.IsZero() {
		log.Printf("Paused snapshot without pause timestamp, resuming as running")
		s.Status = StatusRunning
		repairs++
	}
	if s.Status != StatusPaused && !s.PausedAt.IsZero() {
		s.PausedAt = time.Time{}
		repairs++
	}

	if s.TotalPausedMs < 0 {
		s.TotalPausedMs = 0
		repairs++
	}
	if s.PauseCount < 0 {
		s.PauseCount = 0
		repairs++
	}

	if repairs > 0 {
		log.Printf("Repaired %d inconsistencies in session snapshot", repairs)
	}
}

const sessionSnapshotKey = "ultradian:timerState"

// RedisSnapshotStore persists the live session snapshot in Redis.
type RedisSnapshotStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisSnapshotStore connects to Redis and verifies the connection.
func NewRedisSnapshotStore(addr string) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Connected to Redis at %s", addr)
	return &RedisSnapshotStore{client: client, ctx: ctx}, nil
}

// Close closes the Redis connection.
func (rs *RedisSnapshotStore) Close() error {
	return rs.client.Close()
}

// SaveSession writes the snapshot. Last write wins; the runner treats
// failures as fire-and-forget.
func (rs *RedisSnapshotStore) SaveSession(snapshot *SessionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	if err := rs.client.Set(rs.ctx, sessionSnapshotKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

// LoadSession reads the stored snapshot. Returns nil when none exists.
func (rs *RedisSnapshotStore) LoadSession() (*SessionSnapshot, error) {
	payload, err := rs.client.Get(rs.ctx, sessionSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var snapshot SessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &snapshot, nil
}

// ClearSession removes the stored snapshot.
func (rs *RedisSnapshotStore) ClearSession() error {
	if err := rs.client.Del(rs.ctx, sessionSnapshotKey).Err(); err != nil {
		return fmt.Errorf("failed to clear session snapshot: %w", err)
	}
	return nil
}
