package cycle

import (
	"errors"
	"sync"
	"time"
)

// Status represents the lifecycle state of the session machine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ErrSessionActive is returned by Start when a session is already in
// flight. The machine never silently overwrites live state.
var ErrSessionActive = errors.New("a session is already active")

const defaultMomentumMinutes = 10

// SessionMachine owns the single live ultradian session: current stage,
// drift-corrected timestamps, pause ledger, distraction log and momentum
// state. All time queries recompute from absolute timestamps, never from
// accumulated tick deltas, so a starved or backgrounded poller cannot
// drift the clock.
//
// The machine performs no I/O. Side effects are the responsibility of the
// Runner and its callbacks.
type SessionMachine struct {
	mu  sync.RWMutex
	now func() time.Time

	status            Status
	template          *Template
	tags              SessionTags
	currentStage      Stage // empty when idle or completed
	currentStageIndex int   // -1 idle, len(StageOrder) completed

	sessionStartTime time.Time
	stageStartTime   time.Time
	pausedAt         time.Time     // zero unless status is paused
	totalPaused      time.Duration // within the current stage only

	actualDurations StageDurations // minutes, additive across peak re-entry

	distractions       []Distraction
	skippedStages      []Stage
	stageNotes         map[Stage]string
	pauseCount         int
	midPeakCheckpoint  bool
	momentum           *MomentumExtension
	momentumEligible   bool
	recoveryActivities []RecoveryActivity
}

// SessionResult is the end-of-session handoff: everything the caller
// needs to persist a FocusRecord before the machine resets to idle.
type SessionResult struct {
	Template           Template
	Tags               SessionTags
	StartedAt          time.Time
	ActualDurations    StageDurations
	EndedAtStage       Stage // empty when the cycle completed naturally
	Completed          bool
	Distractions       []Distraction
	SkippedStages      []Stage
	StageNotes         map[Stage]string
	PauseCount         int
	MidPeakCheckpoint  bool
	Momentum           *MomentumExtension
	RecoveryActivities []RecoveryActivity
	Friction           FrictionLevel
}

// NewSessionMachine creates an idle session machine.
func NewSessionMachine() *SessionMachine {
	return NewSessionMachineWithClock(time.Now)
}

// NewSessionMachineWithClock creates a machine with an injected clock so
// tests can drive elapsed time deterministically.
func NewSessionMachineWithClock(now func() time.Time) *SessionMachine {
	m := &SessionMachine{now: now}
	m.resetLocked()
	return m
}

// resetLocked restores the idle defaults. Caller must hold the lock
// (or be inside the constructor).
func (m *SessionMachine) resetLocked() {
	m.status = StatusIdle
	m.template = nil
	m.tags = SessionTags{}
	m.currentStage = ""
	m.currentStageIndex = -1
	m.sessionStartTime = time.Time{}
	m.stageStartTime = time.Time{}
	m.pausedAt = time.Time{}
	m.totalPaused = 0
	m.actualDurations = StageDurations{}
	m.distractions = nil
	m.skippedStages = nil
	m.stageNotes = map[Stage]string{}
	m.pauseCount = 0
	m.midPeakCheckpoint = false
	m.momentum = nil
	m.momentumEligible = false
	m.recoveryActivities = nil
}

// Start begins a new session from idle. Returns ErrSessionActive when a
// session is already in flight.
func (m *SessionMachine) Start(template Template, tags SessionTags) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusIdle {
		return ErrSessionActive
	}
	if err := tags.Validate(); err != nil {
		return err
	}

	now := m.now()
	m.resetLocked()
	m.status = StatusRunning
	m.template = &template
	m.tags = tags
	m.currentStage = StageOrder[0]
	m.currentStageIndex = 0
	m.sessionStartTime = now
	m.stageStartTime = now
	return nil
}

// Pause records the pause timestamp and increments the pause counter.
// No-op unless running.
func (m *SessionMachine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusRunning {
		return
	}
	m.status = StatusPaused
	m.pausedAt = m.now()
	m.pauseCount++
}

// Resume folds the completed pause into the ledger and continues the
// stage. No-op unless paused.
func (m *SessionMachine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusPaused || m.pausedAt.IsZero() {
		return
	}
	m.totalPaused += m.now().Sub(m.pausedAt)
	m.pausedAt = time.Time{}
	m.status = StatusRunning
}

// ElapsedStage returns the drift-corrected time spent in the current
// stage, excluding paused time. Never negative.
func (m *SessionMachine) ElapsedStage() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elapsedStageLocked()
}

func (m *SessionMachine) elapsedStageLocked() time.Duration {
	if m.stageStartTime.IsZero() {
		return 0
	}

	var elapsed time.Duration
	if m.status == StatusPaused && !m.pausedAt.IsZero() {
		elapsed = m.pausedAt.Sub(m.stageStartTime) - m.totalPaused
	} else {
		elapsed = m.now().Sub(m.stageStartTime) - m.totalPaused
	}

	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// CurrentStageDuration returns the planned duration of the current stage.
func (m *SessionMachine) CurrentStageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentStageDurationLocked()
}

func (m *SessionMachine) currentStageDurationLocked() time.Duration {
	if m.template == nil || m.currentStage == "" {
		return 0
	}
	// A peak re-entered through a momentum extension runs for the
	// extension length, not the full planned peak.
	if m.currentStage == StagePeak && m.momentum != nil && m.momentum.Accepted {
		return time.Duration(m.momentum.ExtraMinutes) * time.Minute
	}
	return MinutesToDuration(m.template.Durations.Get(m.currentStage))
}

// RemainingStage returns the planned time left in the current stage,
// clamped at zero.
func (m *SessionMachine) RemainingStage() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	remaining := m.currentStageDurationLocked() - m.elapsedStageLocked()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns elapsed/planned for the current stage in [0, 1].
// Zero when the planned duration is zero.
func (m *SessionMachine) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.currentStageDurationLocked()
	if total <= 0 {
		return 0
	}
	progress := float64(m.elapsedStageLocked()) / float64(total)
	if progress > 1 {
		return 1
	}
	return progress
}

// commitStageLocked adds the elapsed minutes of the current stage into
// the actual-duration ledger. Additive, so a momentum re-entry into peak
// accumulates across both visits.
func (m *SessionMachine) commitStageLocked() {
	if m.currentStage == "" || m.stageStartTime.IsZero() {
		return
	}
	m.actualDurations[m.currentStage] += m.elapsedStageLocked().Minutes()
}

// AdvanceToNextStage commits the finished stage and moves forward.
// Returns false when the finished stage was the last one, in which case
// the machine is completed. This is the single place where per-stage
// bookkeeping happens on a clean transition.
func (m *SessionMachine) AdvanceToNextStage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceLocked()
}

func (m *SessionMachine) advanceLocked() bool {
	m.commitStageLocked()

	nextIndex := m.currentStageIndex + 1
	if nextIndex >= len(StageOrder) {
		m.status = StatusCompleted
		m.currentStage = ""
		m.currentStageIndex = len(StageOrder)
		return false
	}

	m.status = StatusRunning
	m.currentStage = StageOrder[nextIndex]
	m.currentStageIndex = nextIndex
	m.stageStartTime = m.now()
	m.pausedAt = time.Time{}
	m.totalPaused = 0
	return true
}

// SkipStage commits the current stage's elapsed minutes exactly as a
// natural completion would, marks it skipped for friction accounting,
// then advances. Valid while running or paused; otherwise a no-op.
func (m *SessionMachine) SkipStage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusRunning && m.status != StatusPaused {
		return false
	}
	m.markStageSkippedLocked(m.currentStage)
	return m.advanceLocked()
}

// LogDistraction appends a timestamped entry to the distraction log.
// Allowed in any stage.
func (m *SessionMachine) LogDistraction(note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distractions = append(m.distractions, Distraction{Timestamp: m.now(), Note: note})
}

// SetMidPeakCheckpoint idempotently marks the mid-peak checkpoint as
// reached. The runner invokes this once elapsed-in-peak crosses the
// configured threshold.
func (m *SessionMachine) SetMidPeakCheckpoint() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midPeakCheckpoint = true
}

// MarkStageSkipped records a stage in the skipped set, once.
func (m *SessionMachine) MarkStageSkipped(stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markStageSkippedLocked(stage)
}

func (m *SessionMachine) markStageSkippedLocked(stage Stage) {
	if stage == "" {
		return
	}
	for _, s := range m.skippedStages {
		if s == stage {
			return
		}
	}
	m.skippedStages = append(m.skippedStages, stage)
}

// SetStageNote attaches free text to a stage, replacing any prior note.
func (m *SessionMachine) SetStageNote(stage Stage, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageNotes[stage] = note
}

// CheckMomentumEligibility evaluates whether the user qualifies for a
// peak re-entry: no pauses, peak finished (in downshift, or actual peak
// time at 90% of plan), energy of 4 or above, and peak not skipped. The
// result is cached on the machine.
func (m *SessionMachine) CheckMomentumEligibility(energy int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	noPauses := m.pauseCount == 0

	peakDone := m.currentStage == StageDownshift
	if !peakDone && m.template != nil {
		if actual, ok := m.actualDurations[StagePeak]; ok {
			peakDone = actual >= m.template.Durations.Get(StagePeak)*0.9
		}
	}

	peakSkipped := false
	for _, s := range m.skippedStages {
		if s == StagePeak {
			peakSkipped = true
			break
		}
	}

	eligible := noPauses && peakDone && energy >= 4 && !peakSkipped
	m.momentumEligible = eligible
	return eligible
}

// AcceptMomentumExtension records the accepted extension and re-enters
// the peak stage with a fresh stage window. This is the one legal rewind
// in the otherwise forward-only stage order.
func (m *SessionMachine) AcceptMomentumExtension(extraMinutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if extraMinutes <= 0 {
		extraMinutes = defaultMomentumMinutes
	}
	m.momentum = &MomentumExtension{Triggered: true, Accepted: true, ExtraMinutes: extraMinutes}
	m.momentumEligible = false

	if m.template == nil {
		return
	}
	m.status = StatusRunning
	m.currentStage = StagePeak
	m.currentStageIndex = StageIndex(StagePeak)
	m.stageStartTime = m.now()
	m.pausedAt = time.Time{}
	m.totalPaused = 0
}

// DeclineMomentumExtension records the declined offer without changing
// stage progression.
func (m *SessionMachine) DeclineMomentumExtension() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.momentum = &MomentumExtension{Triggered: true, Accepted: false, ExtraMinutes: 0}
	m.momentumEligible = false
}

// SetRecoveryActivities replaces the recovery-activity list wholesale.
func (m *SessionMachine) SetRecoveryActivities(activities []RecoveryActivity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveryActivities = append([]RecoveryActivity(nil), activities...)
}

// CalculateFrictionLevel scores how disrupted the session was:
// 2 per pause, 3 per skipped stage, 1 per distraction, plus 2 when the
// cycle did not complete. Low at 2 or less, medium at 5 or less,
// high otherwise.
func (m *SessionMachine) CalculateFrictionLevel() FrictionLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frictionLevelLocked()
}

func (m *SessionMachine) frictionLevelLocked() FrictionLevel {
	score := m.pauseCount*2 + len(m.skippedStages)*3 + len(m.distractions)
	if m.status != StatusCompleted {
		score += 2
	}

	switch {
	case score <= 2:
		return FrictionLow
	case score <= 5:
		return FrictionMedium
	default:
		return FrictionHigh
	}
}

// EndSession commits any in-progress stage, captures the full session
// outcome and resets the machine to idle. The second return value is
// false when there was no session to end. The caller owns persisting a
// FocusRecord from the result; the machine itself performs no I/O.
func (m *SessionMachine) EndSession() (SessionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusIdle {
		return SessionResult{}, false
	}

	m.commitStageLocked()

	result := SessionResult{
		Tags:               m.tags,
		StartedAt:          m.sessionStartTime,
		ActualDurations:    m.actualDurations.Clone(),
		EndedAtStage:       m.currentStage,
		Completed:          m.status == StatusCompleted,
		Distractions:       append([]Distraction(nil), m.distractions...),
		SkippedStages:      append([]Stage(nil), m.skippedStages...),
		StageNotes:         cloneStageNotes(m.stageNotes),
		PauseCount:         m.pauseCount,
		MidPeakCheckpoint:  m.midPeakCheckpoint,
		Momentum:           m.momentum,
		RecoveryActivities: append([]RecoveryActivity(nil), m.recoveryActivities...),
		Friction:           m.frictionLevelLocked(),
	}
	if m.template != nil {
		result.Template = *m.template
	}

	m.resetLocked()
	return result, true
}

func cloneStageNotes(notes map[Stage]string) map[Stage]string {
	if len(notes) == 0 {
		return nil
	}
	out := make(map[Stage]string, len(notes))
	for stage, note := range notes {
		out[stage] = note
	}
	return out
}

// Status returns the current lifecycle state.
func (m *SessionMachine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// CurrentStage returns the active stage, empty when idle or completed.
func (m *SessionMachine) CurrentStage() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentStage
}

// CurrentStageIndex returns the stage index: -1 when idle, the stage
// count when completed.
func (m *SessionMachine) CurrentStageIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentStageIndex
}

// Template returns the session's template, nil when idle.
func (m *SessionMachine) Template() *Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.template
}

// Tags returns the session tags captured at start.
func (m *SessionMachine) Tags() SessionTags {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tags
}

// PauseCount returns the number of pause actions this session.
func (m *SessionMachine) PauseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pauseCount
}

// Distractions returns a copy of the distraction log.
func (m *SessionMachine) Distractions() []Distraction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Distraction(nil), m.distractions...)
}

// SkippedStages returns a copy of the skipped set.
func (m *SessionMachine) SkippedStages() []Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Stage(nil), m.skippedStages...)
}

// ActualDurations returns a copy of the committed per-stage minutes.
func (m *SessionMachine) ActualDurations() StageDurations {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.actualDurations.Clone()
}

// MomentumEligible returns the last-computed eligibility.
func (m *SessionMachine) MomentumEligible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.momentumEligible
}

// Momentum returns the recorded extension decision, nil when never
// triggered.
func (m *SessionMachine) Momentum() *MomentumExtension {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.momentum
}

// MidPeakCheckpointReached reports whether the checkpoint flag is set.
func (m *SessionMachine) MidPeakCheckpointReached() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.midPeakCheckpoint
}

// RecoveryActivities returns a copy of the recovery-activity list.
func (m *SessionMachine) RecoveryActivities() []RecoveryActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecoveryActivity(nil), m.recoveryActivities...)
}
