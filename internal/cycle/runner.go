package cycle

import (
	"context"
	"log"
	"sync"
	"time"
)

// pollInterval is the watcher cadence. Completion is detected by polling
// remaining time against zero, never by a scheduled callback, so a
// starved process picks up exactly where the timestamps say it should.
const pollInterval = 100 * time.Millisecond

// SnapshotStore persists the live session for crash/reload recovery.
// Saves are fire-and-forget from the runner's perspective.
type SnapshotStore interface {
	SaveSession(snapshot *SessionSnapshot) error
	LoadSession() (*SessionSnapshot, error)
	ClearSession() error
}

// Callbacks are the discrete events the runner emits. The runner itself
// never performs audio or notification side effects; callers map these
// to whatever output they want.
type Callbacks struct {
	OnTick            func(remaining time.Duration)
	OnStageTransition func(from, to Stage)
	OnCycleComplete   func()
	OnSessionEnd      func(result SessionResult)
}

// Runner drives a SessionMachine with a polling watcher: a 100ms ticker
// reads the machine's remaining time and fires AdvanceToNextStage exactly
// once per stage expiry, guarded by a latch.
type Runner struct {
	mu sync.Mutex

	machine   *SessionMachine
	callbacks Callbacks
	store     SnapshotStore

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker

	// latch state: the stage window the last advance fired for
	firedStage Stage
	firedIndex int
}

// NewRunner creates a runner around a fresh machine. store may be nil
// for a purely in-memory runner.
func NewRunner(store SnapshotStore) *Runner {
	return &Runner{
		machine:    NewSessionMachine(),
		store:      store,
		firedIndex: -1,
	}
}

// NewRunnerWithMachine wires a runner around an existing machine, used by
// tests and by resume-from-snapshot.
func NewRunnerWithMachine(machine *SessionMachine, store SnapshotStore) *Runner {
	return &Runner{
		machine:    machine,
		store:      store,
		firedIndex: -1,
	}
}

// SetCallbacks installs the event callbacks. Call before Start.
func (r *Runner) SetCallbacks(cb Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = cb
}

// Machine exposes the underlying session machine for read queries.
func (r *Runner) Machine() *SessionMachine {
	return r.machine
}

// Start begins a new session and launches the watcher loop.
func (r *Runner) Start(template Template, tags SessionTags) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.machine.Start(template, tags); err != nil {
		return err
	}

	r.resetLatchLocked()
	r.startWatcherLocked()
	r.saveSnapshot()

	log.Printf("Started %s session on %q (%s)", template.Name, tags.Topic, tags.TaskType)
	return nil
}

// RestoreFromStore reloads a persisted session from the snapshot store,
// re-arming the watcher when the restored session is still live. Returns
// true when a live session was resumed.
func (r *Runner) RestoreFromStore() (bool, error) {
	if r.store == nil {
		return false, nil
	}

	snap, err := r.store.LoadSession()
	if err != nil || snap == nil {
		return false, err
	}
	r.machine.RestoreSnapshot(snap)

	status := r.machine.Status()
	if status != StatusRunning && status != StatusPaused {
		return false, nil
	}

	r.mu.Lock()
	r.resetLatchLocked()
	r.startWatcherLocked()
	r.mu.Unlock()

	log.Printf("Resumed %s session on %q from snapshot", status, r.machine.Tags().Topic)
	return true, nil
}

// Pause pauses the live session.
func (r *Runner) Pause() {
	r.machine.Pause()
	r.saveSnapshot()
}

// Resume continues a paused session.
func (r *Runner) Resume() {
	r.machine.Resume()
	r.saveSnapshot()
}

// SkipStage skips the current stage and advances, emitting the same
// events as a natural transition.
func (r *Runner) SkipStage() {
	from := r.machine.CurrentStage()
	advanced := r.machine.SkipStage()
	r.afterAdvance(from, advanced)
}

// LogDistraction forwards to the machine and snapshots.
func (r *Runner) LogDistraction(note string) {
	r.machine.LogDistraction(note)
	r.saveSnapshot()
}

// SetStageNote forwards to the machine and snapshots.
func (r *Runner) SetStageNote(stage Stage, note string) {
	r.machine.SetStageNote(stage, note)
	r.saveSnapshot()
}

// SetRecoveryActivities forwards to the machine and snapshots.
func (r *Runner) SetRecoveryActivities(activities []RecoveryActivity) {
	r.machine.SetRecoveryActivities(activities)
	r.saveSnapshot()
}

// CheckMomentumEligibility forwards to the machine.
func (r *Runner) CheckMomentumEligibility(energy int) bool {
	eligible := r.machine.CheckMomentumEligibility(energy)
	r.saveSnapshot()
	return eligible
}

// AcceptMomentumExtension rewinds into peak and re-arms the latch for
// the fresh stage window.
func (r *Runner) AcceptMomentumExtension(extraMinutes int) {
	r.machine.AcceptMomentumExtension(extraMinutes)

	r.mu.Lock()
	r.resetLatchLocked()
	r.mu.Unlock()

	r.saveSnapshot()
	log.Printf("Momentum extension accepted: re-entering peak for %d extra minutes", extraMinutes)
}

// DeclineMomentumExtension records the declined offer.
func (r *Runner) DeclineMomentumExtension() {
	r.machine.DeclineMomentumExtension()
	r.saveSnapshot()
}

// End terminates the session (the only cancellation primitive), stops
// the watcher and hands the result to OnSessionEnd for persistence.
func (r *Runner) End() (SessionResult, bool) {
	r.mu.Lock()
	r.stopWatcherLocked()
	cb := r.callbacks
	r.mu.Unlock()

	result, ended := r.machine.EndSession()
	if !ended {
		return SessionResult{}, false
	}

	if r.store != nil {
		if err := r.store.ClearSession(); err != nil {
			log.Printf("Failed to clear session snapshot: %v", err)
		}
	}
	if cb.OnSessionEnd != nil {
		cb.OnSessionEnd(result)
	}

	log.Printf("Ended session on %q: completed=%v, friction=%s", result.Tags.Topic, result.Completed, result.Friction)
	return result, true
}

// Poll forces one immediate recomputation, used when the host regains
// scheduling instead of waiting for the next tick.
func (r *Runner) Poll() {
	r.tick()
}

// Close stops the watcher without ending the session. The machine's
// timestamps keep the session recoverable via the snapshot store.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopWatcherLocked()
}

func (r *Runner) startWatcherLocked() {
	r.stopWatcherLocked()

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.ticker = time.NewTicker(pollInterval)
	go r.watch(r.ctx, r.ticker)
}

func (r *Runner) stopWatcherLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Runner) resetLatchLocked() {
	r.firedStage = ""
	r.firedIndex = -1
}

func (r *Runner) watch(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-ctx.Done():
			return
		}
	}
}

// tick is one watcher pass: emit the display tick, detect the mid-peak
// checkpoint, and fire the stage advance once when remaining time first
// reaches zero.
func (r *Runner) tick() {
	if r.machine.Status() != StatusRunning {
		return
	}

	remaining := r.machine.RemainingStage()

	r.mu.Lock()
	cb := r.callbacks
	r.mu.Unlock()

	if cb.OnTick != nil {
		cb.OnTick(remaining)
	}

	stage := r.machine.CurrentStage()
	if stage == StagePeak && !r.machine.MidPeakCheckpointReached() {
		if r.machine.ElapsedStage() >= MinutesToDuration(MidPeakCheckpointMinutes) {
			r.machine.SetMidPeakCheckpoint()
			r.saveSnapshot()
		}
	}

	if remaining > 0 {
		return
	}

	r.mu.Lock()
	index := r.machine.CurrentStageIndex()
	if r.firedStage == stage && r.firedIndex == index {
		r.mu.Unlock()
		return
	}
	r.firedStage = stage
	r.firedIndex = index
	r.mu.Unlock()

	advanced := r.machine.AdvanceToNextStage()
	r.afterAdvance(stage, advanced)
}

func (r *Runner) afterAdvance(from Stage, advanced bool) {
	r.mu.Lock()
	cb := r.callbacks
	if advanced {
		r.resetLatchLocked()
	}
	r.mu.Unlock()

	r.saveSnapshot()

	if advanced {
		to := r.machine.CurrentStage()
		log.Printf("Stage transition: %s -> %s", from, to)
		if cb.OnStageTransition != nil {
			cb.OnStageTransition(from, to)
		}
		return
	}

	log.Printf("Cycle complete after %s", from)
	if cb.OnCycleComplete != nil {
		cb.OnCycleComplete()
	}
}

func (r *Runner) saveSnapshot() {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSession(r.machine.Snapshot()); err != nil {
		log.Printf("Failed to save session snapshot: %v", err)
	}
}
