package cycle

import (
	"sync"
	"testing"
	"time"
)

// memoryStore is an in-memory SnapshotStore for tests.
type memoryStore struct {
	mu       sync.Mutex
	snapshot *SessionSnapshot
	saves    int
}

func (s *memoryStore) SaveSession(snapshot *SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.saves++
	return nil
}

func (s *memoryStore) LoadSession() (*SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

func (s *memoryStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}

// transitionLog collects runner events safely across goroutines.
type transitionLog struct {
	mu          sync.Mutex
	transitions [][2]Stage
	completed   int
	results     []SessionResult
}

func (l *transitionLog) callbacks() Callbacks {
	return Callbacks{
		OnStageTransition: func(from, to Stage) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.transitions = append(l.transitions, [2]Stage{from, to})
		},
		OnCycleComplete: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.completed++
		},
		OnSessionEnd: func(result SessionResult) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.results = append(l.results, result)
		},
	}
}

func (l *transitionLog) snapshot() ([][2]Stage, int, []SessionResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][2]Stage(nil), l.transitions...), l.completed, append([]SessionResult(nil), l.results...)
}

// newPolledRunner builds a runner over a fake-clock machine so tests
// drive stage expiry with Poll instead of waiting on the real ticker.
func newPolledRunner(t *testing.T, store SnapshotStore) (*Runner, *fakeClock, *transitionLog) {
	t.Helper()
	clock := newFakeClock()
	machine := NewSessionMachineWithClock(clock.Now)
	runner := NewRunnerWithMachine(machine, store)
	logger := &transitionLog{}
	runner.SetCallbacks(logger.callbacks())
	t.Cleanup(runner.Close)
	return runner, clock, logger
}

func TestRunnerAdvancesOnceAtStageExpiry(t *testing.T) {
	runner, clock, logger := newPolledRunner(t, nil)
	template := standardTemplate(t)

	if err := runner.Start(template, testTags()); err != nil {
		t.Fatalf("Expected start to succeed, got %v", err)
	}

	clock.Advance(MinutesToDuration(template.Durations.Get(StageRampUp)))
	runner.Poll()
	runner.Poll() // second poll inside the same expiry must not re-fire

	transitions, completed, _ := logger.snapshot()
	if len(transitions) != 1 {
		t.Fatalf("Expected exactly 1 transition, got %d: %v", len(transitions), transitions)
	}
	if transitions[0] != [2]Stage{StageRampUp, StagePeak} {
		t.Errorf("Expected ramp-up -> peak, got %v", transitions[0])
	}
	if completed != 0 {
		t.Errorf("Expected no completion yet, got %d", completed)
	}
}

func TestRunnerEmitsCompletionAfterLastStage(t *testing.T) {
	runner, clock, logger := newPolledRunner(t, nil)
	template := standardTemplate(t)
	runner.Start(template, testTags())

	for _, stage := range StageOrder {
		clock.Advance(MinutesToDuration(template.Durations.Get(stage)))
		runner.Poll()
	}
	runner.Poll() // idle-completed machine ignores further polls

	transitions, completed, _ := logger.snapshot()
	if len(transitions) != len(StageOrder)-1 {
		t.Errorf("Expected %d transitions, got %d: %v", len(StageOrder)-1, len(transitions), transitions)
	}
	if completed != 1 {
		t.Errorf("Expected exactly 1 cycle completion, got %d", completed)
	}
	if runner.Machine().Status() != StatusCompleted {
		t.Errorf("Expected completed machine, got %s", runner.Machine().Status())
	}
}

func TestRunnerMidPeakCheckpoint(t *testing.T) {
	runner, clock, _ := newPolledRunner(t, nil)
	template := standardTemplate(t)
	runner.Start(template, testTags())

	clock.Advance(MinutesToDuration(template.Durations.Get(StageRampUp)))
	runner.Poll()

	clock.Advance(29 * time.Minute)
	runner.Poll()
	if runner.Machine().MidPeakCheckpointReached() {
		t.Error("Expected no checkpoint before 30 peak minutes")
	}

	clock.Advance(time.Minute)
	runner.Poll()
	if !runner.Machine().MidPeakCheckpointReached() {
		t.Error("Expected checkpoint at 30 peak minutes")
	}
}

func TestRunnerEndClearsSnapshotAndEmitsResult(t *testing.T) {
	store := &memoryStore{}
	runner, clock, logger := newPolledRunner(t, store)
	runner.Start(standardTemplate(t), testTags())

	clock.Advance(5 * time.Minute)
	result, ended := runner.End()
	if !ended {
		t.Fatal("Expected End to terminate the session")
	}
	if result.Completed {
		t.Error("Expected early-stopped result")
	}

	if snap, _ := store.LoadSession(); snap != nil {
		t.Error("Expected snapshot cleared after End")
	}

	_, _, results := logger.snapshot()
	if len(results) != 1 {
		t.Fatalf("Expected 1 OnSessionEnd result, got %d", len(results))
	}
	if results[0].EndedAtStage != StageRampUp {
		t.Errorf("Expected result ended at ramp-up, got %s", results[0].EndedAtStage)
	}

	if _, ended := runner.End(); ended {
		t.Error("Expected second End to report no active session")
	}
}

func TestRunnerMomentumReArmsWatcher(t *testing.T) {
	runner, clock, logger := newPolledRunner(t, nil)
	template := standardTemplate(t)
	runner.Start(template, testTags())

	clock.Advance(MinutesToDuration(template.Durations.Get(StageRampUp)))
	runner.Poll()
	clock.Advance(MinutesToDuration(template.Durations.Get(StagePeak)))
	runner.Poll()

	if !runner.CheckMomentumEligibility(5) {
		t.Fatal("Expected momentum eligibility")
	}
	runner.AcceptMomentumExtension(10)

	// The extension window expires like a normal stage.
	clock.Advance(10 * time.Minute)
	runner.Poll()

	transitions, _, _ := logger.snapshot()
	last := transitions[len(transitions)-1]
	if last != [2]Stage{StagePeak, StageDownshift} {
		t.Errorf("Expected peak -> downshift after extension expiry, got %v", last)
	}
}

func TestRunnerSavesSnapshots(t *testing.T) {
	store := &memoryStore{}
	runner, clock, _ := newPolledRunner(t, store)
	runner.Start(standardTemplate(t), testTags())

	clock.Advance(time.Minute)
	runner.Pause()
	runner.Resume()
	runner.LogDistraction("phone")

	snap, err := store.LoadSession()
	if err != nil {
		t.Fatalf("Expected snapshot load to succeed, got %v", err)
	}
	if snap == nil {
		t.Fatal("Expected a stored snapshot")
	}
	if snap.PauseCount != 1 {
		t.Errorf("Expected snapshot pause count 1, got %d", snap.PauseCount)
	}
	if len(snap.Distractions) != 1 {
		t.Errorf("Expected 1 snapshot distraction, got %d", len(snap.Distractions))
	}
}

func TestRunnerRestoreFromStore(t *testing.T) {
	store := &memoryStore{}

	// First runner lives a session and then dies without ending it.
	first, clock, _ := newPolledRunner(t, store)
	template := standardTemplate(t)
	first.Start(template, testTags())
	clock.Advance(5 * time.Minute)
	first.LogDistraction("email")
	first.Close()

	// Second runner resumes from the persisted snapshot.
	second := NewRunnerWithMachine(NewSessionMachineWithClock(clock.Now), store)
	defer second.Close()

	resumed, err := second.RestoreFromStore()
	if err != nil {
		t.Fatalf("Expected restore to succeed, got %v", err)
	}
	if !resumed {
		t.Fatal("Expected a live session to resume")
	}

	m := second.Machine()
	if m.Status() != StatusRunning {
		t.Errorf("Expected running after restore, got %s", m.Status())
	}
	if m.CurrentStage() != StageRampUp {
		t.Errorf("Expected ramp-up after restore, got %s", m.CurrentStage())
	}
	if got := m.ElapsedStage(); got != 5*time.Minute {
		t.Errorf("Expected elapsed 5m carried across restore, got %v", got)
	}
	if len(m.Distractions()) != 1 {
		t.Errorf("Expected distraction log carried across restore, got %d", len(m.Distractions()))
	}
}

func TestRunnerRestoreWithEmptyStore(t *testing.T) {
	runner := NewRunner(&memoryStore{})
	defer runner.Close()

	resumed, err := runner.RestoreFromStore()
	if err != nil {
		t.Fatalf("Expected no error on empty store, got %v", err)
	}
	if resumed {
		t.Error("Expected nothing to resume from an empty store")
	}
}
