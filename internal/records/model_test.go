package records

import (
	"testing"
	"time"

	"ultradianService/internal/cycle"
)

func sampleResult(t *testing.T, completed bool) cycle.SessionResult {
	t.Helper()
	template, err := cycle.TemplateByID("standard-90")
	if err != nil {
		t.Fatalf("Expected standard-90 template, got %v", err)
	}

	result := cycle.SessionResult{
		Template:  template,
		StartedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
		Tags: cycle.SessionTags{
			Topic:            "calculus review",
			TaskType:         cycle.TaskLearning,
			PreSessionEnergy: 4,
		},
		ActualDurations: cycle.StageDurations{
			cycle.StageRampUp:    15,
			cycle.StagePeak:      45,
			cycle.StageDownshift: 15,
			cycle.StageRecovery:  20,
		},
		Completed: completed,
		Friction:  cycle.FrictionLow,
	}
	if !completed {
		result.EndedAtStage = cycle.StagePeak
	}
	return result
}

func TestNewFromSessionCompleted(t *testing.T) {
	record := NewFromSession(sampleResult(t, true), "")

	if record.ID == "" {
		t.Error("Expected a generated record ID")
	}
	if !record.Completed || record.EndedEarly {
		t.Errorf("Expected completed record, got completed=%v endedEarly=%v", record.Completed, record.EndedEarly)
	}
	if record.CompletedAt == nil {
		t.Error("Expected completedAt to be set")
	}
	if record.RecoveryOutcome != RecoveryFull {
		t.Errorf("Expected full recovery outcome, got %s", record.RecoveryOutcome)
	}
	if record.EarlyStopReason != "" {
		t.Errorf("Expected no early stop reason, got %s", record.EarlyStopReason)
	}
	if !record.CreatedAt.Equal(time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)) {
		t.Errorf("Expected createdAt to be the session start, got %v", record.CreatedAt)
	}
}

func TestNewFromSessionEarlyStop(t *testing.T) {
	record := NewFromSession(sampleResult(t, false), StopFatigue)

	if record.Completed || !record.EndedEarly {
		t.Error("Expected early-stopped record")
	}
	if record.EarlyStopReason != StopFatigue {
		t.Errorf("Expected fatigue reason, got %s", record.EarlyStopReason)
	}
	if record.CompletedAt != nil {
		t.Error("Expected no completedAt on early stop")
	}
	if record.RecoveryOutcome != "" {
		t.Errorf("Expected no recovery outcome on early stop, got %s", record.RecoveryOutcome)
	}
	if record.EndedAtStage != cycle.StagePeak {
		t.Errorf("Expected ended at peak, got %s", record.EndedAtStage)
	}
}

func TestClassifyRecovery(t *testing.T) {
	cases := []struct {
		planned float64
		actual  float64
		want    RecoveryOutcome
	}{
		{20, 20, RecoveryFull},
		{20, 18, RecoveryFull}, // exactly 90%
		{20, 15, RecoveryShortened},
		{20, 9.9, RecoverySkipped},
		{20, 0, RecoverySkipped},
		{0, 10, RecoverySkipped}, // zero plan never divides
	}
	for _, c := range cases {
		if got := ClassifyRecovery(c.planned, c.actual); got != c.want {
			t.Errorf("ClassifyRecovery(%.1f, %.1f): expected %s, got %s", c.planned, c.actual, c.want, got)
		}
	}
}

func TestPeakCompletionRatio(t *testing.T) {
	record := NewFromSession(sampleResult(t, true), "")
	if got := record.PeakCompletionRatio(); got != 1 {
		t.Errorf("Expected peak completion 1.0, got %.3f", got)
	}

	record.ActualDurations[cycle.StagePeak] = 22.5
	if got := record.PeakCompletionRatio(); got != 0.5 {
		t.Errorf("Expected peak completion 0.5, got %.3f", got)
	}

	record.PlannedDurations[cycle.StagePeak] = 0
	if got := record.PeakCompletionRatio(); got != 0 {
		t.Errorf("Expected zero-guarded ratio, got %.3f", got)
	}
}

func filterFixture(t *testing.T) []FocusRecord {
	t.Helper()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)

	mk := func(day int, topic string, taskType cycle.TaskType, completed bool, peak float64) FocusRecord {
		r := NewFromSession(sampleResult(t, completed), StopOther)
		r.CreatedAt = base.AddDate(0, 0, day)
		r.Tags.Topic = topic
		r.Tags.TaskType = taskType
		r.Completed = completed
		r.ActualDurations[cycle.StagePeak] = peak
		return r
	}

	return []FocusRecord{
		mk(0, "algebra", cycle.TaskLearning, true, 45),
		mk(2, "essay", cycle.TaskCreative, false, 10),
		mk(4, "email", cycle.TaskAdministrative, true, 30),
		mk(6, "algebra", cycle.TaskLearning, false, 20),
	}
}

func TestApplyFilters(t *testing.T) {
	recs := filterFixture(t)

	from := time.Date(2025, 3, 2, 0, 0, 0, 0, time.Local)
	to := time.Date(2025, 3, 5, 0, 0, 0, 0, time.Local)
	got := ApplyFilters(recs, Filters{DateStart: &from, DateEnd: &to})
	if len(got) != 2 {
		t.Errorf("Expected 2 records in range, got %d", len(got))
	}

	got = ApplyFilters(recs, Filters{TaskTypes: []cycle.TaskType{cycle.TaskLearning}})
	if len(got) != 2 {
		t.Errorf("Expected 2 learning records, got %d", len(got))
	}

	got = ApplyFilters(recs, Filters{Topics: []string{"algebra"}, CompletedOnly: true})
	if len(got) != 1 {
		t.Errorf("Expected 1 completed algebra record, got %d", len(got))
	}

	got = ApplyFilters(recs, Filters{})
	if len(got) != len(recs) {
		t.Errorf("Expected empty filters to pass everything, got %d", len(got))
	}
}

func TestSortRecords(t *testing.T) {
	recs := filterFixture(t)

	SortRecords(recs, DefaultSort)
	for i := 1; i < len(recs); i++ {
		if recs[i].CreatedAt.After(recs[i-1].CreatedAt) {
			t.Fatalf("Expected newest-first order, got %v after %v", recs[i].CreatedAt, recs[i-1].CreatedAt)
		}
	}

	SortRecords(recs, Sort{Field: SortByTopic})
	if recs[0].Tags.Topic != "algebra" {
		t.Errorf("Expected algebra first by topic, got %s", recs[0].Tags.Topic)
	}

	SortRecords(recs, Sort{Field: SortByDuration, Descending: true})
	for i := 1; i < len(recs); i++ {
		if recs[i].Duration() > recs[i-1].Duration() {
			t.Fatalf("Expected longest-first order")
		}
	}
}

func TestUniqueTopics(t *testing.T) {
	topics := UniqueTopics(filterFixture(t))
	want := []string{"algebra", "email", "essay"}
	if len(topics) != len(want) {
		t.Fatalf("Expected %d topics, got %v", len(want), topics)
	}
	for i, topic := range want {
		if topics[i] != topic {
			t.Errorf("Expected topic %q at %d, got %q", topic, i, topics[i])
		}
	}
}
