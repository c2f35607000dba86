package records

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ultradianService/internal/cycle"
)

// SelfReport is the user's one-time post-session reflection.
type SelfReport struct {
	EnergyLevel      int    `json:"energyLevel"` // 1-5
	DistractionCount int    `json:"distractionCount"`
	Notes            string `json:"notes,omitempty"`
}

// Validate checks the report constraints.
func (r SelfReport) Validate() error {
	if r.EnergyLevel < 1 || r.EnergyLevel > 5 {
		return fmt.Errorf("energy level must be between 1 and 5, got %d", r.EnergyLevel)
	}
	if r.DistractionCount < 0 {
		return fmt.Errorf("distraction count cannot be negative")
	}
	return nil
}

// EarlyStopReason categorizes why a session ended before completion.
type EarlyStopReason string

const (
	StopFatigue      EarlyStopReason = "fatigue"
	StopInterruption EarlyStopReason = "interruption"
	StopLossOfFocus  EarlyStopReason = "loss-of-focus"
	StopTaskDone     EarlyStopReason = "task-done"
	StopOther        EarlyStopReason = "other"
)

// RecoveryOutcome classifies how much of the planned recovery was taken.
type RecoveryOutcome string

const (
	RecoveryFull      RecoveryOutcome = "full"
	RecoveryShortened RecoveryOutcome = "shortened"
	RecoverySkipped   RecoveryOutcome = "skipped"
)

// FocusRecord is the immutable-after-creation result of one session.
// It is created once at the end-of-session handoff, optionally amended
// once with a self-report, and thereafter read-only.
type FocusRecord struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	TemplateID       string               `json:"templateId"`
	TemplateName     string               `json:"templateName"`
	PlannedDurations cycle.StageDurations `json:"plannedDurations"`

	ActualDurations cycle.StageDurations `json:"actualDurations"`
	Completed       bool                 `json:"completed"`
	EndedEarly      bool                 `json:"endedEarly"`
	EndedAtStage    cycle.Stage          `json:"endedAtStage,omitempty"`

	Tags       cycle.SessionTags `json:"tags"`
	SelfReport *SelfReport       `json:"selfReport,omitempty"`

	EarlyStopReason    EarlyStopReason          `json:"earlyStopReason,omitempty"`
	SkippedStages      []cycle.Stage            `json:"skippedStages,omitempty"`
	Distractions       []cycle.Distraction      `json:"distractions,omitempty"`
	RecoveryOutcome    RecoveryOutcome          `json:"recoveryOutcome,omitempty"`
	MidPeakCheckpoint  bool                     `json:"midPeakCheckpoint,omitempty"`
	StageNotes         map[cycle.Stage]string   `json:"stageNotes,omitempty"`
	MomentumExtension  *cycle.MomentumExtension `json:"momentumExtension,omitempty"`
	RecoveryActivities []cycle.RecoveryActivity `json:"recoveryActivities,omitempty"`
	FrictionLevel      cycle.FrictionLevel      `json:"frictionLevel,omitempty"`
	PauseCount         int                      `json:"pauseCount"`
}

// NewRecordID generates a store-unique identifier: creation timestamp
// plus a random suffix, so chronological queries can still lean on
// CreatedAt alone.
func NewRecordID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewFromSession builds a FocusRecord from the state machine's
// end-of-session handoff. earlyStopReason may be empty for completed
// sessions.
func NewFromSession(result cycle.SessionResult, earlyStopReason EarlyStopReason) FocusRecord {
	now := time.Now()

	record := FocusRecord{
		ID:                 NewRecordID(),
		CreatedAt:          result.StartedAt,
		TemplateID:         result.Template.ID,
		TemplateName:       result.Template.Name,
		PlannedDurations:   result.Template.Durations.Clone(),
		ActualDurations:    result.ActualDurations.Clone(),
		Completed:          result.Completed,
		EndedEarly:         !result.Completed,
		EndedAtStage:       result.EndedAtStage,
		Tags:               result.Tags,
		SkippedStages:      result.SkippedStages,
		Distractions:       result.Distractions,
		MidPeakCheckpoint:  result.MidPeakCheckpoint,
		StageNotes:         result.StageNotes,
		MomentumExtension:  result.Momentum,
		RecoveryActivities: result.RecoveryActivities,
		FrictionLevel:      result.Friction,
		PauseCount:         result.PauseCount,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if result.Completed {
		record.CompletedAt = &now
		record.RecoveryOutcome = ClassifyRecovery(record.PlannedDurations.Get(cycle.StageRecovery), record.ActualDurations.Get(cycle.StageRecovery))
	} else {
		record.EarlyStopReason = earlyStopReason
	}
	return record
}

// ClassifyRecovery buckets actual recovery against plan: full at 90% or
// more, skipped below 50%, shortened in between.
func ClassifyRecovery(plannedMinutes, actualMinutes float64) RecoveryOutcome {
	if plannedMinutes <= 0 {
		return RecoverySkipped
	}
	ratio := actualMinutes / plannedMinutes
	switch {
	case ratio >= 0.9:
		return RecoveryFull
	case ratio < 0.5:
		return RecoverySkipped
	default:
		return RecoveryShortened
	}
}

// Duration returns the record's total focus time in minutes.
func (r FocusRecord) Duration() float64 {
	return r.ActualDurations.Total()
}

// PeakCompletionRatio returns actual peak minutes over planned peak
// minutes, zero when nothing was planned.
func (r FocusRecord) PeakCompletionRatio() float64 {
	planned := r.PlannedDurations.Get(cycle.StagePeak)
	if planned <= 0 {
		return 0
	}
	return r.ActualDurations.Get(cycle.StagePeak) / planned
}

// Filters narrows a record listing.
type Filters struct {
	DateStart     *time.Time       `json:"dateStart,omitempty"`
	DateEnd       *time.Time       `json:"dateEnd,omitempty"`
	TaskTypes     []cycle.TaskType `json:"taskTypes,omitempty"`
	Topics        []string         `json:"topics,omitempty"`
	CompletedOnly bool             `json:"completedOnly,omitempty"`
}

// SortField names a sortable record attribute.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByTopic     SortField = "topic"
	SortByTaskType  SortField = "taskType"
	SortByEnergy    SortField = "energyLevel"
	SortByDuration  SortField = "totalDuration"
)

// Sort describes a listing order. Descending createdAt is the default.
type Sort struct {
	Field      SortField `json:"field"`
	Descending bool      `json:"descending"`
}

// DefaultSort matches the records table default: newest first.
var DefaultSort = Sort{Field: SortByCreatedAt, Descending: true}

// ApplyFilters returns the records matching all supplied filters.
func ApplyFilters(recs []FocusRecord, f Filters) []FocusRecord {
	out := make([]FocusRecord, 0, len(recs))

	for _, r := range recs {
		if f.DateStart != nil && r.CreatedAt.Before(cycle.StartOfDay(*f.DateStart)) {
			continue
		}
		if f.DateEnd != nil && !r.CreatedAt.Before(cycle.StartOfDay(*f.DateEnd).AddDate(0, 0, 1)) {
			continue
		}
		if len(f.TaskTypes) > 0 && !containsTaskType(f.TaskTypes, r.Tags.TaskType) {
			continue
		}
		if len(f.Topics) > 0 && !containsString(f.Topics, r.Tags.Topic) {
			continue
		}
		if f.CompletedOnly && !r.Completed {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRecords orders records in place according to s.
func SortRecords(recs []FocusRecord, s Sort) {
	sort.SliceStable(recs, func(i, j int) bool {
		c := compareRecords(recs[i], recs[j], s.Field)
		if s.Descending {
			return c > 0
		}
		return c < 0
	})
}

func compareRecords(a, b FocusRecord, field SortField) int {
	switch field {
	case SortByTopic:
		return strings.Compare(strings.ToLower(a.Tags.Topic), strings.ToLower(b.Tags.Topic))
	case SortByTaskType:
		return strings.Compare(string(a.Tags.TaskType), string(b.Tags.TaskType))
	case SortByEnergy:
		return reportEnergy(a) - reportEnergy(b)
	case SortByDuration:
		switch {
		case a.Duration() < b.Duration():
			return -1
		case a.Duration() > b.Duration():
			return 1
		}
		return 0
	default:
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	}
}

func reportEnergy(r FocusRecord) int {
	if r.SelfReport == nil {
		return 0
	}
	return r.SelfReport.EnergyLevel
}

// UniqueTopics returns the sorted distinct non-empty topics in recs.
func UniqueTopics(recs []FocusRecord) []string {
	seen := map[string]bool{}
	var topics []string
	for _, r := range recs {
		topic := strings.TrimSpace(r.Tags.Topic)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// DuplicateTags returns a record's tags for pre-filling a new session.
func DuplicateTags(r FocusRecord) cycle.SessionTags {
	return r.Tags
}

func containsTaskType(types []cycle.TaskType, t cycle.TaskType) bool {
	for _, tt := range types {
		if tt == t {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
