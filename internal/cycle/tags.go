package cycle

import (
	"fmt"
	"strings"
	"time"
)

// TaskType classifies the kind of work a session is for.
type TaskType string

const (
	TaskDeepWork       TaskType = "deep-work"
	TaskCreative       TaskType = "creative"
	TaskAdministrative TaskType = "administrative"
	TaskLearning       TaskType = "learning"
	TaskMeeting        TaskType = "meeting"
	TaskOther          TaskType = "other"
)

// TaskTypes lists all task types in enumeration order.
var TaskTypes = []TaskType{
	TaskDeepWork, TaskCreative, TaskAdministrative, TaskLearning, TaskMeeting, TaskOther,
}

var TaskTypeLabels = map[TaskType]string{
	TaskDeepWork:       "Deep Work",
	TaskCreative:       "Creative",
	TaskAdministrative: "Administrative",
	TaskLearning:       "Learning",
	TaskMeeting:        "Meeting",
	TaskOther:          "Other",
}

// IsValidTaskType reports whether t is one of the known task types.
func IsValidTaskType(t TaskType) bool {
	_, ok := TaskTypeLabels[t]
	return ok
}

// SessionTags is the user-supplied metadata captured at session start.
type SessionTags struct {
	Topic            string   `json:"topic"`
	SubTopic         string   `json:"subTopic,omitempty"`
	TaskType         TaskType `json:"taskType"`
	Goal             string   `json:"goal,omitempty"`
	Intention        string   `json:"intention,omitempty"`
	PreSessionEnergy int      `json:"preSessionEnergy,omitempty"` // 1-5, 0 when unset
}

// Validate checks the tag constraints: non-empty topic after trimming, a
// known task type, and an energy level inside 1-5 when supplied.
func (t SessionTags) Validate() error {
	if strings.TrimSpace(t.Topic) == "" {
		return fmt.Errorf("session topic is required")
	}
	if !IsValidTaskType(t.TaskType) {
		return fmt.Errorf("invalid task type: %s", t.TaskType)
	}
	if t.PreSessionEnergy != 0 && (t.PreSessionEnergy < 1 || t.PreSessionEnergy > 5) {
		return fmt.Errorf("pre-session energy must be between 1 and 5, got %d", t.PreSessionEnergy)
	}
	return nil
}

// Distraction is one entry in the in-session distraction log.
type Distraction struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// RecoveryActivity tags what the user did during the recovery stage.
type RecoveryActivity string

const (
	RecoveryWalked         RecoveryActivity = "walked"
	RecoveryDrankWater     RecoveryActivity = "drank-water"
	RecoveryEyesOffScreen  RecoveryActivity = "eyes-off-screen"
	RecoveryLayDown        RecoveryActivity = "lay-down"
	RecoveryStayedOnScreen RecoveryActivity = "stayed-on-screen"
)

var RecoveryActivityLabels = map[RecoveryActivity]string{
	RecoveryWalked:         "Walked",
	RecoveryDrankWater:     "Drank water",
	RecoveryEyesOffScreen:  "Eyes off screen",
	RecoveryLayDown:        "Lay down",
	RecoveryStayedOnScreen: "Stayed on screen",
}

// FrictionLevel summarizes how disrupted a session was.
type FrictionLevel string

const (
	FrictionLow    FrictionLevel = "low"
	FrictionMedium FrictionLevel = "medium"
	FrictionHigh   FrictionLevel = "high"
)

// MomentumExtension records whether a peak re-entry was offered and taken.
type MomentumExtension struct {
	Triggered    bool `json:"triggered"`
	Accepted     bool `json:"accepted"`
	ExtraMinutes int  `json:"extraMinutes"`
}
