package cycle

// Stage represents one phase of an ultradian focus cycle
type Stage string

const (
	StageRampUp    Stage = "ramp-up"
	StagePeak      Stage = "peak"
	StageDownshift Stage = "downshift"
	StageRecovery  Stage = "recovery"
)

// StageOrder is the fixed traversal order of a cycle. The only legal
// deviation from forward-only progression is the momentum-extension
// rewind back to peak (see SessionMachine.AcceptMomentumExtension).
var StageOrder = []Stage{StageRampUp, StagePeak, StageDownshift, StageRecovery}

var stageIndexes = map[Stage]int{
	StageRampUp:    0,
	StagePeak:      1,
	StageDownshift: 2,
	StageRecovery:  3,
}

// StageIndex returns the position of a stage in StageOrder, or -1 for an
// unknown stage.
func StageIndex(s Stage) int {
	if idx, ok := stageIndexes[s]; ok {
		return idx
	}
	return -1
}

// IsValidStage reports whether s names one of the four cycle stages.
func IsValidStage(s Stage) bool {
	_, ok := stageIndexes[s]
	return ok
}

var StageLabels = map[Stage]string{
	StageRampUp:    "Ramp Up",
	StagePeak:      "Peak Focus",
	StageDownshift: "Downshift",
	StageRecovery:  "Recovery",
}

// StageDurations maps stages to minutes. A planned map carries all four
// stages; an actual map may be partial when a session ends early.
type StageDurations map[Stage]float64

// Get returns the minutes recorded for a stage, zero if absent.
func (d StageDurations) Get(s Stage) float64 {
	return d[s]
}

// Total sums the minutes across all recorded stages.
func (d StageDurations) Total() float64 {
	total := 0.0
	for _, minutes := range d {
		total += minutes
	}
	return total
}

// Clone returns an independent copy so callers can hand out snapshots
// without exposing internal state.
func (d StageDurations) Clone() StageDurations {
	if d == nil {
		return nil
	}
	out := make(StageDurations, len(d))
	for stage, minutes := range d {
		out[stage] = minutes
	}
	return out
}

// StageContent carries the per-stage guidance metadata surfaced during a
// session (suggested actions, warnings, checkpoint thresholds).
type StageContent struct {
	SuggestedActions   []string
	WarningLabel       string
	CheckpointMinutes  int
	BlockTaskSwitching bool
	Questions          []string
}

var StageContents = map[Stage]StageContent{
	StageRampUp: {
		SuggestedActions: []string{"Clear distractions", "Set your intention", "Review your plan"},
		WarningLabel:     "Avoid starting heavy coding tasks",
	},
	StagePeak: {
		CheckpointMinutes:  30,
		BlockTaskSwitching: true,
	},
	StageDownshift: {
		SuggestedActions: []string{"Summarize progress", "Write TODOs", "Cleanup only"},
		WarningLabel:     "Do NOT start new hard things",
		Questions:        []string{"What concept became clearer?", "What still feels fuzzy?"},
	},
	StageRecovery: {
		SuggestedActions: []string{"Take a walk", "Drink water", "Eyes off screen", "Light stretching"},
	},
}

// MidPeakCheckpointMinutes is the elapsed-in-peak threshold after which
// the checkpoint flag is set by the polling runner.
const MidPeakCheckpointMinutes = 30
