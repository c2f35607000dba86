package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"
)

// Analysis thresholds. The two cycle-count gates are deliberately
// different: lightweight suggestions unlock a week before full pattern
// analysis does.
const (
	MinCyclesForSuggestions = 7
	MinCyclesForPatterns    = 14

	consistencyWarningThreshold    = 0.5
	peakCompletionWarningThreshold = 0.7
	topicRepetitionThreshold       = 4
)

// TimeOfDay buckets the start hour of a session.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"   // 5am-12pm
	TimeAfternoon TimeOfDay = "afternoon" // 12pm-5pm
	TimeEvening   TimeOfDay = "evening"   // 5pm onwards
)

var timeOfDayOrder = []TimeOfDay{TimeMorning, TimeAfternoon, TimeEvening}

var timeOfDayLabels = map[TimeOfDay]string{
	TimeMorning:   "morning (5am-12pm)",
	TimeAfternoon: "afternoon (12pm-5pm)",
	TimeEvening:   "evening (5pm onwards)",
}

func timeOfDayFor(t time.Time) TimeOfDay {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	default:
		return TimeEvening
	}
}

// CyclePattern is the multi-session summary produced once enough
// completed records exist.
type CyclePattern struct {
	AveragePeakCompletion   float64          `json:"averagePeakCompletion"` // 0-1 ratio
	SuggestedPeakAdjustment int              `json:"suggestedPeakAdjustment,omitempty"`
	ConsistencyScore        float64          `json:"consistencyScore"` // 0-1 ratio
	EffectiveFocusTime      float64          `json:"effectiveFocusTime"`
	AverageDistractionRate  float64          `json:"averageDistractionRate"` // per peak-hour
	PreferredTimeOfDay      TimeOfDay        `json:"preferredTimeOfDay,omitempty"`
	MostProductiveTaskTypes []cycle.TaskType `json:"mostProductiveTaskTypes"`
}

// AnalyzeCyclePatterns computes the pattern summary, or nil when fewer
// than MinCyclesForPatterns completed records exist. The reference time
// anchors the trailing-14-day consistency window.
func AnalyzeCyclePatterns(recs []records.FocusRecord, now time.Time) *CyclePattern {
	var completed []records.FocusRecord
	for _, r := range recs {
		if r.Completed {
			completed = append(completed, r)
		}
	}
	if len(completed) < MinCyclesForPatterns {
		return nil
	}

	completionSum := 0.0
	for _, r := range completed {
		completionSum += r.PeakCompletionRatio()
	}
	avgCompletion := completionSum / float64(len(completed))

	adjustment := 0
	if avgCompletion < peakCompletionWarningThreshold {
		adjustment = -10
	} else if avgCompletion > 0.95 {
		adjustment = 5
	}

	cutoff := now.AddDate(0, 0, -14)
	recentDays := map[string]bool{}
	for _, r := range completed {
		if !r.CreatedAt.Before(cutoff) {
			recentDays[cycle.DayKey(r.CreatedAt)] = true
		}
	}
	consistency := math.Min(1, float64(len(recentDays))/14)

	effectiveFocus := 0.0
	for _, r := range completed {
		effectiveFocus += r.ActualDurations.Get(cycle.StagePeak)
	}

	// distractions per peak-hour, over records carrying a distraction log
	distractionRate := 0.0
	totalDistractions := 0
	peakHours := 0.0
	for _, r := range completed {
		if r.Distractions == nil {
			continue
		}
		totalDistractions += len(r.Distractions)
		peakHours += r.ActualDurations.Get(cycle.StagePeak) / 60
	}
	if peakHours > 0 {
		distractionRate = float64(totalDistractions) / peakHours
	}

	buckets := map[TimeOfDay]int{}
	for _, r := range completed {
		buckets[timeOfDayFor(r.CreatedAt)]++
	}
	preferred := timeOfDayOrder[0]
	for _, bucket := range timeOfDayOrder[1:] {
		if buckets[bucket] > buckets[preferred] {
			preferred = bucket
		}
	}

	return &CyclePattern{
		AveragePeakCompletion:   avgCompletion,
		SuggestedPeakAdjustment: adjustment,
		ConsistencyScore:        consistency,
		EffectiveFocusTime:      effectiveFocus,
		AverageDistractionRate:  distractionRate,
		PreferredTimeOfDay:      preferred,
		MostProductiveTaskTypes: mostProductiveTaskTypes(recs),
	}
}

// mostProductiveTaskTypes ranks task types with at least 3 uses and an
// 80%+ completion rate, best first, capped at 3. All records count
// toward usage, not just completed ones.
func mostProductiveTaskTypes(recs []records.FocusRecord) []cycle.TaskType {
	type counts struct {
		completed int
		total     int
	}
	stats := map[cycle.TaskType]*counts{}
	var order []cycle.TaskType

	for _, r := range recs {
		c, ok := stats[r.Tags.TaskType]
		if !ok {
			c = &counts{}
			stats[r.Tags.TaskType] = c
			order = append(order, r.Tags.TaskType)
		}
		c.total++
		if r.Completed {
			c.completed++
		}
	}

	type ranked struct {
		taskType cycle.TaskType
		rate     float64
	}
	var qualified []ranked
	for _, t := range order {
		c := stats[t]
		rate := float64(c.completed) / float64(c.total)
		if c.total >= 3 && rate >= 0.8 {
			qualified = append(qualified, ranked{taskType: t, rate: rate})
		}
	}
	sortStableBy(qualified, func(a, b ranked) bool { return a.rate > b.rate })

	out := make([]cycle.TaskType, 0, 3)
	for _, q := range qualified {
		if len(out) == 3 {
			break
		}
		out = append(out, q.taskType)
	}
	return out
}

// ShouldShowSuggestions reports whether enough completed cycles exist
// for lightweight setup suggestions.
func ShouldShowSuggestions(recs []records.FocusRecord) bool {
	return CompletedCycles(recs) >= MinCyclesForSuggestions
}

// EnergySuggestion is a static per-energy-level session setup policy.
type EnergySuggestion struct {
	EnergyLevel        int              `json:"energyLevel"`
	SuggestedPeakMins  int              `json:"suggestedPeakMinutes"`
	SuggestedTaskTypes []cycle.TaskType `json:"suggestedTaskTypes"`
	Message            string           `json:"message"`
}

var energySuggestions = map[int]EnergySuggestion{
	1: {
		EnergyLevel:        1,
		SuggestedPeakMins:  20,
		SuggestedTaskTypes: []cycle.TaskType{cycle.TaskAdministrative, cycle.TaskOther},
		Message:            "Very low energy - consider a shorter cycle with lighter tasks",
	},
	2: {
		EnergyLevel:        2,
		SuggestedPeakMins:  25,
		SuggestedTaskTypes: []cycle.TaskType{cycle.TaskAdministrative, cycle.TaskLearning},
		Message:            "Low energy - try a focused but shorter session",
	},
	3: {
		EnergyLevel:        3,
		SuggestedPeakMins:  35,
		SuggestedTaskTypes: []cycle.TaskType{cycle.TaskLearning, cycle.TaskCreative, cycle.TaskAdministrative},
		Message:            "Medium energy - a balanced cycle works well",
	},
	4: {
		EnergyLevel:        4,
		SuggestedPeakMins:  45,
		SuggestedTaskTypes: []cycle.TaskType{cycle.TaskDeepWork, cycle.TaskCreative, cycle.TaskLearning},
		Message:            "High energy - great time for focused deep work",
	},
	5: {
		EnergyLevel:        5,
		SuggestedPeakMins:  55,
		SuggestedTaskTypes: []cycle.TaskType{cycle.TaskDeepWork, cycle.TaskCreative},
		Message:            "Peak energy - ideal for challenging tasks",
	},
}

// EnergyBasedSuggestion returns the static policy for an energy level,
// clamping out-of-range input to the nearest tier.
func EnergyBasedSuggestion(energy int) EnergySuggestion {
	if energy < 1 {
		energy = 1
	}
	if energy > 5 {
		energy = 5
	}
	return energySuggestions[energy]
}

// SuggestedPeakDuration picks a peak length in minutes. Without
// patterns it blends the energy tier (60%) with the caller's default
// (40%); with patterns it applies the historical adjustment to the
// energy tier and clamps to [15, 90].
func SuggestedPeakDuration(patterns *CyclePattern, energy int, defaultPeakMinutes float64) int {
	energySuggested := EnergyBasedSuggestion(energy).SuggestedPeakMins

	if patterns == nil {
		return int(math.Round(float64(energySuggested)*0.6 + defaultPeakMinutes*0.4))
	}

	suggested := energySuggested + patterns.SuggestedPeakAdjustment
	if suggested < 15 {
		return 15
	}
	if suggested > 90 {
		return 90
	}
	return suggested
}

// RepeatedTopics lists topics (case-insensitive, trimmed) that appear
// in enough records to be worth a spaced-review cycle.
func RepeatedTopics(recs []records.FocusRecord) []string {
	counts := map[string]int{}
	var order []string

	for _, r := range recs {
		topic := strings.ToLower(strings.TrimSpace(r.Tags.Topic))
		if topic == "" {
			continue
		}
		if _, ok := counts[topic]; !ok {
			order = append(order, topic)
		}
		counts[topic]++
	}

	var out []string
	for _, topic := range order {
		if counts[topic] >= topicRepetitionThreshold {
			out = append(out, topic)
		}
	}
	return out
}

// GenerateInsights renders up to 3 advisory strings from a pattern
// summary. Checks run in a fixed order (completion, consistency, time
// of day, distraction, task type) and the first 3 hits win.
func GenerateInsights(patterns *CyclePattern) []string {
	if patterns == nil {
		return nil
	}

	var insights []string

	if patterns.AveragePeakCompletion < peakCompletionWarningThreshold {
		insights = append(insights, "You often end peak focus early. Consider shorter cycles to build consistency.")
	} else if patterns.AveragePeakCompletion > 0.95 {
		insights = append(insights, "You're completing your peak phases consistently. You might benefit from longer cycles.")
	}

	if patterns.ConsistencyScore < consistencyWarningThreshold {
		insights = append(insights, "Try to do at least one focus cycle daily to build a sustainable habit.")
	} else if patterns.ConsistencyScore > 0.8 {
		insights = append(insights, "Great consistency! You're building a strong focus practice.")
	}

	if patterns.PreferredTimeOfDay != "" {
		insights = append(insights, fmt.Sprintf(
			"You tend to focus best in the %s. Schedule important work then.",
			timeOfDayLabels[patterns.PreferredTimeOfDay]))
	}

	if patterns.AverageDistractionRate > 3 {
		insights = append(insights, "High distraction rate detected. Consider removing phone from your workspace.")
	} else if patterns.AverageDistractionRate < 0.5 {
		insights = append(insights, "Excellent focus! Your distraction rate is very low.")
	}

	if len(patterns.MostProductiveTaskTypes) > 0 {
		labels := make([]string, 0, len(patterns.MostProductiveTaskTypes))
		for _, t := range patterns.MostProductiveTaskTypes {
			labels = append(labels, string(t))
		}
		insights = append(insights, fmt.Sprintf(
			"You perform best with %s tasks during focus cycles.", strings.Join(labels, ", ")))
	}

	if len(insights) > 3 {
		insights = insights[:3]
	}
	return insights
}
