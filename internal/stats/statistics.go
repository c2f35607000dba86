// Package stats holds the pure aggregation and pattern-intelligence
// functions over the focus record history. Every function here is
// side-effect free over an immutable snapshot of the record list, safe
// to recompute on every read, and zero-guarded so empty or tiny inputs
// degrade to zeros and nils rather than errors.
package stats

import (
	"sort"
	"time"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"
)

// TotalFocusTime sums every stage's actual minutes across all records.
func TotalFocusTime(recs []records.FocusRecord) float64 {
	total := 0.0
	for _, r := range recs {
		total += r.Duration()
	}
	return total
}

// CompletedCycles counts records flagged completed.
func CompletedCycles(recs []records.FocusRecord) int {
	count := 0
	for _, r := range recs {
		if r.Completed {
			count++
		}
	}
	return count
}

// RecoveryCompliance is the percentage of completed cycles whose actual
// recovery reached 90% of plan.
func RecoveryCompliance(recs []records.FocusRecord) float64 {
	completed := 0
	compliant := 0
	for _, r := range recs {
		if !r.Completed {
			continue
		}
		completed++
		planned := r.PlannedDurations.Get(cycle.StageRecovery)
		if r.ActualDurations.Get(cycle.StageRecovery) >= planned*0.9 {
			compliant++
		}
	}
	if completed == 0 {
		return 0
	}
	return float64(compliant) / float64(completed) * 100
}

// Streak counts consecutive days with at least one completed cycle,
// walking backward from today, or from yesterday when today is still
// empty.
func Streak(recs []records.FocusRecord, now time.Time) int {
	days := map[string]bool{}
	for _, r := range recs {
		if r.Completed {
			days[cycle.DayKey(r.CreatedAt)] = true
		}
	}
	if len(days) == 0 {
		return 0
	}

	current := cycle.StartOfDay(now)
	if !days[cycle.DayKey(current)] {
		current = current.AddDate(0, 0, -1)
	}

	streak := 0
	for days[cycle.DayKey(current)] {
		streak++
		current = current.AddDate(0, 0, -1)
	}
	return streak
}

// ConsistencyScore is the percentage of the trailing 14 days that have a
// completed cycle, capped at 100.
func ConsistencyScore(recs []records.FocusRecord, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -14)

	days := map[string]bool{}
	for _, r := range recs {
		if r.Completed && !r.CreatedAt.Before(cutoff) {
			days[cycle.DayKey(r.CreatedAt)] = true
		}
	}

	score := float64(len(days)) / 14 * 100
	if score > 100 {
		return 100
	}
	return score
}

// FocusedDaysTotal counts all-time distinct days with a completed cycle.
func FocusedDaysTotal(recs []records.FocusRecord) int {
	days := map[string]bool{}
	for _, r := range recs {
		if r.Completed {
			days[cycle.DayKey(r.CreatedAt)] = true
		}
	}
	return len(days)
}

// DailyFocus is one day's totals in a trailing-days series.
type DailyFocus struct {
	Date      string  `json:"date"`
	FocusTime float64 `json:"focusTime"`
	Cycles    int     `json:"cycles"`
}

// DailyFocusTime returns the trailing `days` calendar days oldest first.
// Days with no records yield zeros; the series always has exactly `days`
// entries.
func DailyFocusTime(recs []records.FocusRecord, days int, now time.Time) []DailyFocus {
	grouped := GroupByDay(recs)

	out := make([]DailyFocus, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := cycle.DayKey(now.AddDate(0, 0, -i))
		dayRecords := grouped[key]
		out = append(out, DailyFocus{
			Date:      key,
			FocusTime: TotalFocusTime(dayRecords),
			Cycles:    CompletedCycles(dayRecords),
		})
	}
	return out
}

// GroupByDay buckets records by local calendar day key.
func GroupByDay(recs []records.FocusRecord) map[string][]records.FocusRecord {
	grouped := map[string][]records.FocusRecord{}
	for _, r := range recs {
		key := cycle.DayKey(r.CreatedAt)
		grouped[key] = append(grouped[key], r)
	}
	return grouped
}

// RecordsInRange returns records created between the start of startDay
// and the end of endDay inclusive.
func RecordsInRange(recs []records.FocusRecord, startDay, endDay time.Time) []records.FocusRecord {
	start := cycle.StartOfDay(startDay)
	end := cycle.StartOfDay(endDay).AddDate(0, 0, 1)

	var out []records.FocusRecord
	for _, r := range recs {
		if !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// AverageEnergy averages the self-reported energy across records that
// provided one.
func AverageEnergy(recs []records.FocusRecord) float64 {
	total := 0
	count := 0
	for _, r := range recs {
		if r.SelfReport != nil && r.SelfReport.EnergyLevel > 0 {
			total += r.SelfReport.EnergyLevel
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// TaskTypeUsage is one task type's share of the record history.
type TaskTypeUsage struct {
	TaskType  cycle.TaskType `json:"taskType"`
	Count     int            `json:"count"`
	FocusTime float64        `json:"focusTime"`
}

// TaskTypeDistribution aggregates count and total focus time per task
// type, sorted by focus time descending.
func TaskTypeDistribution(recs []records.FocusRecord) []TaskTypeUsage {
	usage := map[cycle.TaskType]*TaskTypeUsage{}
	var order []cycle.TaskType

	for _, r := range recs {
		u, ok := usage[r.Tags.TaskType]
		if !ok {
			u = &TaskTypeUsage{TaskType: r.Tags.TaskType}
			usage[r.Tags.TaskType] = u
			order = append(order, r.Tags.TaskType)
		}
		u.Count++
		u.FocusTime += r.Duration()
	}

	out := make([]TaskTypeUsage, 0, len(order))
	for _, t := range order {
		out = append(out, *usage[t])
	}
	sortStableBy(out, func(a, b TaskTypeUsage) bool { return a.FocusTime > b.FocusTime })
	return out
}

// TaskTypeEfficiency is a task type's average peak completion and energy.
type TaskTypeEfficiency struct {
	TaskType          cycle.TaskType `json:"taskType"`
	AvgPeakCompletion float64        `json:"avgPeakCompletion"` // 0-100
	AvgEnergy         float64        `json:"avgEnergy"`
	Count             int            `json:"count"`
}

// TaskTypeEfficiencies computes per-task-type efficiency, excluding task
// types with fewer than 2 sessions, sorted by peak completion descending.
func TaskTypeEfficiencies(recs []records.FocusRecord) []TaskTypeEfficiency {
	type acc struct {
		peakSum    float64
		peakCount  int
		energySum  int
		energyRows int
		count      int
	}
	accs := map[cycle.TaskType]*acc{}
	var order []cycle.TaskType

	for _, r := range recs {
		a, ok := accs[r.Tags.TaskType]
		if !ok {
			a = &acc{}
			accs[r.Tags.TaskType] = a
			order = append(order, r.Tags.TaskType)
		}
		a.peakSum += r.PeakCompletionRatio() * 100
		a.peakCount++
		if r.SelfReport != nil && r.SelfReport.EnergyLevel > 0 {
			a.energySum += r.SelfReport.EnergyLevel
			a.energyRows++
		}
		a.count++
	}

	var out []TaskTypeEfficiency
	for _, t := range order {
		a := accs[t]
		if a.count < 2 {
			continue
		}
		e := TaskTypeEfficiency{
			TaskType:          t,
			AvgPeakCompletion: a.peakSum / float64(a.peakCount),
			Count:             a.count,
		}
		if a.energyRows > 0 {
			e.AvgEnergy = float64(a.energySum) / float64(a.energyRows)
		}
		out = append(out, e)
	}
	sortStableBy(out, func(a, b TaskTypeEfficiency) bool { return a.AvgPeakCompletion > b.AvgPeakCompletion })
	return out
}

// HourEnergy is the best focus hour by average self-reported energy.
type HourEnergy struct {
	Hour          int     `json:"hour"`
	AverageEnergy float64 `json:"averageEnergy"`
}

// BestTimeOfDay finds the hour of day with the highest average energy
// among completed, self-reported records. Ties keep the earliest hour.
// Nil when no record qualifies.
func BestTimeOfDay(recs []records.FocusRecord) *HourEnergy {
	var totals [24]int
	var counts [24]int
	any := false

	for _, r := range recs {
		if !r.Completed || r.SelfReport == nil || r.SelfReport.EnergyLevel == 0 {
			continue
		}
		hour := r.CreatedAt.Hour()
		totals[hour] += r.SelfReport.EnergyLevel
		counts[hour]++
		any = true
	}
	if !any {
		return nil
	}

	best := &HourEnergy{}
	for hour := 0; hour < 24; hour++ {
		if counts[hour] == 0 {
			continue
		}
		avg := float64(totals[hour]) / float64(counts[hour])
		if avg > best.AverageEnergy {
			best.Hour = hour
			best.AverageEnergy = avg
		}
	}
	return best
}

// TemplateStat is the most productive template result.
type TemplateStat struct {
	TemplateID     string  `json:"templateId"`
	TemplateName   string  `json:"templateName"`
	CompletionRate float64 `json:"completionRate"` // 0-100
}

// MostProductiveTemplate finds the template with the highest completion
// rate among templates used at least 3 times. Nil when no completed
// records exist or no template qualifies.
func MostProductiveTemplate(recs []records.FocusRecord) *TemplateStat {
	if CompletedCycles(recs) == 0 {
		return nil
	}

	type acc struct {
		name      string
		completed int
		total     int
	}
	accs := map[string]*acc{}
	var order []string

	for _, r := range recs {
		a, ok := accs[r.TemplateID]
		if !ok {
			a = &acc{name: r.TemplateName}
			accs[r.TemplateID] = a
			order = append(order, r.TemplateID)
		}
		a.total++
		if r.Completed {
			a.completed++
		}
	}

	var best *TemplateStat
	bestRate := 0.0
	for _, id := range order {
		a := accs[id]
		if a.total < 3 {
			continue
		}
		rate := float64(a.completed) / float64(a.total)
		if rate > bestRate {
			bestRate = rate
			best = &TemplateStat{TemplateID: id, TemplateName: a.name, CompletionRate: rate * 100}
		}
	}
	return best
}

// EffectiveFocusTime sums actual peak minutes across records.
func EffectiveFocusTime(recs []records.FocusRecord) float64 {
	total := 0.0
	for _, r := range recs {
		total += r.ActualDurations.Get(cycle.StagePeak)
	}
	return total
}

// HeatmapCell is one day-of-week × hour slot.
type HeatmapCell struct {
	DayOfWeek      int     `json:"dayOfWeek"` // 0 = Sunday
	Hour           int     `json:"hour"`
	Count          int     `json:"count"`
	CompletionRate float64 `json:"completionRate"` // 0-100
}

// HourlyHeatmap returns a dense 7×24 grid of session counts and
// completion rates. Cells with no sessions carry zeros.
func HourlyHeatmap(recs []records.FocusRecord) []HeatmapCell {
	var totals [7][24]int
	var completed [7][24]int

	for _, r := range recs {
		day := int(r.CreatedAt.Weekday())
		hour := r.CreatedAt.Hour()
		totals[day][hour]++
		if r.Completed {
			completed[day][hour]++
		}
	}

	out := make([]HeatmapCell, 0, 7*24)
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			cell := HeatmapCell{DayOfWeek: day, Hour: hour, Count: totals[day][hour]}
			if cell.Count > 0 {
				cell.CompletionRate = float64(completed[day][hour]) / float64(cell.Count) * 100
			}
			out = append(out, cell)
		}
	}
	return out
}

// RecoveryBucket aggregates next-cycle performance after a recovery
// classification.
type RecoveryBucket struct {
	AvgEnergy      float64 `json:"avgEnergy"`
	CompletionRate float64 `json:"completionRate"` // 0-100
}

// RecoveryImpact compares next-cycle outcomes after full versus skipped
// recovery for chronologically adjacent records within 4 hours.
type RecoveryImpact struct {
	FullRecovery    RecoveryBucket `json:"fullRecovery"`
	SkippedRecovery RecoveryBucket `json:"skippedRecovery"`
}

// RecoveryImpactData classifies each earlier record of an adjacent pair
// by its recovery ratio (full at 90%+, skipped below 50%) and measures
// the following record's energy and completion.
func RecoveryImpactData(recs []records.FocusRecord) RecoveryImpact {
	sorted := chronological(recs)

	type outcome struct {
		energy    int
		completed bool
	}
	var afterFull, afterSkipped []outcome

	for i := 0; i+1 < len(sorted); i++ {
		current := sorted[i]
		next := sorted[i+1]

		if next.CreatedAt.Sub(current.CreatedAt) >= 4*time.Hour {
			continue
		}

		ratio := 0.0
		if planned := current.PlannedDurations.Get(cycle.StageRecovery); planned > 0 {
			ratio = current.ActualDurations.Get(cycle.StageRecovery) / planned
		}

		nextEnergy := 3
		if next.SelfReport != nil && next.SelfReport.EnergyLevel > 0 {
			nextEnergy = next.SelfReport.EnergyLevel
		}

		o := outcome{energy: nextEnergy, completed: next.Completed}
		if ratio >= 0.9 {
			afterFull = append(afterFull, o)
		} else if ratio < 0.5 {
			afterSkipped = append(afterSkipped, o)
		}
	}

	bucket := func(outcomes []outcome) RecoveryBucket {
		if len(outcomes) == 0 {
			return RecoveryBucket{}
		}
		energySum := 0
		completedCount := 0
		for _, o := range outcomes {
			energySum += o.energy
			if o.completed {
				completedCount++
			}
		}
		return RecoveryBucket{
			AvgEnergy:      float64(energySum) / float64(len(outcomes)),
			CompletionRate: float64(completedCount) / float64(len(outcomes)) * 100,
		}
	}

	return RecoveryImpact{
		FullRecovery:    bucket(afterFull),
		SkippedRecovery: bucket(afterSkipped),
	}
}

// ActivityImpact ranks a recovery activity by next-cycle performance.
type ActivityImpact struct {
	Activity           cycle.RecoveryActivity `json:"activity"`
	AvgNextEnergy      float64                `json:"avgNextEnergy"`
	NextCompletionRate float64                `json:"nextCompletionRate"` // 0-100
	Count              int                    `json:"count"`
}

// BestRecoveryActivity finds the recovery activity whose following
// same-day record scored highest on avgEnergy × completionRate, with at
// least 3 data points. Nil when nothing qualifies.
func BestRecoveryActivity(recs []records.FocusRecord) *ActivityImpact {
	sorted := chronological(recs)

	type acc struct {
		energies  []int
		completed []bool
	}
	accs := map[cycle.RecoveryActivity]*acc{}
	var order []cycle.RecoveryActivity

	for i := 0; i+1 < len(sorted); i++ {
		current := sorted[i]
		next := sorted[i+1]

		if !cycle.SameDay(current.CreatedAt, next.CreatedAt) || len(current.RecoveryActivities) == 0 {
			continue
		}

		nextEnergy := 3
		if next.SelfReport != nil && next.SelfReport.EnergyLevel > 0 {
			nextEnergy = next.SelfReport.EnergyLevel
		} else if next.Tags.PreSessionEnergy > 0 {
			nextEnergy = next.Tags.PreSessionEnergy
		}

		for _, activity := range current.RecoveryActivities {
			a, ok := accs[activity]
			if !ok {
				a = &acc{}
				accs[activity] = a
				order = append(order, activity)
			}
			a.energies = append(a.energies, nextEnergy)
			a.completed = append(a.completed, next.Completed)
		}
	}

	var best *ActivityImpact
	bestScore := 0.0
	for _, activity := range order {
		a := accs[activity]
		if len(a.energies) < 3 {
			continue
		}

		energySum := 0
		completedCount := 0
		for i, e := range a.energies {
			energySum += e
			if a.completed[i] {
				completedCount++
			}
		}
		avgEnergy := float64(energySum) / float64(len(a.energies))
		completionRate := float64(completedCount) / float64(len(a.completed))

		score := avgEnergy * completionRate
		if score > bestScore {
			bestScore = score
			best = &ActivityImpact{
				Activity:           activity,
				AvgNextEnergy:      avgEnergy,
				NextCompletionRate: completionRate * 100,
				Count:              len(a.energies),
			}
		}
	}
	return best
}

// FrictionCounts is the raw low/medium/high friction distribution.
type FrictionCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// FrictionDistribution counts records per recorded friction level.
func FrictionDistribution(recs []records.FocusRecord) FrictionCounts {
	var counts FrictionCounts
	for _, r := range recs {
		switch r.FrictionLevel {
		case cycle.FrictionLow:
			counts.Low++
		case cycle.FrictionMedium:
			counts.Medium++
		case cycle.FrictionHigh:
			counts.High++
		}
	}
	return counts
}

// AverageFriction averages friction on a 0 (low) to 2 (high) scale over
// records that recorded a level.
func AverageFriction(recs []records.FocusRecord) float64 {
	total := 0
	count := 0
	for _, r := range recs {
		switch r.FrictionLevel {
		case cycle.FrictionLow:
			count++
		case cycle.FrictionMedium:
			total++
			count++
		case cycle.FrictionHigh:
			total += 2
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// MomentumSummary aggregates momentum-extension offers and acceptances.
type MomentumSummary struct {
	Triggered       int     `json:"triggered"`
	Accepted        int     `json:"accepted"`
	AcceptRate      float64 `json:"acceptRate"` // 0-100
	AvgExtraMinutes float64 `json:"avgExtraMinutes"`
}

// MomentumStats summarizes how often extensions were offered and taken.
func MomentumStats(recs []records.FocusRecord) MomentumSummary {
	var summary MomentumSummary
	extraSum := 0

	for _, r := range recs {
		if r.MomentumExtension == nil || !r.MomentumExtension.Triggered {
			continue
		}
		summary.Triggered++
		if r.MomentumExtension.Accepted {
			summary.Accepted++
			extraSum += r.MomentumExtension.ExtraMinutes
		}
	}

	if summary.Triggered > 0 {
		summary.AcceptRate = float64(summary.Accepted) / float64(summary.Triggered) * 100
	}
	if summary.Accepted > 0 {
		summary.AvgExtraMinutes = float64(extraSum) / float64(summary.Accepted)
	}
	return summary
}

// chronological returns a copy of recs sorted by creation time ascending.
func chronological(recs []records.FocusRecord) []records.FocusRecord {
	sorted := append([]records.FocusRecord(nil), recs...)
	records.SortRecords(sorted, records.Sort{Field: records.SortByCreatedAt})
	return sorted
}

// sortStableBy keeps first-encountered order on ties so aggregate lists
// render stably across recomputations.
func sortStableBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
