package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"
)

var testNow = time.Date(2025, 3, 15, 18, 0, 0, 0, time.Local)

var standardDurations = cycle.StageDurations{
	cycle.StageRampUp:    15,
	cycle.StagePeak:      45,
	cycle.StageDownshift: 15,
	cycle.StageRecovery:  20,
}

var recordSeq = 0

// newRecord builds a completed-to-plan record created at the given time.
func newRecord(created time.Time, completed bool) records.FocusRecord {
	recordSeq++
	return records.FocusRecord{
		ID:               fmt.Sprintf("rec-%d", recordSeq),
		CreatedAt:        created,
		TemplateID:       "standard-90",
		TemplateName:     "Standard 90-min",
		PlannedDurations: standardDurations.Clone(),
		ActualDurations:  standardDurations.Clone(),
		Completed:        completed,
		Tags: cycle.SessionTags{
			Topic:    "default topic",
			TaskType: cycle.TaskDeepWork,
		},
	}
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func TestTotalAndEffectiveFocusTime(t *testing.T) {
	recs := []records.FocusRecord{
		newRecord(daysAgo(1), true),
		newRecord(daysAgo(2), false),
	}
	recs[1].ActualDurations = cycle.StageDurations{cycle.StagePeak: 10}

	assert.Equal(t, 105.0, TotalFocusTime(recs))
	assert.Equal(t, 55.0, EffectiveFocusTime(recs))
	assert.Equal(t, 1, CompletedCycles(recs))

	assert.Zero(t, TotalFocusTime(nil))
	assert.Zero(t, CompletedCycles(nil))
}

func TestRecoveryCompliance(t *testing.T) {
	full := newRecord(daysAgo(1), true) // 20/20 planned recovery
	short := newRecord(daysAgo(2), true)
	short.ActualDurations[cycle.StageRecovery] = 10
	incomplete := newRecord(daysAgo(3), false)
	incomplete.ActualDurations[cycle.StageRecovery] = 0

	// Only completed records count: 1 of 2 compliant.
	assert.Equal(t, 50.0, RecoveryCompliance([]records.FocusRecord{full, short, incomplete}))
	assert.Zero(t, RecoveryCompliance(nil))
}

func TestStreakIdempotence(t *testing.T) {
	var recs []records.FocusRecord
	for day := 0; day < 5; day++ {
		recs = append(recs, newRecord(daysAgo(day), true))
	}

	assert.Equal(t, 5, Streak(recs, testNow))

	// A non-consecutive extra record does not extend the streak.
	recs = append(recs, newRecord(daysAgo(6), true))
	assert.Equal(t, 5, Streak(recs, testNow))
}

func TestStreakAllowsEmptyToday(t *testing.T) {
	var recs []records.FocusRecord
	for day := 1; day <= 3; day++ {
		recs = append(recs, newRecord(daysAgo(day), true))
	}
	assert.Equal(t, 3, Streak(recs, testNow))

	// A two-day gap means the streak is over.
	assert.Equal(t, 0, Streak([]records.FocusRecord{newRecord(daysAgo(2), true)}, testNow))

	// Incomplete sessions never count.
	assert.Equal(t, 0, Streak([]records.FocusRecord{newRecord(testNow, false)}, testNow))
}

func TestConsistencyScore(t *testing.T) {
	var recs []records.FocusRecord
	for day := 0; day < 7; day++ {
		recs = append(recs, newRecord(daysAgo(day), true))
		// second session on the same day must not double count
		recs = append(recs, newRecord(daysAgo(day).Add(-2*time.Hour), true))
	}

	assert.InDelta(t, 50.0, ConsistencyScore(recs, testNow), 0.001)
	assert.Zero(t, ConsistencyScore(nil, testNow))

	// Records older than the window are ignored.
	old := []records.FocusRecord{newRecord(daysAgo(20), true)}
	assert.Zero(t, ConsistencyScore(old, testNow))
}

func TestDailyFocusTimeSeriesLength(t *testing.T) {
	recs := []records.FocusRecord{newRecord(daysAgo(1), true)}

	series := DailyFocusTime(recs, 7, testNow)
	require.Len(t, series, 7)

	assert.Equal(t, cycle.DayKey(daysAgo(6)), series[0].Date)
	assert.Equal(t, cycle.DayKey(testNow), series[6].Date)

	// the single record lands on yesterday's bucket
	assert.Equal(t, 95.0, series[5].FocusTime)
	assert.Equal(t, 1, series[5].Cycles)
	assert.Zero(t, series[6].FocusTime)
}

func TestRecordsInRange(t *testing.T) {
	recs := []records.FocusRecord{
		newRecord(daysAgo(5), true),
		newRecord(daysAgo(3), true),
		newRecord(daysAgo(1), true),
	}

	// Both boundary days are inclusive.
	got := RecordsInRange(recs, daysAgo(3), daysAgo(1))
	require.Len(t, got, 2)
	assert.Equal(t, recs[1].ID, got[0].ID)
	assert.Equal(t, recs[2].ID, got[1].ID)
}

func TestAverageEnergy(t *testing.T) {
	a := newRecord(daysAgo(1), true)
	a.SelfReport = &records.SelfReport{EnergyLevel: 5}
	b := newRecord(daysAgo(2), true)
	b.SelfReport = &records.SelfReport{EnergyLevel: 3}
	c := newRecord(daysAgo(3), true) // no report

	assert.Equal(t, 4.0, AverageEnergy([]records.FocusRecord{a, b, c}))
	assert.Zero(t, AverageEnergy([]records.FocusRecord{c}))
}

func TestTaskTypeDistribution(t *testing.T) {
	deep1 := newRecord(daysAgo(1), true)
	deep2 := newRecord(daysAgo(2), true)
	admin := newRecord(daysAgo(3), true)
	admin.Tags.TaskType = cycle.TaskAdministrative
	admin.ActualDurations = cycle.StageDurations{cycle.StagePeak: 5}

	dist := TaskTypeDistribution([]records.FocusRecord{deep1, deep2, admin})
	require.Len(t, dist, 2)

	assert.Equal(t, cycle.TaskDeepWork, dist[0].TaskType)
	assert.Equal(t, 2, dist[0].Count)
	assert.Equal(t, 190.0, dist[0].FocusTime)
	assert.Equal(t, cycle.TaskAdministrative, dist[1].TaskType)
}

func TestTaskTypeEfficienciesMinimumSessions(t *testing.T) {
	deep1 := newRecord(daysAgo(1), true)
	deep2 := newRecord(daysAgo(2), true)
	deep2.ActualDurations[cycle.StagePeak] = 22.5 // 50% completion
	lone := newRecord(daysAgo(3), true)
	lone.Tags.TaskType = cycle.TaskCreative

	eff := TaskTypeEfficiencies([]records.FocusRecord{deep1, deep2, lone})
	require.Len(t, eff, 1, "single-session task types are excluded")

	assert.Equal(t, cycle.TaskDeepWork, eff[0].TaskType)
	assert.InDelta(t, 75.0, eff[0].AvgPeakCompletion, 0.001)
	assert.Equal(t, 2, eff[0].Count)
}

func TestBestTimeOfDay(t *testing.T) {
	assert.Nil(t, BestTimeOfDay(nil))

	morning := newRecord(time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local), true)
	morning.SelfReport = &records.SelfReport{EnergyLevel: 5}
	evening := newRecord(time.Date(2025, 3, 14, 20, 0, 0, 0, time.Local), true)
	evening.SelfReport = &records.SelfReport{EnergyLevel: 3}

	best := BestTimeOfDay([]records.FocusRecord{morning, evening})
	require.NotNil(t, best)
	assert.Equal(t, 9, best.Hour)
	assert.Equal(t, 5.0, best.AverageEnergy)

	// Ties keep the earliest hour.
	lateTie := newRecord(time.Date(2025, 3, 14, 21, 0, 0, 0, time.Local), true)
	lateTie.SelfReport = &records.SelfReport{EnergyLevel: 5}
	best = BestTimeOfDay([]records.FocusRecord{morning, lateTie})
	require.NotNil(t, best)
	assert.Equal(t, 9, best.Hour)
}

func TestMostProductiveTemplate(t *testing.T) {
	assert.Nil(t, MostProductiveTemplate(nil))

	var recs []records.FocusRecord
	for i := 0; i < 3; i++ {
		recs = append(recs, newRecord(daysAgo(i), true))
	}
	// Two uses only: never qualifies regardless of completion rate.
	for i := 0; i < 2; i++ {
		r := newRecord(daysAgo(i), true)
		r.TemplateID = "deep-120"
		r.TemplateName = "Deep Work 120-min"
		recs = append(recs, r)
	}

	best := MostProductiveTemplate(recs)
	require.NotNil(t, best)
	assert.Equal(t, "standard-90", best.TemplateID)
	assert.Equal(t, 100.0, best.CompletionRate)
}

func TestHourlyHeatmapDensity(t *testing.T) {
	cells := HourlyHeatmap(nil)
	require.Len(t, cells, 168)
	for _, cell := range cells {
		assert.Zero(t, cell.Count)
		assert.Zero(t, cell.CompletionRate)
	}

	// One completed session: its cell carries count 1, rate 100.
	r := newRecord(time.Date(2025, 3, 12, 14, 30, 0, 0, time.Local), true) // Wednesday
	cells = HourlyHeatmap([]records.FocusRecord{r})
	require.Len(t, cells, 168)

	idx := 3*24 + 14 // dayOfWeek 3, hour 14
	assert.Equal(t, 1, cells[idx].Count)
	assert.Equal(t, 100.0, cells[idx].CompletionRate)
}

func TestRecoveryImpactData(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)

	fullRecovery := newRecord(base, true)
	afterFull := newRecord(base.Add(2*time.Hour), true)
	afterFull.SelfReport = &records.SelfReport{EnergyLevel: 5}

	skippedRecovery := newRecord(base.Add(26*time.Hour), true)
	skippedRecovery.ActualDurations[cycle.StageRecovery] = 2
	afterSkipped := newRecord(base.Add(27*time.Hour), false)
	afterSkipped.SelfReport = &records.SelfReport{EnergyLevel: 2}

	// A pair more than 4 hours apart contributes nothing.
	farApart := newRecord(base.Add(60*time.Hour), true)

	impact := RecoveryImpactData([]records.FocusRecord{
		fullRecovery, afterFull, skippedRecovery, afterSkipped, farApart,
	})

	assert.Equal(t, 5.0, impact.FullRecovery.AvgEnergy)
	assert.Equal(t, 100.0, impact.FullRecovery.CompletionRate)
	assert.Equal(t, 2.0, impact.SkippedRecovery.AvgEnergy)
	assert.Zero(t, impact.SkippedRecovery.CompletionRate)
}

func TestBestRecoveryActivity(t *testing.T) {
	assert.Nil(t, BestRecoveryActivity(nil))

	base := time.Date(2025, 3, 14, 8, 0, 0, 0, time.Local)
	var recs []records.FocusRecord
	for i := 0; i < 3; i++ {
		day := base.AddDate(0, 0, i)
		withActivity := newRecord(day, true)
		withActivity.RecoveryActivities = []cycle.RecoveryActivity{cycle.RecoveryWalked}
		next := newRecord(day.Add(2*time.Hour), true)
		next.SelfReport = &records.SelfReport{EnergyLevel: 5}
		recs = append(recs, withActivity, next)
	}

	best := BestRecoveryActivity(recs)
	require.NotNil(t, best)
	assert.Equal(t, cycle.RecoveryWalked, best.Activity)
	assert.Equal(t, 5.0, best.AvgNextEnergy)
	assert.Equal(t, 100.0, best.NextCompletionRate)
	assert.Equal(t, 3, best.Count)

	// Two data points are below the threshold.
	assert.Nil(t, BestRecoveryActivity(recs[:4]))
}

func TestFrictionAggregates(t *testing.T) {
	low := newRecord(daysAgo(1), true)
	low.FrictionLevel = cycle.FrictionLow
	medium := newRecord(daysAgo(2), true)
	medium.FrictionLevel = cycle.FrictionMedium
	high := newRecord(daysAgo(3), false)
	high.FrictionLevel = cycle.FrictionHigh
	unscored := newRecord(daysAgo(4), true)

	recs := []records.FocusRecord{low, medium, high, unscored}

	dist := FrictionDistribution(recs)
	assert.Equal(t, 1, dist.Low)
	assert.Equal(t, 1, dist.Medium)
	assert.Equal(t, 1, dist.High)

	assert.InDelta(t, 1.0, AverageFriction(recs), 0.001)
	assert.Zero(t, AverageFriction(nil))
}

func TestMomentumStats(t *testing.T) {
	accepted := newRecord(daysAgo(1), true)
	accepted.MomentumExtension = &cycle.MomentumExtension{Triggered: true, Accepted: true, ExtraMinutes: 10}
	declined := newRecord(daysAgo(2), true)
	declined.MomentumExtension = &cycle.MomentumExtension{Triggered: true}
	none := newRecord(daysAgo(3), true)

	summary := MomentumStats([]records.FocusRecord{accepted, declined, none})
	assert.Equal(t, 2, summary.Triggered)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 50.0, summary.AcceptRate)
	assert.Equal(t, 10.0, summary.AvgExtraMinutes)

	assert.Zero(t, MomentumStats(nil).AcceptRate)
}
