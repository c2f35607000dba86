package main

import (
	"net/http"
	"strconv"
	"time"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"
	"ultradianService/internal/stats"
)

func NewStatsHandler(repo records.Repository) *StatsHandler {
	return &StatsHandler{records: repo}
}

type StatsHandler struct {
	records records.Repository
}

func (h *StatsHandler) load(w http.ResponseWriter, r *http.Request) ([]records.FocusRecord, bool) {
	ctx, cancel := requestContext(r)
	defer cancel()

	recs, err := h.records.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load focus records")
		return nil, false
	}
	return recs, true
}

// OverviewResponse is the dashboard headline block.
type OverviewResponse struct {
	TotalFocusTime       float64               `json:"totalFocusTime"`
	EffectiveFocusTime   float64               `json:"effectiveFocusTime"`
	CompletedCycles      int                   `json:"completedCycles"`
	RecoveryCompliance   float64               `json:"recoveryCompliance"`
	Streak               int                   `json:"streak"`
	ConsistencyScore     float64               `json:"consistencyScore"`
	FocusedDaysTotal     int                   `json:"focusedDaysTotal"`
	AverageEnergy        float64               `json:"averageEnergy"`
	AverageFriction      float64               `json:"averageFriction"`
	FrictionDistribution stats.FrictionCounts  `json:"frictionDistribution"`
	Momentum             stats.MomentumSummary `json:"momentum"`
	BestTimeOfDay        *stats.HourEnergy     `json:"bestTimeOfDay,omitempty"`
	BestTemplate         *stats.TemplateStat   `json:"bestTemplate,omitempty"`
}

func (h *StatsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	now := time.Now()

	writeJSON(w, http.StatusOK, OverviewResponse{
		TotalFocusTime:       stats.TotalFocusTime(recs),
		EffectiveFocusTime:   stats.EffectiveFocusTime(recs),
		CompletedCycles:      stats.CompletedCycles(recs),
		RecoveryCompliance:   stats.RecoveryCompliance(recs),
		Streak:               stats.Streak(recs, now),
		ConsistencyScore:     stats.ConsistencyScore(recs, now),
		FocusedDaysTotal:     stats.FocusedDaysTotal(recs),
		AverageEnergy:        stats.AverageEnergy(recs),
		AverageFriction:      stats.AverageFriction(recs),
		FrictionDistribution: stats.FrictionDistribution(recs),
		Momentum:             stats.MomentumStats(recs),
		BestTimeOfDay:        stats.BestTimeOfDay(recs),
		BestTemplate:         stats.MostProductiveTemplate(recs),
	})
}

func (h *StatsHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.DailyFocusTime(recs, days, time.Now()))
}

func (h *StatsHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.HourlyHeatmap(recs))
}

func (h *StatsHandler) GetTaskTypes(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"distribution": stats.TaskTypeDistribution(recs),
		"efficiency":   stats.TaskTypeEfficiencies(recs),
	})
}

func (h *StatsHandler) GetRecovery(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"compliance":   stats.RecoveryCompliance(recs),
		"impact":       stats.RecoveryImpactData(recs),
		"bestActivity": stats.BestRecoveryActivity(recs),
	})
}

// PatternsResponse bundles everything the session-setup screen needs.
type PatternsResponse struct {
	Patterns        *stats.CyclePattern `json:"patterns"`
	Insights        []string            `json:"insights"`
	RepeatedTopics  []string            `json:"repeatedTopics"`
	ShowSuggestions bool                `json:"showSuggestions"`
}

func (h *StatsHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	patterns := stats.AnalyzeCyclePatterns(recs, time.Now())

	writeJSON(w, http.StatusOK, PatternsResponse{
		Patterns:        patterns,
		Insights:        stats.GenerateInsights(patterns),
		RepeatedTopics:  stats.RepeatedTopics(recs),
		ShowSuggestions: stats.ShouldShowSuggestions(recs),
	})
}

// SuggestionResponse is the per-energy setup suggestion.
type SuggestionResponse struct {
	Suggestion        stats.EnergySuggestion `json:"suggestion"`
	SuggestedPeakMins int                    `json:"suggestedPeakMinutes"`
}

func (h *StatsHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	energy, err := strconv.Atoi(r.URL.Query().Get("energy"))
	if err != nil || energy < 1 || energy > 5 {
		writeError(w, http.StatusBadRequest, "energy must be between 1 and 5")
		return
	}

	defaultPeak := cycle.DefaultTemplates[0].Durations.Get(cycle.StagePeak)
	if v := r.URL.Query().Get("defaultPeak"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "defaultPeak must be a positive number")
			return
		}
		defaultPeak = parsed
	}

	recs, ok := h.load(w, r)
	if !ok {
		return
	}
	patterns := stats.AnalyzeCyclePatterns(recs, time.Now())

	writeJSON(w, http.StatusOK, SuggestionResponse{
		Suggestion:        stats.EnergyBasedSuggestion(energy),
		SuggestedPeakMins: stats.SuggestedPeakDuration(patterns, energy, defaultPeak),
	})
}
