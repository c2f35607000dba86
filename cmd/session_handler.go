package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"
)

func NewSessionHandler(runner *cycle.Runner, repo records.Repository) *SessionHandler {
	return &SessionHandler{
		runner:    runner,
		records:   repo,
		formatter: cycle.NewTimeFormatter(),
	}
}

type SessionHandler struct {
	runner    *cycle.Runner
	records   records.Repository
	formatter *cycle.TimeFormatter
}

// SessionStateResponse is the live-timer view the frontend polls.
type SessionStateResponse struct {
	Status            cycle.Status             `json:"status"`
	Stage             cycle.Stage              `json:"stage,omitempty"`
	StageIndex        int                      `json:"stageIndex"`
	StageContent      *cycle.StageContent      `json:"stageContent,omitempty"`
	Template          *cycle.Template          `json:"template,omitempty"`
	Tags              cycle.SessionTags        `json:"tags"`
	ElapsedSeconds    float64                  `json:"elapsedSeconds"`
	RemainingSeconds  float64                  `json:"remainingSeconds"`
	RemainingDisplay  string                   `json:"remainingDisplay"`
	Progress          float64                  `json:"progress"`
	PauseCount        int                      `json:"pauseCount"`
	Distractions      []cycle.Distraction      `json:"distractions,omitempty"`
	SkippedStages     []cycle.Stage            `json:"skippedStages,omitempty"`
	MidPeakCheckpoint bool                     `json:"midPeakCheckpoint"`
	MomentumEligible  bool                     `json:"momentumEligible"`
	Momentum          *cycle.MomentumExtension `json:"momentum,omitempty"`
	ServerTime        string                   `json:"serverTime"`
}

func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	// Recompute before reporting so a host that slept still shows the
	// stage the wall clock says it is in.
	h.runner.Poll()

	m := h.runner.Machine()
	remaining := m.RemainingStage()

	resp := SessionStateResponse{
		Status:            m.Status(),
		Stage:             m.CurrentStage(),
		StageIndex:        m.CurrentStageIndex(),
		Template:          m.Template(),
		Tags:              m.Tags(),
		ElapsedSeconds:    m.ElapsedStage().Seconds(),
		RemainingSeconds:  remaining.Seconds(),
		RemainingDisplay:  h.formatter.FormatDuration(remaining),
		Progress:          m.Progress(),
		PauseCount:        m.PauseCount(),
		Distractions:      m.Distractions(),
		SkippedStages:     m.SkippedStages(),
		MidPeakCheckpoint: m.MidPeakCheckpointReached(),
		MomentumEligible:  m.MomentumEligible(),
		Momentum:          m.Momentum(),
		ServerTime:        time.Now().Format(time.RFC3339),
	}
	if content, ok := cycle.StageContents[resp.Stage]; ok {
		resp.StageContent = &content
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cycle.DefaultTemplates)
}

type StartSessionRequest struct {
	TemplateID string            `json:"templateId"`
	Tags       cycle.SessionTags `json:"tags"`
}

func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !readJSON(w, r, &req) {
		return
	}

	template, err := cycle.TemplateByID(req.TemplateID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.runner.Start(template, req.Tags); err != nil {
		if errors.Is(err, cycle.ErrSessionActive) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.GetState(w, r)
}

func (h *SessionHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	h.runner.Pause()
	h.GetState(w, r)
}

func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.runner.Resume()
	h.GetState(w, r)
}

func (h *SessionHandler) SkipStage(w http.ResponseWriter, r *http.Request) {
	h.runner.SkipStage()
	h.GetState(w, r)
}

type DistractionRequest struct {
	Note string `json:"note"`
}

func (h *SessionHandler) LogDistraction(w http.ResponseWriter, r *http.Request) {
	var req DistractionRequest
	if !readJSON(w, r, &req) {
		return
	}
	h.runner.LogDistraction(req.Note)
	h.GetState(w, r)
}

type StageNoteRequest struct {
	Stage cycle.Stage `json:"stage"`
	Note  string      `json:"note"`
}

func (h *SessionHandler) SetStageNote(w http.ResponseWriter, r *http.Request) {
	var req StageNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !cycle.IsValidStage(req.Stage) {
		writeError(w, http.StatusBadRequest, "unknown stage")
		return
	}
	h.runner.SetStageNote(req.Stage, req.Note)
	h.GetState(w, r)
}

type MomentumCheckRequest struct {
	EnergyLevel int `json:"energyLevel"`
}

func (h *SessionHandler) CheckMomentum(w http.ResponseWriter, r *http.Request) {
	var req MomentumCheckRequest
	if !readJSON(w, r, &req) {
		return
	}
	eligible := h.runner.CheckMomentumEligibility(req.EnergyLevel)
	writeJSON(w, http.StatusOK, map[string]bool{"eligible": eligible})
}

type MomentumAcceptRequest struct {
	ExtraMinutes int `json:"extraMinutes"`
}

func (h *SessionHandler) AcceptMomentum(w http.ResponseWriter, r *http.Request) {
	var req MomentumAcceptRequest
	if !readJSON(w, r, &req) {
		return
	}
	h.runner.AcceptMomentumExtension(req.ExtraMinutes)
	h.GetState(w, r)
}

func (h *SessionHandler) DeclineMomentum(w http.ResponseWriter, r *http.Request) {
	h.runner.DeclineMomentumExtension()
	h.GetState(w, r)
}

type RecoveryActivitiesRequest struct {
	Activities []cycle.RecoveryActivity `json:"activities"`
}

func (h *SessionHandler) SetRecoveryActivities(w http.ResponseWriter, r *http.Request) {
	var req RecoveryActivitiesRequest
	if !readJSON(w, r, &req) {
		return
	}
	for _, a := range req.Activities {
		if _, ok := cycle.RecoveryActivityLabels[a]; !ok {
			writeError(w, http.StatusBadRequest, "unknown recovery activity")
			return
		}
	}
	h.runner.SetRecoveryActivities(req.Activities)
	h.GetState(w, r)
}

type EndSessionRequest struct {
	EarlyStopReason records.EarlyStopReason `json:"earlyStopReason,omitempty"`
	SelfReport      *records.SelfReport     `json:"selfReport,omitempty"`
}

// EndSession terminates the live session, turns the result into a focus
// record and persists it. The record is returned so the frontend can
// show the session summary without a second round trip.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if !readJSON(w, r, &req) {
		return
	}

	if req.SelfReport != nil {
		if err := req.SelfReport.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, ended := h.runner.End()
	if !ended {
		writeError(w, http.StatusConflict, "no active session")
		return
	}

	record := records.NewFromSession(result, req.EarlyStopReason)
	record.SelfReport = req.SelfReport

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.records.Add(ctx, record); err != nil {
		log.Printf("Failed to persist focus record %s: %v", record.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to persist focus record")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}
