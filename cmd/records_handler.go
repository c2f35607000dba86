package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"ultradianService/internal/cycle"
	"ultradianService/internal/records"

	"github.com/go-chi/chi/v5"
)

func NewRecordsHandler(repo records.Repository) *RecordsHandler {
	return &RecordsHandler{records: repo}
}

type RecordsHandler struct {
	records records.Repository
}

// parseListQuery maps query parameters onto record filters and sort.
// Dates are inclusive calendar days in the server's local zone.
func parseListQuery(r *http.Request) (records.Filters, records.Sort, error) {
	var f records.Filters
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return f, records.Sort{}, fmt.Errorf("invalid from date: %s", v)
		}
		f.DateStart = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return f, records.Sort{}, fmt.Errorf("invalid to date: %s", v)
		}
		f.DateEnd = &t
	}
	for _, v := range q["taskType"] {
		t := cycle.TaskType(v)
		if !cycle.IsValidTaskType(t) {
			return f, records.Sort{}, fmt.Errorf("unknown task type: %s", v)
		}
		f.TaskTypes = append(f.TaskTypes, t)
	}
	f.Topics = q["topic"]
	f.CompletedOnly = q.Get("completedOnly") == "true"

	s := records.DefaultSort
	if v := q.Get("sort"); v != "" {
		switch records.SortField(v) {
		case records.SortByCreatedAt, records.SortByTopic, records.SortByTaskType,
			records.SortByEnergy, records.SortByDuration:
			s.Field = records.SortField(v)
		default:
			return f, records.Sort{}, fmt.Errorf("unknown sort field: %s", v)
		}
	}
	if v := q.Get("order"); v != "" {
		s.Descending = v == "desc"
	}

	return f, s, nil
}

func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filters, sortSpec, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	recs, err := h.records.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load focus records")
		return
	}

	recs = records.ApplyFilters(recs, filters)
	records.SortRecords(recs, sortSpec)

	writeJSON(w, http.StatusOK, map[string]any{
		"records": recs,
		"total":   len(recs),
	})
}

func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	record, err := h.records.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load focus record")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *RecordsHandler) AttachSelfReport(w http.ResponseWriter, r *http.Request) {
	var report records.SelfReport
	if !readJSON(w, r, &report) {
		return
	}
	if err := report.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.records.AttachSelfReport(ctx, id, report); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update focus record")
		return
	}

	record, err := h.records.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load focus record")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *RecordsHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.records.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, "record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete focus record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type DeleteManyRequest struct {
	IDs []string `json:"ids"`
}

func (h *RecordsHandler) DeleteRecords(w http.ResponseWriter, r *http.Request) {
	var req DeleteManyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.records.DeleteMany(ctx, req.IDs); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete focus records")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTopics returns the distinct topics seen across all records, for
// topic autocomplete at session setup.
func (h *RecordsHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	recs, err := h.records.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load focus records")
		return
	}
	writeJSON(w, http.StatusOK, records.UniqueTopics(recs))
}

// ExportRecords streams the filtered record set as CSV (default) or JSON.
func (h *RecordsHandler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	filters, sortSpec, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	recs, err := h.records.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load focus records")
		return
	}

	recs = records.ApplyFilters(recs, filters)
	records.SortRecords(recs, sortSpec)

	stamp := time.Now().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=focus-records-%s.csv", stamp))
		if err := records.WriteCSV(w, recs); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to write CSV export")
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=focus-records-%s.json", stamp))
		if err := records.WriteJSON(w, recs); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to write JSON export")
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or json")
	}
}
