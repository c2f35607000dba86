package records

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ultradianService/internal/cycle"
)

var csvHeaders = []string{
	"Date",
	"Topic",
	"Task Type",
	"Goal",
	"Template",
	"Duration (min)",
	"Ramp-Up (min)",
	"Peak (min)",
	"Downshift (min)",
	"Recovery (min)",
	"Completed",
	"Pre-Session Energy",
	"Post-Session Energy",
	"Distractions",
	"Friction Level",
	"Pause Count",
	"Recovery Outcome",
	"Recovery Activities",
	"Early Stop Reason",
	"Notes",
}

// WriteCSV serializes records row-oriented for user-initiated backup and
// spreadsheet analysis.
func WriteCSV(w io.Writer, recs []FocusRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range recs {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(r FocusRecord) []string {
	preEnergy := ""
	if r.Tags.PreSessionEnergy > 0 {
		preEnergy = strconv.Itoa(r.Tags.PreSessionEnergy)
	}

	postEnergy := ""
	distractionCount := len(r.Distractions)
	notes := ""
	if r.SelfReport != nil {
		postEnergy = strconv.Itoa(r.SelfReport.EnergyLevel)
		distractionCount = r.SelfReport.DistractionCount
		notes = r.SelfReport.Notes
	}

	completed := "No"
	if r.Completed {
		completed = "Yes"
	}

	activities := make([]string, 0, len(r.RecoveryActivities))
	for _, a := range r.RecoveryActivities {
		if label, ok := cycle.RecoveryActivityLabels[a]; ok {
			activities = append(activities, label)
		} else {
			activities = append(activities, string(a))
		}
	}

	taskType := string(r.Tags.TaskType)
	if label, ok := cycle.TaskTypeLabels[r.Tags.TaskType]; ok {
		taskType = label
	}

	return []string{
		r.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
		r.Tags.Topic,
		taskType,
		r.Tags.Goal,
		r.TemplateName,
		strconv.Itoa(int(r.Duration() + 0.5)),
		strconv.Itoa(int(r.ActualDurations.Get(cycle.StageRampUp) + 0.5)),
		strconv.Itoa(int(r.ActualDurations.Get(cycle.StagePeak) + 0.5)),
		strconv.Itoa(int(r.ActualDurations.Get(cycle.StageDownshift) + 0.5)),
		strconv.Itoa(int(r.ActualDurations.Get(cycle.StageRecovery) + 0.5)),
		completed,
		preEnergy,
		postEnergy,
		strconv.Itoa(distractionCount),
		string(r.FrictionLevel),
		strconv.Itoa(r.PauseCount),
		string(r.RecoveryOutcome),
		strings.Join(activities, "; "),
		string(r.EarlyStopReason),
		notes,
	}
}

// WriteJSON serializes records losslessly for backup and re-import.
func WriteJSON(w io.Writer, recs []FocusRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("failed to encode records as JSON: %w", err)
	}
	return nil
}
