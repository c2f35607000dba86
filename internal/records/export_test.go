package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"ultradianService/internal/cycle"
)

func TestWriteCSV(t *testing.T) {
	recs := []FocusRecord{
		NewFromSession(sampleResult(t, true), ""),
		NewFromSession(sampleResult(t, false), StopInterruption),
	}
	recs[0].SelfReport = &SelfReport{EnergyLevel: 5, DistractionCount: 0}
	recs[0].RecoveryActivities = []cycle.RecoveryActivity{cycle.RecoveryWalked}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("Expected CSV write to succeed, got %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected parseable CSV, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 data rows, got %d", len(rows))
	}

	header := rows[0]
	if header[0] != "Date" || header[1] != "Topic" {
		t.Errorf("Expected Date,Topic leading columns, got %v", header[:2])
	}
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			t.Errorf("Expected %d columns, got %d", len(header), len(row))
		}
	}

	// Stage columns carry rounded minutes.
	peakCol := -1
	for i, name := range header {
		if name == "Peak (min)" {
			peakCol = i
		}
	}
	if peakCol == -1 {
		t.Fatal("Expected a Peak (min) column")
	}
	if got := rows[1][peakCol]; got != "45" {
		t.Errorf("Expected 45 peak minutes, got %q", got)
	}

	// Labels, not raw enum values.
	joined := rows[1]
	foundActivity := false
	for _, cell := range joined {
		if cell == "Walked" {
			foundActivity = true
		}
	}
	if !foundActivity {
		t.Error("Expected recovery activity label Walked in CSV row")
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("Expected empty export to succeed, got %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected parseable CSV, got %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected header only, got %d rows", len(rows))
	}
}

func TestWriteJSON(t *testing.T) {
	recs := []FocusRecord{NewFromSession(sampleResult(t, true), "")}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, recs); err != nil {
		t.Fatalf("Expected JSON write to succeed, got %v", err)
	}

	var decoded []FocusRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected parseable JSON, got %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(decoded))
	}
	if decoded[0].ID != recs[0].ID {
		t.Errorf("Expected id %s, got %s", recs[0].ID, decoded[0].ID)
	}
	if decoded[0].Duration() != recs[0].Duration() {
		t.Errorf("Expected duration %.1f, got %.1f", recs[0].Duration(), decoded[0].Duration())
	}
}
