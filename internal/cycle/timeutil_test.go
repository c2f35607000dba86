package cycle

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tf := NewTimeFormatter()

	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{45 * time.Minute, "45:00"},
		{90*time.Minute + 5*time.Second, "90:05"},
	}
	for _, c := range cases {
		if got := tf.FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v): expected %q, got %q", c.d, c.want, got)
		}
	}
}

func TestFormatDurationLong(t *testing.T) {
	tf := NewTimeFormatter()

	if got := tf.FormatDurationLong(45 * time.Minute); got != "45:00" {
		t.Errorf("Expected 45:00, got %q", got)
	}
	if got := tf.FormatDurationLong(90*time.Minute + 5*time.Second); got != "1:30:05" {
		t.Errorf("Expected 1:30:05, got %q", got)
	}
}

func TestFormatMinutes(t *testing.T) {
	tf := NewTimeFormatter()

	if got := tf.FormatMinutes(45); got != "45m" {
		t.Errorf("Expected 45m, got %q", got)
	}
	if got := tf.FormatMinutes(90); got != "1h 30m" {
		t.Errorf("Expected 1h 30m, got %q", got)
	}
	if got := tf.FormatMinutes(120); got != "2h" {
		t.Errorf("Expected 2h, got %q", got)
	}
}

func TestDayKeyAttributesToStartDay(t *testing.T) {
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, time.Local)
	if got := DayKey(late); got != "2025-03-10" {
		t.Errorf("Expected 2025-03-10, got %s", got)
	}
	if SameDay(late, late.Add(time.Hour)) {
		t.Error("Expected 23:30 and 00:30 next day to differ")
	}
	if !SameDay(late, late.Add(-5*time.Hour)) {
		t.Error("Expected same calendar day")
	}
}

func TestTemplateByID(t *testing.T) {
	for _, id := range []string{"standard-90", "short-60", "deep-120"} {
		template, err := TemplateByID(id)
		if err != nil {
			t.Errorf("Expected template %s to exist, got %v", id, err)
			continue
		}
		if template.Durations.Total() <= 0 {
			t.Errorf("Expected positive total for %s", id)
		}
	}

	if _, err := TemplateByID("marathon-240"); err == nil {
		t.Error("Expected error for unknown template")
	}
}

func TestStandardTemplateDurations(t *testing.T) {
	template, _ := TemplateByID("standard-90")

	want := map[Stage]float64{
		StageRampUp:    15,
		StagePeak:      45,
		StageDownshift: 15,
		StageRecovery:  20,
	}
	for stage, minutes := range want {
		if got := template.Durations.Get(stage); got != minutes {
			t.Errorf("Expected %s = %.0f minutes, got %.0f", stage, minutes, got)
		}
	}
	if got := template.Durations.Total(); got != 95 {
		t.Errorf("Expected total 95 minutes, got %.0f", got)
	}
}
