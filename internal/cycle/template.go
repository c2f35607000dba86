package cycle

import "fmt"

// Template is a named duration preset selected at session start. Templates
// are immutable for the lifetime of a session.
type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Durations   StageDurations `json:"durations"`
	Description string         `json:"description,omitempty"`
}

// DefaultTemplates is the built-in catalog. New presets are additional
// catalog entries; there is no dynamic template behavior.
var DefaultTemplates = []Template{
	{
		ID:   "standard-90",
		Name: "Standard 90-min",
		Durations: StageDurations{
			StageRampUp:    15,
			StagePeak:      45,
			StageDownshift: 15,
			StageRecovery:  20,
		},
		Description: "Classic ultradian rhythm cycle",
	},
	{
		ID:   "short-60",
		Name: "Short 60-min",
		Durations: StageDurations{
			StageRampUp:    10,
			StagePeak:      30,
			StageDownshift: 10,
			StageRecovery:  15,
		},
		Description: "Condensed cycle for shorter focus periods",
	},
	{
		ID:   "deep-120",
		Name: "Deep Work 120-min",
		Durations: StageDurations{
			StageRampUp:    20,
			StagePeak:      60,
			StageDownshift: 20,
			StageRecovery:  25,
		},
		Description: "Extended cycle for deep work sessions",
	},
}

// TemplateByID looks up a template in the catalog.
func TemplateByID(id string) (Template, error) {
	for _, tpl := range DefaultTemplates {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return Template{}, fmt.Errorf("unknown cycle template: %s", id)
}
