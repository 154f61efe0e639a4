package render

import (
	"time"

	"go-process-table-ui/internal/process"
)

// Phase is the kind of a render state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is what the table and the status banner currently show.
type State struct {
	Phase     Phase            `json:"phase"`
	Message   string           `json:"message,omitempty"`
	Rows      []process.Record `json:"rows,omitempty"`
	ChangedAt time.Time        `json:"changed_at"`
}

// Level selects the styling of a status banner.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "danger"
)

// Banner is the content of the status element.
type Banner struct {
	Level Level
	Text  string
}
