package service

import (
	"time"

	"github.com/wricardo/treasure-quest/game/engine"
)

// CreateSessionRequest selects the map a new session runs. MapText wins
// over MapID; with neither set the catalog default is used.
type CreateSessionRequest struct {
	MapID   string `json:"map_id,omitempty"`
	MapText string `json:"map_text,omitempty"`
}

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string        `json:"id"`
	MapName        string        `json:"map_name"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	Playing        bool          `json:"playing"`
	IntervalMS     int64         `json:"interval_ms,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	State          *engine.State `json:"state"`
}

// StepResult contains the result of a single step
type StepResult struct {
	Outcome engine.Outcome `json:"outcome"`
	Message string         `json:"message"`
	State   *engine.State  `json:"state"`
}

// RunResult contains the outcomes of running a session to completion
type RunResult struct {
	StepsExecuted int              `json:"steps_executed"`
	Outcomes      []engine.Outcome `json:"outcomes"`
	Log           []string         `json:"log"`
	State         *engine.State    `json:"state"`
	Output        string           `json:"output"`
}

// SimulationResult is the result of a one-shot simulation
type SimulationResult struct {
	Output   string           `json:"output"`
	Steps    int              `json:"steps"`
	Outcomes []engine.Outcome `json:"outcomes"`
	Log      []string         `json:"log"`
	Warnings []string         `json:"warnings,omitempty"`
}

// HistoryOptions configures outcome log retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryEntry is one outcome of the log with its step number
type HistoryEntry struct {
	Step    int            `json:"step"`
	Message string         `json:"message"`
	Outcome engine.Outcome `json:"outcome"`
}

// HistoryResponse contains a paginated outcome log
type HistoryResponse struct {
	Entries     []HistoryEntry `json:"entries"`
	TotalSteps  int            `json:"total_steps"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// MapInfo provides information about a catalog map
type MapInfo struct {
	Filename    string `json:"filename"`
	MapID       string `json:"map_id"` // The identifier to use for session creation
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Mountains   int    `json:"mountains"`
	Treasures   int    `json:"treasures"`
	Adventurers int    `json:"adventurers"`
	MaxTurns    int    `json:"max_turns"`
	Warnings    int    `json:"warnings"`
}

// warningStrings flattens parse warnings for transport
func warningStrings(warnings []*engine.ParseWarning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Error())
	}
	return out
}

func logLines(outcomes []engine.Outcome) []string {
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		lines = append(lines, o.String())
	}
	return lines
}
