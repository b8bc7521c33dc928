package domain

import "time"

// Placeholder is the value an untouched dropdown reports.
const Placeholder = "-- Choose --"

// Scenario is one taxonomy row. Reason1 and Reason2 are always set once the
// taxonomy is loaded; an empty Reason3 means no third-level classification
// applies, and an empty Description means the row cannot be used as a quiz item.
type Scenario struct {
	Reason1     string `json:"reason1"`
	Reason2     string `json:"reason2"`
	Reason3     string `json:"reason3,omitempty"`
	Description string `json:"description,omitempty"`
}

// HasReason3 reports whether the row requires a third-level match.
func (s Scenario) HasReason3() bool { return s.Reason3 != "" }

// HasDescription reports whether the row can be shown as a scenario.
func (s Scenario) HasDescription() bool { return s.Description != "" }

// Choice is the classification path submitted by an agent.
type Choice struct {
	Reason1 string `json:"reason1"`
	Reason2 string `json:"reason2"`
	Reason3 string `json:"reason3"`
}

// Role separates regular agents from managers with audit access.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Player identifies who owns a quiz session.
type Player struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Role    Role   `json:"role"`
}

// LeaderboardEntry is one appended row of the shared leaderboard.
type LeaderboardEntry struct {
	Name       string    `json:"name"`
	Country    string    `json:"country,omitempty"`
	Score      int       `json:"score"`
	Tier       int       `json:"tier"`
	RecordedAt time.Time `json:"recordedAt"`
}

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Position   int  `json:"position"`
	Correct    bool `json:"correct"`
	Delta      int  `json:"delta"`
	TotalScore int  `json:"totalScore"`
}

// ScenarioView is what the client needs to render the current quiz step.
type ScenarioView struct {
	SessionID string `json:"sessionId"`
	Player    Player `json:"player"`
	State     string `json:"state"`
	Position  int    `json:"position"`
	Length    int    `json:"length"`
	Score     int    `json:"score"`
	Message   string `json:"message,omitempty"`
}

// Completion is reported when a session finishes its last scenario.
type Completion struct {
	Score   int    `json:"score"`
	Tier    int    `json:"tier"`
	Synced  bool   `json:"synced"`
	Notice  string `json:"notice"`
	Warning string `json:"warning,omitempty"`
}

// Options is the dependent dropdown cascade for a partial selection.
// Placeholder is the entry each dropdown shows before a choice is made.
type Options struct {
	Placeholder string   `json:"placeholder"`
	Reason1     []string `json:"reason1"`
	Reason2     []string `json:"reason2"`
	Reason3     []string `json:"reason3"`
	Selected    Choice   `json:"selected"`
}
