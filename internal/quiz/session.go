package quiz

import (
	"errors"
	"math/rand/v2"
	"slices"

	"case-reasons-training/internal/domain"
)

// DefaultLength is the number of scenarios in one run.
const DefaultLength = 10

// Scoring deltas.
const (
	CorrectPoints = 10
	WrongPenalty  = 5
)

// State of a session.
type State string

const (
	StateAwaitingAnswer State = "awaiting_answer"
	StateSolved         State = "solved"
	StateComplete       State = "complete"
)

var (
	ErrNoScenarios       = errors.New("quiz: no scenarios with a description")
	ErrNotAwaitingAnswer = errors.New("quiz: current scenario already solved")
	ErrNotSolved         = errors.New("quiz: current scenario not solved yet")
	ErrSessionComplete   = errors.New("quiz: session complete, restart to play again")
)

// Session is one agent's run through a shuffled set of scenarios. It is a
// plain value: callers load it, apply one operation and store it back.
type Session struct {
	ID       string            `json:"id"`
	Player   domain.Player     `json:"player"`
	Ordering []domain.Scenario `json:"ordering"`
	Limit    int               `json:"limit"`
	Position int               `json:"position"`
	Score    int               `json:"score"`
	State    State             `json:"state"`
	Attempts int               `json:"attempts"`
	// Version is the stored revision this value was read at. Stores bump it
	// on every Save and reject a Save whose Version is stale.
	Version  int64             `json:"version"`
}

// New creates a session over a fresh permutation of scenarios. Only scenarios
// with a description are eligible. limit <= 0 selects DefaultLength.
func New(id string, player domain.Player, scenarios []domain.Scenario, limit int, rng *rand.Rand) (*Session, error) {
	s := &Session{ID: id, Player: player, Limit: limit}
	if err := s.Restart(scenarios, rng); err != nil {
		return nil, err
	}
	return s, nil
}

// Restart draws a new ordering and resets position, score and state.
func (s *Session) Restart(scenarios []domain.Scenario, rng *rand.Rand) error {
	ordering := make([]domain.Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		if sc.HasDescription() {
			ordering = append(ordering, sc)
		}
	}
	if len(ordering) == 0 {
		return ErrNoScenarios
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(ordering), func(i, j int) {
		ordering[i], ordering[j] = ordering[j], ordering[i]
	})

	if s.Limit <= 0 {
		s.Limit = DefaultLength
	}
	s.Ordering = ordering
	s.Position = 0
	s.Score = 0
	s.Attempts = 0
	s.State = StateAwaitingAnswer
	return nil
}

// Length is the number of scenarios this run will present.
func (s *Session) Length() int {
	return min(s.Limit, len(s.Ordering))
}

// Current returns the scenario at the current position.
func (s *Session) Current() domain.Scenario {
	return s.Ordering[s.Position]
}

// Submit judges choice against the current scenario. A correct answer adds
// CorrectPoints and marks the scenario solved; a wrong one subtracts
// WrongPenalty and leaves the scenario open. Placeholders are simply wrong.
func (s *Session) Submit(choice domain.Choice) (domain.AnswerResult, error) {
	switch s.State {
	case StateComplete:
		return domain.AnswerResult{}, ErrSessionComplete
	case StateSolved:
		return domain.AnswerResult{}, ErrNotAwaitingAnswer
	}

	s.Attempts++
	res := domain.AnswerResult{Position: s.Position}
	if IsCorrect(s.Current(), choice) {
		s.Score += CorrectPoints
		s.State = StateSolved
		res.Correct = true
		res.Delta = CorrectPoints
	} else {
		s.Score -= WrongPenalty
		res.Delta = -WrongPenalty
	}
	res.TotalScore = s.Score
	return res, nil
}

// Advance moves past a solved scenario. It reports completed=true exactly
// once, on the transition into StateComplete.
func (s *Session) Advance() (completed bool, err error) {
	switch s.State {
	case StateComplete:
		return false, ErrSessionComplete
	case StateAwaitingAnswer:
		return false, ErrNotSolved
	}

	if s.Position+1 < s.Length() {
		s.Position++
		s.Attempts = 0
		s.State = StateAwaitingAnswer
		return false, nil
	}
	s.State = StateComplete
	return true, nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Ordering = slices.Clone(s.Ordering)
	return &c
}

// IsCorrect applies the classification rule: Reason 1 and Reason 2 must
// match; Reason 3 must match only when the target has one.
func IsCorrect(target domain.Scenario, choice domain.Choice) bool {
	if choice.Reason1 != target.Reason1 || choice.Reason2 != target.Reason2 {
		return false
	}
	return !target.HasReason3() || choice.Reason3 == target.Reason3
}
