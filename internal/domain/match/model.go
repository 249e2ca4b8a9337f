package match

import (
	"fmt"
	"strings"
	"time"
)

// State is the match lifecycle. A match enters as scheduled, becomes
// finished once the provider reports a final result, and becomes settled
// after every pick for it has been scored. Transitions never skip a state.
type State string

const (
	StateScheduled State = "scheduled"
	StateFinished  State = "finished"
	StateSettled   State = "settled"
)

func ParseState(value string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(value))) {
	case StateScheduled:
		return StateScheduled, nil
	case StateFinished:
		return StateFinished, nil
	case StateSettled:
		return StateSettled, nil
	default:
		return "", fmt.Errorf("invalid match state %q", value)
	}
}

func (s State) Valid() bool {
	switch s {
	case StateScheduled, StateFinished, StateSettled:
		return true
	default:
		return false
	}
}

func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateScheduled:
		return next == StateScheduled || next == StateFinished
	case StateFinished:
		return next == StateFinished || next == StateSettled
	case StateSettled:
		return next == StateSettled
	default:
		return false
	}
}

// Team is one side of a match as reported by the league provider.
type Team struct {
	ID      int64
	Name    string
	LogoURL string
}

// Match represents one scheduled or completed contest. ExternalID is the
// provider's stable identifier and the upsert conflict key.
type Match struct {
	ID            int64
	ExternalID    int64
	Team1         Team
	Team2         Team
	StartTime     time.Time
	DivisionID    int64
	State         State
	WinnerID      *int64
	Team1MapScore *int
	Team2MapScore *int
	BestOf        int
	Round         string
	StreamLink    string
	SyncedAt      time.Time
}

func (m Match) Finished() bool {
	return m.State == StateFinished || m.State == StateSettled
}

// Resolved reports whether the match carries enough result data to score
// picks against. A finished match without a winner stays unresolved.
func (m Match) Resolved() bool {
	return m.Finished() && m.WinnerID != nil
}

// Validate enforces the null-state invariant: a scheduled match must not
// carry result fields, and a settled match must be fully resolved.
func (m Match) Validate() error {
	if m.ExternalID <= 0 {
		return fmt.Errorf("external id must be > 0")
	}
	if !m.State.Valid() {
		return fmt.Errorf("invalid match state %q", m.State)
	}
	if m.Team1.ID <= 0 || m.Team2.ID <= 0 {
		return fmt.Errorf("both team ids are required")
	}
	if m.BestOf < 1 || m.BestOf%2 == 0 {
		return fmt.Errorf("best of must be an odd integer >= 1, got %d", m.BestOf)
	}
	if m.State == StateScheduled {
		if m.WinnerID != nil || m.Team1MapScore != nil || m.Team2MapScore != nil {
			return fmt.Errorf("scheduled match must not carry result fields")
		}
	}
	if m.State == StateSettled && m.WinnerID == nil {
		return fmt.Errorf("settled match must have a winner")
	}
	return nil
}

// MapsToWin returns the map count required to take a series of this format.
func (m Match) MapsToWin() int {
	return m.BestOf/2 + 1
}
