package match

import (
	"fmt"
	"strings"
)

// ID identifies a match on the backend.
type ID int64

// UserID identifies a platform user.
type UserID int64

// Status is the lifecycle status of a match. It only ever moves forward.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Rank orders statuses so regressions can be detected. Unknown statuses rank lowest.
func (s Status) Rank() int {
	switch s {
	case StatusWaiting:
		return 1
	case StatusActive:
		return 2
	case StatusFinished:
		return 3
	default:
		return 0
	}
}

func (s Status) Valid() bool { return s.Rank() > 0 }

// Seat is one of the two participant slots.
type Seat int

const (
	SeatNone Seat = iota
	SeatPlayer1
	SeatPlayer2
)

func (s Seat) String() string {
	switch s {
	case SeatPlayer1:
		return "player1"
	case SeatPlayer2:
		return "player2"
	default:
		return "none"
	}
}

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	switch s {
	case SeatPlayer1:
		return SeatPlayer2
	case SeatPlayer2:
		return SeatPlayer1
	default:
		return SeatNone
	}
}

// ProblemInfo is the problem metadata nested in a match snapshot. It never
// carries the canonical answer.
type ProblemInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty"`
	Category    string `json:"category"`
}

// Match is the canonical match entity as reported by the backend.
type Match struct {
	ID          ID           `json:"id"`
	Status      Status       `json:"status"`
	ProblemID   int64        `json:"problem_id"`
	Problem     *ProblemInfo `json:"problem,omitempty"`
	Player1ID   *UserID      `json:"player1_id"`
	Player2ID   *UserID      `json:"player2_id"`
	Player1Name string       `json:"player1"`
	Player2Name string       `json:"player2"`

	Player1Answer *string `json:"player1_answer"`
	Player2Answer *string `json:"player2_answer"`
	Player1Time   *int    `json:"player1_time"`
	Player2Time   *int    `json:"player2_time"`

	WinnerID *UserID `json:"winner_id"`

	// Set only when the backend computes correctness itself.
	Player1Correct *bool `json:"player1_correct,omitempty"`
	Player2Correct *bool `json:"player2_correct,omitempty"`
}

// SeatOf returns the seat occupied by user, or SeatNone for a spectator.
func (m *Match) SeatOf(user UserID) Seat {
	switch {
	case m.Player1ID != nil && *m.Player1ID == user:
		return SeatPlayer1
	case m.Player2ID != nil && *m.Player2ID == user:
		return SeatPlayer2
	default:
		return SeatNone
	}
}

func (m *Match) PlayerID(seat Seat) *UserID {
	switch seat {
	case SeatPlayer1:
		return m.Player1ID
	case SeatPlayer2:
		return m.Player2ID
	}
	return nil
}

func (m *Match) PlayerName(seat Seat) string {
	switch seat {
	case SeatPlayer1:
		return m.Player1Name
	case SeatPlayer2:
		return m.Player2Name
	}
	return ""
}

func (m *Match) Answer(seat Seat) *string {
	switch seat {
	case SeatPlayer1:
		return m.Player1Answer
	case SeatPlayer2:
		return m.Player2Answer
	}
	return nil
}

func (m *Match) Time(seat Seat) *int {
	switch seat {
	case SeatPlayer1:
		return m.Player1Time
	case SeatPlayer2:
		return m.Player2Time
	}
	return nil
}

// Correct returns the backend-computed correctness for seat, if any.
func (m *Match) Correct(seat Seat) *bool {
	switch seat {
	case SeatPlayer1:
		return m.Player1Correct
	case SeatPlayer2:
		return m.Player2Correct
	}
	return nil
}

// FilledSeats counts occupied seats.
func (m *Match) FilledSeats() int {
	n := 0
	if m.Player1ID != nil {
		n++
	}
	if m.Player2ID != nil {
		n++
	}
	return n
}

// BothSubmitted reports whether both seats have an answer.
func (m *Match) BothSubmitted() bool {
	return m.Player1Answer != nil && m.Player2Answer != nil
}

// HasBackendCorrectness reports whether the snapshot already embeds correctness for both seats.
func (m *Match) HasBackendCorrectness() bool {
	return m.Player1Correct != nil && m.Player2Correct != nil
}

// NeedsCanonicalAnswer reports whether correctness has to be derived locally.
func (m *Match) NeedsCanonicalAnswer() bool {
	if m.HasBackendCorrectness() {
		return false
	}
	return m.Status == StatusFinished || (m.Status == StatusActive && m.BothSubmitted())
}

// Validate checks the structural invariants of a snapshot.
func (m *Match) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("match %d: unknown status %q", m.ID, m.Status)
	}
	if m.Status != StatusWaiting && m.FilledSeats() != 2 {
		return fmt.Errorf("match %d: status %s requires both seats, have %d", m.ID, m.Status, m.FilledSeats())
	}
	if m.WinnerID != nil {
		if m.Status != StatusFinished {
			return fmt.Errorf("match %d: winner set while %s", m.ID, m.Status)
		}
		if m.SeatOf(*m.WinnerID) == SeatNone {
			return fmt.Errorf("match %d: winner %d holds no seat", m.ID, *m.WinnerID)
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots can be shared across goroutines.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	out := *m
	if m.Problem != nil {
		p := *m.Problem
		out.Problem = &p
	}
	out.Player1ID = clonePtr(m.Player1ID)
	out.Player2ID = clonePtr(m.Player2ID)
	out.Player1Answer = clonePtr(m.Player1Answer)
	out.Player2Answer = clonePtr(m.Player2Answer)
	out.Player1Time = clonePtr(m.Player1Time)
	out.Player2Time = clonePtr(m.Player2Time)
	out.WinnerID = clonePtr(m.WinnerID)
	out.Player1Correct = clonePtr(m.Player1Correct)
	out.Player2Correct = clonePtr(m.Player2Correct)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NormalizeAnswer is the comparison form of an answer: trimmed and lower-cased.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AnswersMatch compares a submitted answer with the canonical one.
func AnswersMatch(submitted, canonical string) bool {
	return NormalizeAnswer(submitted) == NormalizeAnswer(canonical)
}
