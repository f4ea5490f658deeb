package controller

import "github.com/mcdev12/olympiad/go/internal/pvp/match"

// Derived is the viewer-relative reading of a snapshot.
type Derived struct {
	Seat           match.Seat
	Spectator      bool
	PlayerAnswer   *string
	OpponentAnswer *string
	BothSubmitted  bool

	// Per-seat correctness; nil while unknown.
	Player1Correct *bool
	Player2Correct *bool

	// Outcome fields are meaningful only when Finished.
	Finished   bool
	IsWinner   bool
	IsDraw     bool
	WinnerSeat match.Seat
}

// Derive is a pure function of the snapshot, the viewer and the canonical
// answer. Backend-provided correctness wins over local comparison.
func Derive(m *match.Match, viewer match.UserID, canonical *string) Derived {
	if m == nil {
		return Derived{Spectator: true}
	}

	seat := m.SeatOf(viewer)
	d := Derived{
		Seat:          seat,
		Spectator:     seat == match.SeatNone,
		BothSubmitted: m.BothSubmitted(),
	}
	if seat != match.SeatNone {
		d.PlayerAnswer = m.Answer(seat)
		d.OpponentAnswer = m.Answer(seat.Other())
	}

	d.Player1Correct = correctness(m, match.SeatPlayer1, canonical)
	d.Player2Correct = correctness(m, match.SeatPlayer2, canonical)

	if m.Status == match.StatusFinished {
		d.Finished = true
		if m.WinnerID == nil {
			d.IsDraw = true
		} else {
			d.WinnerSeat = m.SeatOf(*m.WinnerID)
			d.IsWinner = *m.WinnerID == viewer && seat != match.SeatNone
		}
	}
	return d
}

func correctness(m *match.Match, seat match.Seat, canonical *string) *bool {
	if c := m.Correct(seat); c != nil {
		v := *c
		return &v
	}
	answer := m.Answer(seat)
	if answer == nil || canonical == nil {
		return nil
	}
	v := match.AnswersMatch(*answer, *canonical)
	return &v
}
