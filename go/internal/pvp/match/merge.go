package match

// Merge folds a freshly fetched snapshot into the previously known state of the
// same match. The backend snapshot wins on every field except where that would
// break a lifecycle invariant:
//   - status never regresses
//   - a filled seat is never emptied, a submitted answer is never cleared
//   - the problem is fixed once assigned
//   - a finished match only accepts display fields (names, problem metadata)
//   - the winner exists only on a finished match and must hold a seat
//
// A nil prev, or a prev for another match, returns a copy of next.
func Merge(prev, next *Match) *Match {
	if next == nil {
		return prev.Clone()
	}
	if prev == nil || prev.ID != next.ID {
		out := next.Clone()
		sanitizeWinner(out)
		return out
	}

	if prev.Status == StatusFinished {
		out := prev.Clone()
		if next.Player1Name != "" {
			out.Player1Name = next.Player1Name
		}
		if next.Player2Name != "" {
			out.Player2Name = next.Player2Name
		}
		if next.Problem != nil {
			p := *next.Problem
			out.Problem = &p
		}
		return out
	}

	out := next.Clone()
	if out.Status.Rank() < prev.Status.Rank() {
		out.Status = prev.Status
	}
	if prev.ProblemID != 0 {
		out.ProblemID = prev.ProblemID
	}
	if out.Player1ID == nil {
		out.Player1ID = clonePtr(prev.Player1ID)
	}
	if out.Player2ID == nil {
		out.Player2ID = clonePtr(prev.Player2ID)
	}
	if out.Player1Answer == nil && prev.Player1Answer != nil {
		out.Player1Answer = clonePtr(prev.Player1Answer)
		out.Player1Time = clonePtr(prev.Player1Time)
	}
	if out.Player2Answer == nil && prev.Player2Answer != nil {
		out.Player2Answer = clonePtr(prev.Player2Answer)
		out.Player2Time = clonePtr(prev.Player2Time)
	}
	sanitizeWinner(out)
	return out
}

func sanitizeWinner(m *Match) {
	if m.WinnerID == nil {
		return
	}
	if m.Status != StatusFinished || m.SeatOf(*m.WinnerID) == SeatNone {
		m.WinnerID = nil
	}
}
