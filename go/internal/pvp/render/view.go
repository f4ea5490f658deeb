package render

import (
	"fmt"

	"github.com/mcdev12/olympiad/go/internal/pvp/controller"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

// Screen selects what an external renderer draws.
type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenMatchList Screen = "match_list"
	ScreenLoading   Screen = "loading"
	ScreenWaiting   Screen = "waiting"
	ScreenMatch     Screen = "match"
	ScreenError     Screen = "error"
)

const (
	LabelWinner = "ПОБЕДИТЕЛЬ"
	LabelLoser  = "ПРОИГРАВШИЙ"
	LabelDraw   = "НИЧЬЯ"

	bannerWon       = "🏆 ВЫ ПОБЕДИЛИ!"
	bannerWinnerFmt = "🏆 Победитель: %s"
	bannerDraw      = "🤝 НИЧЬЯ"

	messageWaiting    = "Ожидание соперника..."
	messageSpectator  = "Вы не являетесь участником этого матча."
	messageBothDone   = "Оба игрока ответили!"
	messageOpponentIn = "Соперник уже отправил ответ!"
	messageSubmitted  = "Ответ отправлен. Ожидание соперника..."
)

type ProblemView struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty"`
	Category    string `json:"category"`
}

// PlayerView is one seat as shown to the viewer. Answer is withheld until
// both seats have submitted or the match is over.
type PlayerView struct {
	Seat      string  `json:"seat"`
	Name      string  `json:"name"`
	IsViewer  bool    `json:"is_viewer"`
	Submitted bool    `json:"submitted"`
	Answer    *string `json:"answer,omitempty"`
	Time      *int    `json:"time,omitempty"`
	Correct   *bool   `json:"correct,omitempty"`
	Winner    bool    `json:"winner"`
	Outcome   string  `json:"outcome,omitempty"`
}

// View is the typed view model of the PvP screen.
type View struct {
	Screen            Screen       `json:"screen"`
	MatchID           int64        `json:"match_id,omitempty"`
	Status            string       `json:"status,omitempty"`
	Problem           *ProblemView `json:"problem,omitempty"`
	Players           []PlayerView `json:"players,omitempty"`
	Spectator         bool         `json:"spectator"`
	ShowAnswerForm    bool         `json:"show_answer_form"`
	InputLocked       bool         `json:"input_locked"`
	OpponentSubmitted bool         `json:"opponent_submitted"`
	Banner            string       `json:"banner,omitempty"`
	CanonicalAnswer   *string      `json:"canonical_answer,omitempty"`
	Message           string       `json:"message,omitempty"`
	Error             string       `json:"error,omitempty"`
	CanLeave          bool         `json:"can_leave"`
	Refreshing        bool         `json:"refreshing"`
}

// Project maps a controller frame to a view. It is pure: equal frames give
// equal views.
func Project(frame controller.Frame) View {
	st := frame.State
	if frame.Viewer == nil {
		return View{Screen: ScreenLogin}
	}

	v := View{}
	if st.ActionErr != nil {
		v.Error = st.ActionErr.Error()
	}

	switch st.Kind {
	case controller.KindNoMatch:
		v.Screen = ScreenMatchList
		v.Message = st.Notice
		return v
	case controller.KindError:
		v.Screen = ScreenError
		v.MatchID = int64(st.MatchID)
		if st.Err != nil {
			v.Error = st.Err.Error()
		}
		v.CanLeave = true
		return v
	}

	v.MatchID = int64(st.MatchID)
	v.CanLeave = true
	if st.Match == nil {
		v.Screen = ScreenLoading
		return v
	}
	v.Refreshing = st.Kind == controller.KindLoading

	d := controller.Derive(st.Match, frame.Viewer.ID, st.Canonical)
	if frame.Derived != nil {
		d = *frame.Derived
	}
	projectMatch(&v, st, d, frame.Viewer.ID)
	return v
}

func projectMatch(v *View, st controller.State, d controller.Derived, viewer match.UserID) {
	m := st.Match
	spectator := st.Spectator || d.Spectator

	v.Status = string(m.Status)
	v.Spectator = spectator
	if m.Problem != nil {
		v.Problem = &ProblemView{
			Title:       m.Problem.Title,
			Description: m.Problem.Description,
			Difficulty:  m.Problem.Difficulty,
			Category:    m.Problem.Category,
		}
	}

	reveal := d.BothSubmitted || d.Finished
	for _, seat := range []match.Seat{match.SeatPlayer1, match.SeatPlayer2} {
		if m.PlayerID(seat) == nil {
			continue
		}
		v.Players = append(v.Players, projectPlayer(m, d, seat, viewer, reveal))
	}

	switch m.Status {
	case match.StatusWaiting:
		v.Screen = ScreenWaiting
		v.Message = messageWaiting
	case match.StatusActive:
		v.Screen = ScreenMatch
		if !spectator {
			own := m.Answer(d.Seat) != nil
			v.OpponentSubmitted = d.OpponentAnswer != nil
			v.ShowAnswerForm = !own
			v.InputLocked = own || st.Submitting
			switch {
			case d.BothSubmitted:
				v.Message = messageBothDone
			case own:
				v.Message = messageSubmitted
			case v.OpponentSubmitted:
				v.Message = messageOpponentIn
			}
		}
	case match.StatusFinished:
		v.Screen = ScreenMatch
		v.CanonicalAnswer = st.Canonical
		v.Banner = banner(m, d)
	}

	if spectator {
		v.ShowAnswerForm = false
		v.InputLocked = true
		if m.Status != match.StatusWaiting {
			v.Message = messageSpectator
		}
	}
}

func projectPlayer(m *match.Match, d controller.Derived, seat match.Seat, viewer match.UserID, reveal bool) PlayerView {
	id := m.PlayerID(seat)
	answer := m.Answer(seat)
	p := PlayerView{
		Seat:      seat.String(),
		Name:      m.PlayerName(seat),
		IsViewer:  *id == viewer,
		Submitted: answer != nil,
		Time:      m.Time(seat),
	}

	if answer != nil && (reveal || p.IsViewer) {
		a := *answer
		p.Answer = &a
	}
	if reveal {
		if seat == match.SeatPlayer1 {
			p.Correct = d.Player1Correct
		} else {
			p.Correct = d.Player2Correct
		}
	}

	if d.Finished {
		switch {
		case d.IsDraw:
			p.Outcome = LabelDraw
		case d.WinnerSeat == seat:
			p.Outcome = LabelWinner
			p.Winner = true
		default:
			p.Outcome = LabelLoser
		}
	}
	return p
}

func banner(m *match.Match, d controller.Derived) string {
	switch {
	case d.IsDraw:
		return bannerDraw
	case d.IsWinner:
		return bannerWon
	default:
		return fmt.Sprintf(bannerWinnerFmt, m.PlayerName(d.WinnerSeat))
	}
}
