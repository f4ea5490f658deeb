package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

// EventType tags a server-to-client push message.
type EventType string

const (
	EventTypeMatchStarted    EventType = "match_started"
	EventTypeAnswerSubmitted EventType = "answer_submitted"
	EventTypeMatchFinished   EventType = "match_finished"
	EventTypePlayerLeft      EventType = "player_left"
	EventTypeChat            EventType = "chat"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrMissingMatchID = errors.New("event without match_id")
)

// Event is a push hint. Payload fields only describe what happened; the
// canonical match state always comes from a fetch.
type Event interface {
	Type() EventType
	Match() match.ID
}

type MatchStarted struct {
	MatchID         match.ID      `json:"match_id"`
	Player1ID       *match.UserID `json:"player1_id"`
	Player2ID       *match.UserID `json:"player2_id"`
	Player1Username string        `json:"player1_username"`
	Player2Username string        `json:"player2_username"`
}

func (MatchStarted) Type() EventType   { return EventTypeMatchStarted }
func (e MatchStarted) Match() match.ID { return e.MatchID }

// Names reports whether user is one of the announced participants.
func (e MatchStarted) Names(user match.UserID) bool {
	return (e.Player1ID != nil && *e.Player1ID == user) || (e.Player2ID != nil && *e.Player2ID == user)
}

type AnswerSubmitted struct {
	MatchID match.ID     `json:"match_id"`
	UserID  match.UserID `json:"user_id"`
}

func (AnswerSubmitted) Type() EventType   { return EventTypeAnswerSubmitted }
func (e AnswerSubmitted) Match() match.ID { return e.MatchID }

type MatchFinished struct {
	MatchID        match.ID      `json:"match_id"`
	WinnerID       *match.UserID `json:"winner_id"`
	Player1Correct *bool         `json:"player1_correct"`
	Player2Correct *bool         `json:"player2_correct"`
}

func (MatchFinished) Type() EventType   { return EventTypeMatchFinished }
func (e MatchFinished) Match() match.ID { return e.MatchID }

type PlayerLeft struct {
	MatchID  match.ID     `json:"match_id"`
	UserID   match.UserID `json:"user_id"`
	Username string       `json:"username"`
}

func (PlayerLeft) Type() EventType   { return EventTypePlayerLeft }
func (e PlayerLeft) Match() match.ID { return e.MatchID }

type Chat struct {
	MatchID match.ID     `json:"match_id"`
	UserID  match.UserID `json:"user_id"`
	Message string       `json:"message"`
}

func (Chat) Type() EventType   { return EventTypeChat }
func (e Chat) Match() match.ID { return e.MatchID }

// ParseEvent decodes one server message into its variant.
func ParseEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	var (
		event Event
		err   error
	)
	switch head.Type {
	case EventTypeMatchStarted:
		event, err = decode[MatchStarted](data)
	case EventTypeAnswerSubmitted:
		event, err = decode[AnswerSubmitted](data)
	case EventTypeMatchFinished:
		event, err = decode[MatchFinished](data)
	case EventTypePlayerLeft:
		event, err = decode[PlayerLeft](data)
	case EventTypeChat:
		event, err = decode[Chat](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", head.Type, err)
	}
	if event.Match() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingMatchID, head.Type)
	}
	return event, nil
}

func decode[T Event](data []byte) (Event, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Client-to-server messages.

type AuthMessage struct {
	Type    string       `json:"type"`
	UserID  match.UserID `json:"user_id"`
	MatchID *match.ID    `json:"match_id"`
}

type AnswerSubmittedMessage struct {
	Type    string       `json:"type"`
	MatchID match.ID     `json:"match_id"`
	UserID  match.UserID `json:"user_id"`
}

func NewAuthMessage(userID match.UserID, matchID *match.ID) AuthMessage {
	return AuthMessage{Type: "auth", UserID: userID, MatchID: matchID}
}

func NewAnswerSubmittedMessage(matchID match.ID, userID match.UserID) AnswerSubmittedMessage {
	return AnswerSubmittedMessage{Type: string(EventTypeAnswerSubmitted), MatchID: matchID, UserID: userID}
}
