package controller

import (
	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp/fetcher"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/transport"
)

// message is everything the controller loop consumes.
type message interface{ isMessage() }

type openMsg struct {
	id   match.ID
	done chan struct{}
}

type navigateMsg struct {
	reset bool
	done  chan struct{}
}

type refreshMsg struct {
	done chan struct{}
}

type pushMsg struct {
	event transport.Event
}

type actionFailedMsg struct {
	err error
}

type submitMsg struct {
	answer string
	reply  chan error
}

type fetchResultMsg struct {
	gen  uint64
	id   match.ID
	snap *fetcher.Snapshot
	err  error
}

type submitResultMsg struct {
	epoch   uint64
	matchID match.ID
	userID  match.UserID
	resp    *olympiad_client.SubmitAnswerResponse
	err     error
	reply   chan error
}

func (openMsg) isMessage()         {}
func (navigateMsg) isMessage()     {}
func (refreshMsg) isMessage()      {}
func (pushMsg) isMessage()         {}
func (actionFailedMsg) isMessage() {}
func (submitMsg) isMessage()       {}
func (fetchResultMsg) isMessage()  {}
func (submitResultMsg) isMessage() {}
