package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

func TestLogout_ResetsEverythingUnconditionally(t *testing.T) {
	s := New()
	calls := 0
	s.Attach(ResetFunc(func() { calls++ }), ResetFunc(func() { calls++ }))

	// Logout while already logged out still resets.
	s.Logout()
	assert.Equal(t, 2, calls)

	s.Login(User{ID: 1, Username: "alice"})
	id := match.ID(7)
	s.SetTrackedMatch(&id)

	s.Logout()
	assert.Equal(t, 4, calls)
	assert.False(t, s.LoggedIn())
	_, tracked := s.TrackedMatch()
	assert.False(t, tracked)
}

func TestClearTrackedIf(t *testing.T) {
	s := New()
	id := match.ID(7)
	s.SetTrackedMatch(&id)

	assert.False(t, s.ClearTrackedIf(8))
	assert.True(t, s.IsTracked(7))

	assert.True(t, s.ClearTrackedIf(7))
	assert.False(t, s.IsTracked(7))
	assert.False(t, s.ClearTrackedIf(7))
}

func TestTrackIfIdle_OnlyOneWinner(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	wins := make(chan match.ID, 10)
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(id match.ID) {
			defer wg.Done()
			if s.TrackIfIdle(id) {
				wins <- id
			}
		}(match.ID(i))
	}
	wg.Wait()
	close(wins)

	var got []match.ID
	for id := range wins {
		got = append(got, id)
	}
	require.Len(t, got, 1)
	assert.True(t, s.IsTracked(got[0]))
}

func TestAnnouncement(t *testing.T) {
	s := New()
	_, ok := s.Announcement()
	assert.False(t, ok)

	s.Login(User{ID: 3})
	a, ok := s.Announcement()
	require.True(t, ok)
	assert.Equal(t, match.UserID(3), a.UserID)
	assert.Nil(t, a.MatchID)

	id := match.ID(9)
	s.SetTrackedMatch(&id)
	a, _ = s.Announcement()
	require.NotNil(t, a.MatchID)
	assert.Equal(t, match.ID(9), *a.MatchID)
}

func TestSwapTracked(t *testing.T) {
	s := New()
	a, b := match.ID(1), match.ID(2)

	assert.False(t, s.SwapTracked(&a, &b))
	assert.True(t, s.SwapTracked(nil, &a))
	assert.False(t, s.SwapTracked(nil, &b))
	assert.True(t, s.IsTracked(1))

	assert.True(t, s.SwapTracked(&a, &b))
	assert.True(t, s.IsTracked(2))

	assert.True(t, s.SwapTracked(&b, nil))
	_, tracked := s.TrackedMatch()
	assert.False(t, tracked)
}
