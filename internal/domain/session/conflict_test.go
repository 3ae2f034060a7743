package session_test

import (
	"errors"
	"testing"

	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	token string
	err   error
}

func (m *memTokens) Token() (string, error) { return m.token, m.err }

func (m *memTokens) SetToken(token string) error {
	if m.err != nil {
		return m.err
	}
	m.token = token
	return nil
}

func TestDetector_NoSession(t *testing.T) {
	d := session.NewDetector(&memTokens{token: "mine"}, nil)

	state, err := d.Observe(false, "theirs")
	require.NoError(t, err)
	require.Equal(t, session.ConflictNoSession, state)

	state, err = d.Observe(true, "")
	require.NoError(t, err)
	require.Equal(t, session.ConflictNoSession, state)
}

func TestDetector_AdoptsWhenLocalAbsent(t *testing.T) {
	tokens := &memTokens{}
	d := session.NewDetector(tokens, nil)

	state, err := d.Observe(true, "remote")
	require.NoError(t, err)
	require.Equal(t, session.ConflictOwnedLocally, state)
	require.Equal(t, "remote", tokens.token)
}

func TestDetector_ConflictThenTakeOver(t *testing.T) {
	tokens := &memTokens{token: "mine"}
	d := session.NewDetector(tokens, nil)

	state, err := d.Observe(true, "theirs")
	require.NoError(t, err)
	require.Equal(t, session.ConflictDetected, state)
	require.Equal(t, "mine", tokens.token)

	// After take over the remote carries the local token.
	state, err = d.Observe(true, "mine")
	require.NoError(t, err)
	require.Equal(t, session.ConflictOwnedLocally, state)
}

func TestDetector_LocalStoreFailure(t *testing.T) {
	d := session.NewDetector(&memTokens{err: errors.New("disk")}, nil)
	_, err := d.Observe(true, "remote")
	require.Error(t, err)
}
