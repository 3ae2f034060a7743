package localstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganot/timekeep/internal/localstate"
	"github.com/stretchr/testify/require"
)

func TestOpen_GeneratesStableInstanceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.yaml")

	f, err := localstate.Open(path)
	require.NoError(t, err)
	id, err := f.InstanceID()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	reopened, err := localstate.Open(path)
	require.NoError(t, err)
	again, err := reopened.InstanceID()
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestUserState_TokenRoundTripPerUser(t *testing.T) {
	f, err := localstate.Open(filepath.Join(t.TempDir(), "device.yaml"))
	require.NoError(t, err)

	alice := f.For("alice")
	bob := f.For("bob")

	tok, err := alice.Token()
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, alice.SetToken("t-alice"))
	require.NoError(t, bob.SetToken("t-bob"))

	tok, err = alice.Token()
	require.NoError(t, err)
	require.Equal(t, "t-alice", tok)

	require.NoError(t, alice.ClearToken())
	tok, err = alice.Token()
	require.NoError(t, err)
	require.Empty(t, tok)

	tok, err = bob.Token()
	require.NoError(t, err)
	require.Equal(t, "t-bob", tok)
}

func TestUserState_SeesWritesFromAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	a, err := localstate.Open(path)
	require.NoError(t, err)
	b, err := localstate.Open(path)
	require.NoError(t, err)

	require.NoError(t, a.For("u").SetToken("x"))
	tok, err := b.For("u").Token()
	require.NoError(t, err)
	require.Equal(t, "x", tok)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instance_id: [unclosed"), 0o600))

	_, err := localstate.Open(path)
	require.Error(t, err)
}
