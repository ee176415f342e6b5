package player

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerSessionLifecycle(t *testing.T) {
	r := newRig(3)
	m := NewManager(r.deps, zap.NewNop())

	assert.Nil(t, m.Session("g"))

	s := m.Open("g", 30)
	require.NotNil(t, s)
	assert.Equal(t, 30, s.Volume())
	assert.Nil(t, m.Session("g"), "idle players are not sessions")

	again := m.Open("g", 70)
	assert.Same(t, s.(*Player), again.(*Player))
	assert.Equal(t, 70, again.Volume())

	_, err := s.Play(context.Background(), "vc", "a", meta)
	require.NoError(t, err)
	recv(t, r.ann.started)
	assert.NotNil(t, m.Session("g"))

	m.Open("g", 10)
	assert.Equal(t, 70, s.Volume(), "volume of a running session is kept")

	m.Shutdown(context.Background())
	recv(t, r.ann.ended)
	assert.Nil(t, m.Session("g"))
}

func TestManagerShutdownMany(t *testing.T) {
	r := newRig(3)
	m := NewManager(r.deps, zap.NewNop())

	for _, g := range []string{"g1", "g2", "g3"} {
		_, err := m.Open(g, 100).Play(context.Background(), "vc", "a", meta)
		require.NoError(t, err)
		recv(t, r.ann.started)
	}

	m.Shutdown(context.Background())
	for i := range 3 {
		recv(t, r.voice(i).disconnected)
	}
	for _, g := range []string{"g1", "g2", "g3"} {
		assert.Nil(t, m.Session(g))
	}
}
