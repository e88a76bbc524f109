package sim

import (
	"testing"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/kasuganosora/voxelpilot/testutil/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRemote(w world.Query, body *player.Body) *Remote {
	r := NewRemote(w, body, ai.DefaultSearchConfig(ai.StrategyLightweight), backend.DefaultConfig(), 0, zap.NewNop())
	r.now = func() time.Time { return t0 }
	return r
}

func TestRemote_PursuesGoal(t *testing.T) {
	w := voxel.FlatWorld(60, 63)
	body := player.NewBody(w, world.C(0, 64, 0), supplies(), player.DefaultBodyConfig())
	r := newRemote(w, body)

	require.True(t, r.Available())
	require.NoError(t, r.SetGoal(world.C(20, 64, 0)))
	assert.True(t, r.IsPathing())
	assert.NotEmpty(t, r.CurrentPath())
	eta, ok := r.ETA()
	assert.True(t, ok)
	assert.Greater(t, eta, time.Duration(0))

	r.Stop()
	assert.False(t, r.IsPathing())
	assert.Empty(t, r.CurrentPath())
	_, ok = r.ETA()
	assert.False(t, ok)
}

func TestRemote_Unavailable(t *testing.T) {
	w := voxel.FlatWorld(30, 63)
	body := player.NewBody(w, world.C(0, 64, 0), supplies(), player.DefaultBodyConfig())
	r := newRemote(w, body)

	r.SetAvailable(false)
	assert.ErrorIs(t, r.SetGoal(world.C(10, 64, 0)), backend.ErrUnavailable)
	assert.False(t, r.IsPathing())
}

func TestRemote_ArrivalEndsPursuit(t *testing.T) {
	w := voxel.FlatWorld(30, 63)
	body := player.NewBody(w, world.C(0, 64, 0), supplies(), player.DefaultBodyConfig())
	r := newRemote(w, body)

	require.NoError(t, r.SetGoal(world.C(1, 64, 0)))
	assert.False(t, r.IsPathing())
}

func TestDriver_TravelsWithRemoteEngine(t *testing.T) {
	w := voxel.FlatWorld(200, 63)
	body := player.NewBody(w, world.C(0, 64, 0), supplies(), player.DefaultBodyConfig())
	opts := pilot.DefaultOptions()
	opts.Navigator.ScoringEnabled = false
	remote := NewRemote(w, body, opts.Search, opts.Backend, 0, zap.NewNop())
	e := pilot.Assemble(w, body, remote, opts, zap.NewNop(), nil)
	log := &eventLog{}
	e.SetSink(log)
	d := NewDriver(w, body, e)

	d.StartWithHeading(t0, world.NewHeading(1, 0))
	run(d, t0, 200)
	assert.Equal(t, "external", e.Status().Backend.Backend)
	assert.Greater(t, body.State().Position.X, 20)
	assert.Zero(t, log.count(pilot.EventBackendSwitch))
}
