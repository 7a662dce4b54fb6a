package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	var (
		sp   = Defaults()
		data = []byte(`
Title: wave-run
PatchSize: 16
Channels: 3
FluxChannels: 1
GhostWidth: 4
PressureFloor: 0.1
Debug: true
`)
	)
	require.NoError(t, sp.Parse(data))
	assert.Equal(t, "wave-run", sp.Title)
	assert.Equal(t, 16, sp.PatchSize)
	assert.Equal(t, 3, sp.Channels)
	assert.Equal(t, 1, sp.FluxChannels)
	assert.Equal(t, 4, sp.GhostWidth)
	assert.Equal(t, 0.1, sp.PressureFloor)
	assert.True(t, sp.Debug)
	assert.Equal(t, 2, sp.Levels, "untouched keys keep defaults")
	assert.NoError(t, sp.Validate())
}

func TestValidateRejectsBadRanges(t *testing.T) {
	assert.NoError(t, Defaults().Validate())

	sp := Defaults()
	sp.PatchSize = 7
	assert.Error(t, sp.Validate(), "odd patch size")

	sp = Defaults()
	sp.GhostWidth = sp.PatchSize + 1
	assert.Error(t, sp.Validate())

	sp = Defaults()
	sp.FluxChannels = sp.Channels + 1
	assert.Error(t, sp.Validate())
}

func TestParseRejectsMalformedInput(t *testing.T) {
	sp := Defaults()
	assert.Error(t, sp.Parse([]byte("PatchSize: [not, a, number]")))
}
