package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/intervalz"
)

func TestLoad(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "highway.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "highway", s.Name)
	assert.True(t, s.Repeat)
	require.Len(t, s.Lanes, 2)

	items := s.Lanes[0].Items()
	require.Len(t, items, 3)
	assert.Equal(t, 400*time.Millisecond, items[1].Delay)
	assert.Equal(t, "truck", items[1].Key)
	assert.Equal(t, 3, items[1].Value)
	assert.Empty(t, items[1].ID, "fixture items are untagged")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScenario_AccumulateConfig(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "highway.yaml"))
	require.NoError(t, err)

	cfg := s.AccumulateConfig()
	assert.Equal(t, 1500*time.Millisecond, cfg.RemoveAfterTime)
	assert.Equal(t, "remove", cfg.RemoveOnKey)
	assert.Zero(t, cfg.CloseAfterTime)
	assert.Nil(t, cfg.RemoveAfterStream)
	assert.Nil(t, cfg.RemoveByIDs)
}

func TestScenario_End(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "highway.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1200*time.Millisecond, s.End().LastDelay(0))
	assert.Equal(t, 1700*time.Millisecond, s.End().LastDelay(500*time.Millisecond))
}

func TestScenario_LoopConfig(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "highway.yaml"))
	require.NoError(t, err)

	cfg := s.LoopConfig(nil)
	assert.Equal(t, 500*time.Millisecond, cfg.ExtraDelay)
	assert.Equal(t, 1700*time.Millisecond, cfg.End.LastDelay(cfg.ExtraDelay))
	assert.Nil(t, cfg.Repeat)
}

func TestScenario_EndWithEmptyLanes(t *testing.T) {
	s, err := Parse([]byte("name: empty\nlanes:\n  - items: []\n"))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, s.End().LastDelay(250*time.Millisecond))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "lanes:\n  - items: [{delay: 0, key: car}]\n"},
		{"no lanes", "name: x\n"},
		{"negative delay", "name: x\nlanes:\n  - items: [{delay: -5, key: car}]\n"},
		{"empty key", "name: x\nlanes:\n  - items: [{delay: 5}]\n"},
		{"negative extra delay", "name: x\nextraDelay: -1\nlanes:\n  - items: []\n"},
		{"negative remove after time", "name: x\naccumulate: {removeAfterTime: -1}\nlanes:\n  - items: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidScenario)
}

func TestLane_ItemsAreTaggable(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "highway.yaml"))
	require.NoError(t, err)

	engine := intervalz.NewEngine(intervalz.RealClock)
	tagged, err := engine.TagLane(s.Lanes[1].Items(), 1)
	require.NoError(t, err)

	require.Len(t, tagged, 2)
	assert.Equal(t, "1_0", tagged[0].ID)
	require.NotNil(t, tagged[0].StreamIndex)
	assert.Equal(t, 1, *tagged[0].StreamIndex)
}
