package instance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

type stubFactory struct{}

func (stubFactory) Create(context.Context, CreateParams) (Instance, error) {
	return nil, nil
}

func (stubFactory) Restore(context.Context, string, Marker) (Instance, error) {
	return nil, nil
}

func TestIDShortPrefix(t *testing.T) {
	id := ID("d290f1ee-6c54-4b01-90e6-d701748f0851")
	assert.Equal(t, "d290f1ee", id.ShortPrefix())

	short := ID("abc")
	assert.Equal(t, "abc", short.ShortPrefix())
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[ID]struct{})
	for i := 0; i < 100; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate identity %s", id)
		seen[id] = struct{}{}
	}
}

func TestGameTypeFlavour(t *testing.T) {
	assert.Equal(t, FlavourVanilla, GameMinecraftJavaVanilla.Flavour())
	assert.Equal(t, FlavourForge, GameMinecraftJavaForge.Flavour())
	assert.Equal(t, FlavourFabric, GameMinecraftJavaFabric.Flavour())
	assert.Equal(t, FlavourPaper, GameMinecraftJavaPaper.Flavour())

	assert.True(t, GameMinecraftJavaVanilla.Valid())
	assert.False(t, GameType("quake").Valid())
}

func TestMarkerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	assert.False(t, HasMarker(dir))

	marker := NewMarker(NewID(), GameMinecraftJavaVanilla, "0.5.0")
	require.NoError(t, WriteMarker(dir, marker))
	assert.True(t, HasMarker(dir))

	loaded, err := ReadMarker(dir)
	require.NoError(t, err)
	assert.Equal(t, marker, loaded)

	require.NoError(t, RemoveMarker(dir))
	assert.False(t, HasMarker(dir))
}

func TestReadMarkerMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadMarker(dir)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestBuildSetupConfig(t *testing.T) {
	config, err := BuildSetupConfig(GameMinecraftJavaVanilla, map[string]any{
		"name":        "survival",
		"port":        25565,
		"description": "main world",
		"version":     "1.20.4",
	})
	require.NoError(t, err)

	assert.Equal(t, "survival", config.Name)
	assert.Equal(t, 25565, config.Port)
	assert.Equal(t, GameMinecraftJavaVanilla, config.GameType)
	assert.Equal(t, FlavourVanilla, config.Flavour)
	assert.Equal(t, DefaultMinRAMMB, config.MinRAMMB)
	assert.Equal(t, DefaultMaxRAMMB, config.MaxRAMMB)
}

func TestBuildSetupConfigRejectsBadManifests(t *testing.T) {
	cases := []struct {
		name     string
		gameType GameType
		manifest map[string]any
	}{
		{"missing name", GameMinecraftJavaVanilla, map[string]any{"port": 25565}},
		{"missing port", GameMinecraftJavaVanilla, map[string]any{"name": "survival"}},
		{"port out of range", GameMinecraftJavaVanilla, map[string]any{"name": "survival", "port": 70000}},
		{"wrong port type", GameMinecraftJavaVanilla, map[string]any{"name": "survival", "port": "not-a-number"}},
		{"unknown game type", GameType("quake"), map[string]any{"name": "survival", "port": 25565}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildSetupConfig(tc.gameType, tc.manifest)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
		})
	}
}

func TestBuildSetupConfigIgnoresUnknownKeys(t *testing.T) {
	config, err := BuildSetupConfig(GameMinecraftJavaPaper, map[string]any{
		"name":         "lobby",
		"port":         25570,
		"jvm_profiler": true,
	})
	require.NoError(t, err)
	assert.Equal(t, FlavourPaper, config.Flavour)
}

func TestRegisterFactoryPanicsOnDuplicate(t *testing.T) {
	gameType := GameType("test-register-dup")

	RegisterFactory(gameType, stubFactory{})
	assert.Panics(t, func() { RegisterFactory(gameType, stubFactory{}) })
	assert.Panics(t, func() { RegisterFactory(GameType("test-register-nil"), nil) })
}

func TestFactoryFor(t *testing.T) {
	gameType := GameType("test-factory-for")
	RegisterFactory(gameType, stubFactory{})

	factory, err := FactoryFor(gameType)
	require.NoError(t, err)
	assert.NotNil(t, factory)

	_, err = FactoryFor(GameType("never-registered"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))

	assert.Contains(t, RegisteredGameTypes(), gameType)
}
