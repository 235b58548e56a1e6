package minecraft

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/instance"
)

func testSetupTime() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testSetup() instance.SetupConfig {
	return instance.SetupConfig{
		Name:        "survival",
		Description: "main world",
		Version:     "1.20.4",
		Port:        25565,
		MinRAMMB:    1024,
		MaxRAMMB:    2048,
		GameType:    instance.GameMinecraftJavaVanilla,
		Flavour:     instance.FlavourVanilla,
	}
}

func TestFactoriesAreRegistered(t *testing.T) {
	for _, gameType := range []instance.GameType{
		instance.GameMinecraftJavaVanilla,
		instance.GameMinecraftJavaForge,
		instance.GameMinecraftJavaFabric,
		instance.GameMinecraftJavaPaper,
	} {
		_, err := instance.FactoryFor(gameType)
		assert.NoError(t, err, "factory missing for %s", gameType)
	}
}

func TestCreateProvisionsServerFiles(t *testing.T) {
	dir := t.TempDir()
	id := instance.NewID()

	var milestones []string
	factory, err := instance.FactoryFor(instance.GameMinecraftJavaVanilla)
	require.NoError(t, err)

	created, err := factory.Create(context.Background(), instance.CreateParams{
		Setup: testSetup(),
		ID:    id,
		Dir:   dir,
		Progress: func(message string, _ float64) {
			milestones = append(milestones, message)
		},
	})
	require.NoError(t, err)

	eula, err := os.ReadFile(filepath.Join(dir, "eula.txt"))
	require.NoError(t, err)
	assert.Equal(t, "eula=true\n", string(eula))

	properties, err := os.ReadFile(filepath.Join(dir, "server.properties"))
	require.NoError(t, err)
	assert.Contains(t, string(properties), "server-port=25565")
	assert.Contains(t, string(properties), "motd=survival")

	assert.FileExists(t, filepath.Join(dir, SettingsFile))
	assert.NotEmpty(t, milestones)

	assert.Equal(t, id, created.ID())
	assert.Equal(t, "survival", created.Name())
	assert.Equal(t, 25565, created.Port())
	assert.Equal(t, instance.FlavourVanilla, created.Flavour())
	assert.Equal(t, instance.StateStopped, created.State())
}

func TestRestoreRebuildsServer(t *testing.T) {
	dir := t.TempDir()
	id := instance.NewID()

	factory, err := instance.FactoryFor(instance.GameMinecraftJavaPaper)
	require.NoError(t, err)

	setup := testSetup()
	setup.GameType = instance.GameMinecraftJavaPaper
	setup.Flavour = instance.FlavourPaper

	_, err = factory.Create(context.Background(), instance.CreateParams{Setup: setup, ID: id, Dir: dir})
	require.NoError(t, err)

	marker := instance.NewMarker(id, instance.GameMinecraftJavaPaper, "0.5.0")
	restored, err := factory.Restore(context.Background(), dir, marker)
	require.NoError(t, err)

	assert.Equal(t, id, restored.ID())
	assert.Equal(t, "survival", restored.Name())
	assert.Equal(t, instance.FlavourPaper, restored.Flavour())
	assert.Equal(t, instance.StateStopped, restored.State())
	assert.Equal(t, marker.CreationTime, restored.CreationTime().Unix())
}

func TestRestoreFailsWithoutSettings(t *testing.T) {
	dir := t.TempDir()

	factory, err := instance.FactoryFor(instance.GameMinecraftJavaVanilla)
	require.NoError(t, err)

	_, err = factory.Restore(context.Background(), dir, instance.NewMarker(instance.NewID(), instance.GameMinecraftJavaVanilla, "0.5.0"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOFailure, apperrors.CodeOf(err))
}

func TestStartRejectedWhileNotStopped(t *testing.T) {
	server := newServer(instance.NewID(), t.TempDir(), instance.GameMinecraftJavaVanilla, testSetupTime(), settings{Name: "survival"})
	server.state = instance.StateRunning

	err := server.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestStartFailsWithoutServerJar(t *testing.T) {
	server := newServer(instance.NewID(), t.TempDir(), instance.GameMinecraftJavaVanilla, testSetupTime(), settings{Name: "survival"})

	err := server.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOFailure, apperrors.CodeOf(err))
	assert.Equal(t, instance.StateStopped, server.State())
}

func TestStopRejectedWhileStopped(t *testing.T) {
	server := newServer(instance.NewID(), t.TempDir(), instance.GameMinecraftJavaVanilla, testSetupTime(), settings{Name: "survival"})

	err := server.Stop(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}
