package minecraft

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/instance"
)

func init() {
	for _, gameType := range []instance.GameType{
		instance.GameMinecraftJavaVanilla,
		instance.GameMinecraftJavaForge,
		instance.GameMinecraftJavaFabric,
		instance.GameMinecraftJavaPaper,
	} {
		instance.RegisterFactory(gameType, factory{})
	}
}

type factory struct{}

// Create provisions a new Minecraft server into params.Dir: it accepts the
// EULA, writes an initial server.properties bound to the reserved port, and
// persists the instance settings for later restores.
func (factory) Create(ctx context.Context, params instance.CreateParams) (instance.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "setup cancelled", err)
	}

	cfg := settings{
		Name:        params.Setup.Name,
		Description: params.Setup.Description,
		Version:     params.Setup.Version,
		Flavour:     params.Setup.Flavour,
		Port:        params.Setup.Port,
		MinRAMMB:    params.Setup.MinRAMMB,
		MaxRAMMB:    params.Setup.MaxRAMMB,
		AutoStart:   params.Setup.AutoStart,
	}

	report(params, "Accepting EULA", 2.5)
	if err := writeEULA(params.Dir); err != nil {
		return nil, err
	}

	report(params, "Writing server.properties", 5)
	if err := writeServerProperties(params.Dir, cfg); err != nil {
		return nil, err
	}

	report(params, "Writing instance settings", 7.5)
	if err := writeSettings(params.Dir, cfg); err != nil {
		return nil, err
	}

	return newServer(params.ID, params.Dir, params.Setup.GameType, time.Now().UTC(), cfg), nil
}

// Restore rebuilds a server from a directory provisioned earlier. The
// process never survives a control plane restart, so restored instances
// always come back stopped.
func (factory) Restore(ctx context.Context, dir string, marker instance.Marker) (instance.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "restore cancelled", err)
	}

	cfg, err := readSettings(dir)
	if err != nil {
		return nil, err
	}

	return newServer(marker.ID, dir, marker.GameType, time.Unix(marker.CreationTime, 0).UTC(), cfg), nil
}

func report(params instance.CreateParams, message string, progress float64) {
	if params.Progress != nil {
		params.Progress(message, progress)
	}
}

func writeEULA(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, "eula.txt"), []byte("eula=true\n"), 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write eula.txt", err)
	}
	return nil
}

func writeServerProperties(dir string, cfg settings) error {
	properties := fmt.Sprintf(
		"server-port=%d\nmotd=%s\nmax-players=20\nonline-mode=true\n",
		cfg.Port, cfg.Name,
	)
	if err := os.WriteFile(filepath.Join(dir, "server.properties"), []byte(properties), 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write server.properties", err)
	}
	return nil
}

func writeSettings(dir string, cfg settings) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to encode instance settings", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write instance settings", err)
	}
	return nil
}

func readSettings(dir string) (settings, error) {
	data, err := os.ReadFile(filepath.Join(dir, SettingsFile))
	if err != nil {
		return settings{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to read instance settings", err)
	}

	var cfg settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return settings{}, apperrors.Wrap(apperrors.CodeIOFailure, "instance settings are corrupt", err)
	}
	return cfg, nil
}
