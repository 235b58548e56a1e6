package instance

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// MarkerFile is the name of the file whose presence makes a directory an
// instance. It is written during creation and removed first during
// deletion: a directory without it is never treated as an instance again.
const MarkerFile = ".lodestone_config"

// Marker is the persisted identity record stored in MarkerFile.
type Marker struct {
	ID           ID       `json:"uuid"`
	GameType     GameType `json:"game_type"`
	CreationTime int64    `json:"creation_time"`
	Version      string   `json:"lodestone_version"`
}

// NewMarker builds a marker for a freshly created instance.
func NewMarker(id ID, gameType GameType, version string) Marker {
	return Marker{
		ID:           id,
		GameType:     gameType,
		CreationTime: time.Now().Unix(),
		Version:      version,
	}
}

// WriteMarker persists the marker into dir, pretty-printed so operators can
// inspect it.
func WriteMarker(dir string, marker Marker) error {
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to encode instance marker", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write instance marker", err)
	}
	return nil
}

// ReadMarker loads the marker from dir. A missing marker reports NotFound
// so a boot-time scan can skip unmarked directories.
func ReadMarker(dir string) (Marker, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Marker{}, apperrors.Newf(apperrors.CodeNotFound, "no instance marker in %s", dir)
		}
		return Marker{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to read instance marker", err)
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return Marker{}, apperrors.Wrap(apperrors.CodeIOFailure, "instance marker is corrupt", err)
	}
	return marker, nil
}

// RemoveMarker deletes the marker from dir, deregistering the directory as
// an instance.
func RemoveMarker(dir string) error {
	if err := os.Remove(filepath.Join(dir, MarkerFile)); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to remove instance marker", err)
	}
	return nil
}

// HasMarker reports whether dir currently contains a marker file.
func HasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerFile))
	return err == nil && !info.IsDir()
}
