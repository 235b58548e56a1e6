// Package minecraft implements Minecraft Java Edition instances. It
// registers a factory for every supported flavour, provisions the files a
// fresh server needs, and drives the server process over os/exec.
package minecraft

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/internal/logger"
	"github.com/marmos91/lodestone/pkg/instance"
)

const (
	// SettingsFile persists the per-instance game settings next to the
	// instance marker.
	SettingsFile = ".lodestone_minecraft.json"

	// ServerJar is the executable the Start operation launches.
	ServerJar = "server.jar"
)

// settings is the persisted game configuration.
type settings struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Version     string           `json:"version"`
	Flavour     instance.Flavour `json:"flavour"`
	Port        int              `json:"port"`
	MinRAMMB    int              `json:"min_ram"`
	MaxRAMMB    int              `json:"max_ram"`
	AutoStart   bool             `json:"auto_start"`
}

// Server is a single managed Minecraft server. All state transitions happen
// under the mutex; the process watcher goroutine owns the final transition
// when the child exits.
type Server struct {
	id           instance.ID
	dir          string
	gameType     instance.GameType
	creationTime time.Time

	mu       sync.Mutex
	settings settings
	state    instance.State
	cmd      *exec.Cmd
	done     chan struct{}
}

var _ instance.Instance = (*Server)(nil)

func newServer(id instance.ID, dir string, gameType instance.GameType, creationTime time.Time, cfg settings) *Server {
	return &Server{
		id:           id,
		dir:          dir,
		gameType:     gameType,
		creationTime: creationTime,
		settings:     cfg,
		state:        instance.StateStopped,
	}
}

func (s *Server) ID() instance.ID             { return s.id }
func (s *Server) Path() string                { return s.dir }
func (s *Server) GameType() instance.GameType { return s.gameType }
func (s *Server) CreationTime() time.Time     { return s.creationTime }

func (s *Server) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Name
}

func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Port
}

func (s *Server) Flavour() instance.Flavour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Flavour
}

func (s *Server) State() instance.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a point-in-time snapshot of the server.
func (s *Server) Info() instance.Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return instance.Info{
		ID:           s.id,
		Name:         s.settings.Name,
		GameType:     s.gameType,
		Flavour:      s.settings.Flavour,
		Description:  s.settings.Description,
		Port:         s.settings.Port,
		Path:         s.dir,
		State:        s.state,
		CreationTime: s.creationTime,
		AutoStart:    s.settings.AutoStart,
	}
}

// Start launches the server process. The instance must currently be stopped
// (or in the error state, which a start attempt may recover from).
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != instance.StateStopped && s.state != instance.StateError {
		return apperrors.Newf(apperrors.CodeBadRequest, "instance %s cannot start while %s", s.settings.Name, s.state)
	}

	jar := filepath.Join(s.dir, ServerJar)
	if _, err := os.Stat(jar); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "server jar is missing", err)
	}

	cmd := exec.Command(
		"java",
		fmt.Sprintf("-Xms%dM", s.settings.MinRAMMB),
		fmt.Sprintf("-Xmx%dM", s.settings.MaxRAMMB),
		"-jar", jar,
		"nogui",
	)
	cmd.Dir = s.dir

	s.state = instance.StateStarting
	if err := cmd.Start(); err != nil {
		s.state = instance.StateError
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to launch server process", err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.state = instance.StateRunning
	logger.Info("Instance %s (%s) started on port %d", s.settings.Name, s.id, s.settings.Port)

	go s.watch(cmd, done)
	return nil
}

// watch waits for the child to exit and records the resulting state.
func (s *Server) watch(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == instance.StateStopping:
		s.state = instance.StateStopped
	case err != nil:
		logger.Error("Instance %s exited unexpectedly: %v", s.settings.Name, err)
		s.state = instance.StateError
	default:
		s.state = instance.StateStopped
	}
	s.cmd = nil
	close(done)
}

// Stop asks the server process to terminate and waits for it to exit. When
// the context expires first the process is killed.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != instance.StateRunning && s.state != instance.StateStarting {
		state := s.state
		s.mu.Unlock()
		return apperrors.Newf(apperrors.CodeBadRequest, "instance %s cannot stop while %s", s.settings.Name, state)
	}
	cmd := s.cmd
	done := s.done
	s.state = instance.StateStopping
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			logger.Warn("Failed to signal instance %s: %v", s.id, err)
		}
	}

	select {
	case <-done:
		logger.Info("Instance %s (%s) stopped", s.Name(), s.id)
		return nil
	case <-ctx.Done():
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return apperrors.Wrap(apperrors.CodeIOFailure, "instance did not stop gracefully", ctx.Err())
	}
}
