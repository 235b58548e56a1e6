package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/backup"
	"github.com/marmos91/lodestone/pkg/events"
	"github.com/marmos91/lodestone/pkg/instance"
	"github.com/marmos91/lodestone/pkg/ports"
	"github.com/marmos91/lodestone/pkg/registry"
	"github.com/marmos91/lodestone/pkg/safepath"
)

// seedInstance registers a stub directly, bypassing the creation workflow,
// so gateway tests don't depend on provisioning.
func (p *testPlane) seedInstance(t *testing.T, name string, port int) (*stubInstance, instance.ID) {
	t.Helper()

	id := instance.NewID()
	dir := filepath.Join(p.orch.instancesDir, fmt.Sprintf("%s-%s", name, id.ShortPrefix()))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	stub := newStubInstance(id, name, dir, port, instance.GameMinecraftJavaVanilla)
	require.NoError(t, p.orch.registry.Insert(stub))
	return stub, id
}

func TestFileWriteRead_RoundTrip(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	_, id := p.seedInstance(t, "files", 25800)

	content := "motd=A Minecraft Server\nmax-players=20\n"
	require.NoError(t, p.orch.FileWrite(ctx, &p.owner, id, "server.properties", []byte(content)))

	got, err := p.orch.FileRead(ctx, &p.owner, id, "server.properties")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Overwriting an unprotected file is allowed.
	require.NoError(t, p.orch.FileWrite(ctx, &p.owner, id, "server.properties", []byte("motd=changed\n")))
	got, err = p.orch.FileRead(ctx, &p.owner, id, "server.properties")
	require.NoError(t, err)
	assert.Equal(t, "motd=changed\n", got)
}

func TestFileWrite_ProtectedTargets(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "files", 25801)

	for _, name := range []string{"server.jar", "start.sh", "eula", instance.MarkerFile} {
		err := p.orch.FileWrite(ctx, &p.owner, id, name, []byte("overwritten"))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeProtectedResource), "%s: got %v", name, err)
	}

	// Nothing was written.
	entries, err := os.ReadDir(stub.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileRead_Errors(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "files", 25802)

	_, err := p.orch.FileRead(ctx, &p.owner, id, "missing.txt")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)

	require.NoError(t, os.MkdirAll(filepath.Join(stub.dir, "world"), 0o755))
	_, err = p.orch.FileRead(ctx, &p.owner, id, "world")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest), "got %v", err)

	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "level.dat"), []byte{0xff, 0xfe, 0xfd}, 0o644))
	_, err = p.orch.FileRead(ctx, &p.owner, id, "level.dat")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest), "binary content must be refused, got %v", err)
}

func TestFileList(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "files", 25803)

	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "banner.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(stub.dir, "world"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "whitelist.json"), []byte("[]"), 0o644))

	entries, err := p.orch.FileList(ctx, &p.owner, id, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, safepath.Entry{Name: "banner.txt", Path: "banner.txt", Kind: safepath.EntryFile}, entries[0])
	assert.Equal(t, safepath.Entry{Name: "whitelist.json", Path: "whitelist.json", Kind: safepath.EntryFile}, entries[1])
	assert.Equal(t, safepath.Entry{Name: "world", Path: "world", Kind: safepath.EntryDirectory}, entries[2])

	// Listing a subdirectory reports paths relative to the sandbox root.
	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "world", "level.dat"), []byte{1}, 0o644))
	entries, err = p.orch.FileList(ctx, &p.owner, id, "world")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "world/level.dat", entries[0].Path)

	_, err = p.orch.FileList(ctx, &p.owner, id, "nope")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)

	_, err = p.orch.FileList(ctx, &p.owner, id, "banner.txt")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest), "got %v", err)
}

func TestFileMkdir(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "files", 25804)

	require.NoError(t, p.orch.FileMkdir(ctx, &p.owner, id, "world/region"))
	assert.DirExists(t, filepath.Join(stub.dir, "world", "region"))

	// Directory names are not run through the protected-file check, so
	// extensionless directories can be created freely.
	require.NoError(t, p.orch.FileMkdir(ctx, &p.owner, id, "eula"))
	assert.DirExists(t, filepath.Join(stub.dir, "eula"))

	// Creating an existing directory is a no-op.
	require.NoError(t, p.orch.FileMkdir(ctx, &p.owner, id, "world/region"))
}

func TestFileRemove(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "files", 25805)

	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "junk.txt"), []byte("x"), 0o644))
	require.NoError(t, p.orch.FileRemove(ctx, &p.owner, id, "junk.txt"))
	assert.NoFileExists(t, filepath.Join(stub.dir, "junk.txt"))

	err := p.orch.FileRemove(ctx, &p.owner, id, "ghost.txt")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)

	// The protected check runs before existence: removing server.jar is
	// refused whether or not the file is there.
	err = p.orch.FileRemove(ctx, &p.owner, id, "server.jar")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeProtectedResource), "got %v", err)

	// Extensionless directories fall under the same protection.
	require.NoError(t, os.MkdirAll(filepath.Join(stub.dir, "world"), 0o755))
	err = p.orch.FileRemove(ctx, &p.owner, id, "world")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeProtectedResource), "got %v", err)
	assert.DirExists(t, filepath.Join(stub.dir, "world"))

	// A directory whose name carries an unprotected extension is removed
	// recursively.
	require.NoError(t, os.MkdirAll(filepath.Join(stub.dir, "region.old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "region.old", "r.0.0.mca"), []byte("x"), 0o644))
	require.NoError(t, p.orch.FileRemove(ctx, &p.owner, id, "region.old"))
	assert.NoDirExists(t, filepath.Join(stub.dir, "region.old"))
}

func TestFileOps_SandboxEscape(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	_, id := p.seedInstance(t, "files", 25806)

	escapes := []string{
		"../outside.txt",
		"world/../../outside.txt",
		"/etc/passwd",
		`..\outside.txt`,
	}
	for _, path := range escapes {
		_, err := p.orch.FileRead(ctx, &p.owner, id, path)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedPath), "read %q: got %v", path, err)

		err = p.orch.FileWrite(ctx, &p.owner, id, path, []byte("x"))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedPath), "write %q: got %v", path, err)

		err = p.orch.FileRemove(ctx, &p.owner, id, path)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedPath), "remove %q: got %v", path, err)
	}
}

func TestFileOps_PermissionBeforeLookup(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	limited := p.limitedUser(t, "viewer")

	// File operations authorize before resolving the instance, so a
	// caller without grants cannot distinguish real identities from
	// made-up ones.
	missing := instance.NewID()

	_, err := p.orch.FileList(ctx, &limited, missing, "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	_, err = p.orch.FileRead(ctx, &limited, missing, "server.properties")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	err = p.orch.FileWrite(ctx, &limited, missing, "server.properties", []byte("x"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	err = p.orch.FileMkdir(ctx, &limited, missing, "world")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	err = p.orch.FileRemove(ctx, &limited, missing, "junk.txt")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	// With the grant in place, a missing identity reports NotFound.
	_, err = p.orch.FileRead(ctx, &p.owner, missing, "server.properties")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestFileOps_ReadGrantDoesNotWrite(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	_, id := p.seedInstance(t, "files", 25807)
	require.NoError(t, p.orch.FileWrite(ctx, &p.owner, id, "server.properties", []byte("motd=hi\n")))

	limited := p.limitedUser(t, "reader")
	require.NoError(t, p.users.GrantInstancePermissions(limited.ID, id, auth.ActionReadInstanceFile))
	reader := p.freshUser(t, limited.ID)

	got, err := p.orch.FileRead(ctx, &reader, id, "server.properties")
	require.NoError(t, err)
	assert.Equal(t, "motd=hi\n", got)

	err = p.orch.FileWrite(ctx, &reader, id, "server.properties", []byte("motd=hax\n"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	err = p.orch.FileRemove(ctx, &reader, id, "server.properties")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)
}

// newBackupPlane wires a filesystem-backed backup service into the plane.
func newBackupPlane(t *testing.T) *testPlane {
	t.Helper()

	users := auth.NewManager(auth.NewMemoryUserStore(), []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, users.SeedOwner("admin", "correct horse battery staple"))
	_, owner, err := users.Login("admin", "correct horse battery staple")
	require.NoError(t, err)

	store, err := backup.NewFSStore(t.TempDir())
	require.NoError(t, err)

	broadcaster := events.NewBroadcaster(events.DefaultBuffer)
	orch := NewOrchestrator(Options{
		Registry:     registry.NewRegistry(),
		Ports:        ports.NewAllocator(),
		Users:        users,
		Broadcaster:  broadcaster,
		Backups:      backup.NewService(store),
		InstancesDir: t.TempDir(),
		Version:      "0.3.0",
	})

	return &testPlane{orch: orch, users: users, broadcaster: broadcaster, owner: owner}
}

func TestBackup_NotConfigured(t *testing.T) {
	p := newTestPlane(t)
	ctx := context.Background()
	_, id := p.seedInstance(t, "world", 25810)

	_, err := p.orch.Backup(ctx, &p.owner, id)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest), "got %v", err)

	_, err = p.orch.Backups(ctx, &p.owner, id)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest), "got %v", err)
}

func TestBackup_RoundTrip(t *testing.T) {
	p := newBackupPlane(t)
	ctx := context.Background()
	stub, id := p.seedInstance(t, "world", 25811)
	require.NoError(t, os.WriteFile(filepath.Join(stub.dir, "server.properties"), []byte("motd=hi\n"), 0o644))

	subID, ch := p.broadcaster.Subscribe()
	defer p.broadcaster.Unsubscribe(subID)

	entry, err := p.orch.Backup(ctx, &p.owner, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.Key, id.String()+"/"), "key %q", entry.Key)
	assert.True(t, strings.HasSuffix(entry.Key, ".tar.gz"), "key %q", entry.Key)
	assert.Greater(t, entry.Size, int64(0))

	list, err := p.orch.Backups(ctx, &p.owner, id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entry.Key, list[0].Key)

	// Other instances see their own, empty, backup history.
	_, otherID := p.seedInstance(t, "other", 25812)
	otherList, err := p.orch.Backups(ctx, &p.owner, otherID)
	require.NoError(t, err)
	assert.Empty(t, otherList)

	got := collectEvents(t, ch, 2)
	require.NotNil(t, got[0].Progression)
	assert.Equal(t, events.ProgressionStart, got[0].Progression.Kind)
	require.NotNil(t, got[0].Progression.StartValue)
	assert.Equal(t, events.StartInstanceBackup, got[0].Progression.StartValue.Kind)
	require.NotNil(t, got[1].Progression)
	assert.Equal(t, events.ProgressionEnd, got[1].Progression.Kind)
	require.NotNil(t, got[1].Progression.Success)
	assert.True(t, *got[1].Progression.Success)
}

func TestBackup_PermissionBeforeLookup(t *testing.T) {
	p := newBackupPlane(t)
	ctx := context.Background()
	limited := p.limitedUser(t, "viewer")
	missing := instance.NewID()

	_, err := p.orch.Backup(ctx, &limited, missing)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	_, err = p.orch.Backup(ctx, &p.owner, missing)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
}
