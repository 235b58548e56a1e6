package lifecycle

import (
	"context"
	"os"
	"unicode/utf8"

	apperrors "github.com/marmos91/lodestone/internal/errors"
	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/instance"
	"github.com/marmos91/lodestone/pkg/safepath"
)

// fileTarget authorizes the action, resolves the instance and joins the
// user-supplied path into its sandbox. Authorization runs before the
// registry lookup so a caller without file permissions cannot probe which
// identities exist.
func (o *Orchestrator) fileTarget(user *auth.User, action auth.Action, id instance.ID, relative string) (root, resolved string, err error) {
	if err := auth.TryAction(user, action); err != nil {
		return "", "", err
	}

	inst, err := o.registry.Get(id)
	if err != nil {
		return "", "", err
	}

	root = inst.Path()
	resolved, err = safepath.Join(root, relative)
	if err != nil {
		return "", "", err
	}
	return root, resolved, nil
}

// FileList enumerates the children of a directory inside the instance
// sandbox. The path must exist and be a directory.
func (o *Orchestrator) FileList(ctx context.Context, user *auth.User, id instance.ID, relative string) ([]safepath.Entry, error) {
	root, resolved, err := o.fileTarget(user, auth.ReadInstanceFile(id), id, relative)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "path %s does not exist", relative)
		}
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to inspect path", err)
	}
	if !stat.IsDir() {
		return nil, apperrors.Newf(apperrors.CodeBadRequest, "path %s is not a directory", relative)
	}

	return safepath.ListDir(root, resolved)
}

// FileRead returns the content of a text file inside the instance
// sandbox. Only valid UTF-8 is served; binary content reports BadRequest.
func (o *Orchestrator) FileRead(ctx context.Context, user *auth.User, id instance.ID, relative string) (string, error) {
	_, resolved, err := o.fileTarget(user, auth.ReadInstanceFile(id), id, relative)
	if err != nil {
		return "", err
	}

	stat, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.Newf(apperrors.CodeNotFound, "file %s does not exist", relative)
		}
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "failed to inspect file", err)
	}
	if stat.IsDir() {
		return "", apperrors.Newf(apperrors.CodeBadRequest, "path %s is not a file", relative)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "failed to read file", err)
	}
	if !utf8.Valid(data) {
		return "", apperrors.Newf(apperrors.CodeBadRequest, "file %s is not valid UTF-8 text", relative)
	}
	return string(data), nil
}

// FileWrite stores content at a path inside the instance sandbox,
// creating the file if it does not exist. Protected file types are
// refused regardless of permissions.
func (o *Orchestrator) FileWrite(ctx context.Context, user *auth.User, id instance.ID, relative string, content []byte) error {
	_, resolved, err := o.fileTarget(user, auth.WriteInstanceFile(id), id, relative)
	if err != nil {
		return err
	}

	if safepath.IsProtected(resolved) {
		return apperrors.Newf(apperrors.CodeProtectedResource, "file %s is protected and cannot be modified", relative)
	}

	if err := os.WriteFile(resolved, content, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to write file", err)
	}
	return nil
}

// FileMkdir creates a directory (and missing parents) inside the instance
// sandbox.
func (o *Orchestrator) FileMkdir(ctx context.Context, user *auth.User, id instance.ID, relative string) error {
	_, resolved, err := o.fileTarget(user, auth.WriteInstanceFile(id), id, relative)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to create directory", err)
	}
	return nil
}

// FileRemove deletes a file or directory tree inside the instance
// sandbox. The protected check applies to every target, directories
// included; the target must exist.
func (o *Orchestrator) FileRemove(ctx context.Context, user *auth.User, id instance.ID, relative string) error {
	_, resolved, err := o.fileTarget(user, auth.WriteInstanceFile(id), id, relative)
	if err != nil {
		return err
	}

	if safepath.IsProtected(resolved) {
		return apperrors.Newf(apperrors.CodeProtectedResource, "file %s is protected and cannot be removed", relative)
	}

	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return apperrors.Newf(apperrors.CodeNotFound, "path %s does not exist", relative)
		}
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to inspect path", err)
	}

	if err := os.RemoveAll(resolved); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to remove path", err)
	}
	return nil
}
