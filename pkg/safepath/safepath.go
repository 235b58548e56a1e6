// Package safepath mediates every file access into an instance's directory
// tree.
//
// All user-supplied paths are relative to an instance root. Join rejects
// parent segments, absolute paths and alternate separator syntax, so a
// resolved path can never land outside the root. Resolution is purely
// lexical; callers check existence per operation.
package safepath

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// Join resolves a user-supplied relative path against root.
//
// Defenses:
//   - Backslashes are treated as separators regardless of host platform,
//     so "..\\..\\secret" cannot slip through on Unix.
//   - Absolute paths (including a leading slash left over from routing)
//     are rejected outright rather than silently re-rooted.
//   - The joined result is lexically cleaned and must remain at or below
//     root, which defeats any combination of ".." segments.
//   - NUL bytes are rejected.
//
// The returned path is absolute whenever root is. The target does not need
// to exist.
func Join(root, relative string) (string, error) {
	if strings.ContainsRune(relative, 0) {
		return "", apperrors.New(apperrors.CodeMalformedPath, "path contains NUL byte")
	}

	// Normalize Windows-style separators before any interpretation.
	normalized := strings.ReplaceAll(relative, "\\", "/")

	if strings.HasPrefix(normalized, "/") {
		return "", apperrors.Newf(apperrors.CodeMalformedPath, "path %q is not relative", relative)
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, filepath.FromSlash(normalized))

	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(os.PathSeparator)) {
		return "", apperrors.Newf(apperrors.CodeMalformedPath, "path %q escapes the instance directory", relative)
	}

	return joined, nil
}

// Relative converts an already-resolved path back to the slash-separated
// form served to clients. It is the inverse of Join for paths below root.
func Relative(root, resolved string) string {
	rel, err := filepath.Rel(filepath.Clean(root), resolved)
	if err != nil {
		return filepath.ToSlash(resolved)
	}
	return filepath.ToSlash(rel)
}
