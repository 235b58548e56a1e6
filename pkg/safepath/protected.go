package safepath

import (
	"path/filepath"
	"strings"
)

// protectedExtensions lists file extensions that destructive operations must
// never touch: executables, scripts, installers and the instance marker.
var protectedExtensions = map[string]struct{}{
	"jar":              {},
	"lua":              {},
	"sh":               {},
	"exe":              {},
	"bat":              {},
	"cmd":              {},
	"msi":              {},
	"lodestone_config": {},
	"out":              {},
	"inf":              {},
}

// IsProtected reports whether the named file may not be overwritten or
// removed through the filesystem gateway.
//
// A file with no extension is treated as protected as well: anything
// ambiguous stays locked down.
func IsProtected(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filepath.Base(path)), ".")
	if ext == "" {
		return true
	}
	_, protected := protectedExtensions[strings.ToLower(ext)]
	return protected
}
