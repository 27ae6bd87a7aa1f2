// Package security vets user-supplied download filenames before the
// save command writes to them.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrPathTraversal = errors.New("path traversal detected")
	ErrReservedName  = errors.New("reserved filename not allowed")
)

// Names Windows refuses regardless of extension.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// ValidateSavePath rejects download names that would escape the
// working directory or collide with reserved or flag-like names.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}
	if strings.Contains(path, "..") || strings.HasPrefix(filepath.Clean(path), "..") {
		return ErrPathTraversal
	}

	base := filepath.Base(filepath.Clean(path))
	stem := strings.TrimSuffix(strings.ToLower(base), filepath.Ext(base))
	if reservedNames[stem] {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return fmt.Errorf("filename cannot start with hyphen")
	}

	return nil
}
