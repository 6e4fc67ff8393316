package git

import (
	"fmt"
	"strconv"
)

// FileMode is a git object mode as printed by --raw, e.g. 100644.
type FileMode uint32

const (
	FileModeEmpty     FileMode = 0
	FileModeDir       FileMode = 0040000
	FileModeRegular   FileMode = 0100644
	FileModeExec      FileMode = 0100755
	FileModeSymlink   FileMode = 0120000
	FileModeSubmodule FileMode = 0160000
)

// IsFile returns true if the mode represents a regular file or symlink.
func (m FileMode) IsFile() bool {
	return m == FileModeRegular || m == FileModeExec || m == FileModeSymlink
}

func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// ParseFileMode parses an octal file mode string (e.g. "100644", "120000", "000000").
func ParseFileMode(s string) (FileMode, error) {
	if s == "" {
		return FileModeEmpty, nil
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return FileModeEmpty, fmt.Errorf("parse file mode %q: %w", s, err)
	}
	return FileMode(v), nil
}

// NewMode is the mode of the file after the commit: the last entry of
// Modes. Deleted files report FileModeEmpty.
func (f FileEntry) NewMode() FileMode {
	if len(f.Modes) == 0 {
		return FileModeEmpty
	}
	m, err := ParseFileMode(f.Modes[len(f.Modes)-1])
	if err != nil {
		return FileModeEmpty
	}
	return m
}

// ModeChanged reports whether any parent mode differs from the new mode.
// Additions and deletions do not count.
func (f FileEntry) ModeChanged() bool {
	if len(f.Modes) < 2 {
		return false
	}
	newMode := f.NewMode()
	if newMode == FileModeEmpty {
		return false
	}
	for _, s := range f.Modes[:len(f.Modes)-1] {
		m, err := ParseFileMode(s)
		if err != nil || m == FileModeEmpty {
			continue
		}
		if m != newMode {
			return true
		}
	}
	return false
}
