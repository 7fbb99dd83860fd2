package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// renameFunc and linkFunc are swapped in tests to simulate filesystem quirks.
var (
	renameFunc = os.Rename
	linkFunc   = os.Link
)

// MoveNoReplace renames src to dst, failing with an error matching
// fs.ErrExist when dst already exists. Both paths must be on one filesystem.
func MoveNoReplace(src, dst string) error {
	if src == dst {
		return nil
	}
	err := renameNoReplace(src, dst)
	if !errors.Is(err, errNoReplaceUnsupported) {
		return err
	}
	return linkMove(src, dst)
}

var errNoReplaceUnsupported = errors.New("no-replace rename unsupported")

// linkMove emulates an exclusive rename: the hard link fails atomically when
// dst exists, and the source name is dropped only after the link succeeded.
func linkMove(src, dst string) error {
	if err := linkFunc(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) || errors.Is(err, fs.ErrNotExist) {
			return err
		}
		// Hard links are unavailable on some filesystems (FAT, SMB shares).
		return checkedRename(src, dst)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after link: %w", err)
	}
	return nil
}

// checkedRename is the last resort when neither renameat2 nor hard links work.
// A file created at dst between the check and the rename can still be replaced.
func checkedRename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return renameFunc(src, dst)
}
