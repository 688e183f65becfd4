package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFileAtomic writes data to target on fsys so that readers never see
// a partially written file:
//
//  1. write data to <target>.tmp
//  2. move an existing <target> to <target>.bak
//  3. move <target>.tmp to <target>
//  4. remove <target>.bak
//
// A failed step restores the backup. Renames that fail (for example across
// mount points) fall back to copy and delete.
func WriteFileAtomic(fsys afero.Fs, target string, data []byte, perm os.FileMode) error {
	tmpPath := target + ".tmp"
	bakPath := target + ".bak"

	if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := afero.WriteFile(fsys, tmpPath, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	info, err := fsys.Stat(target)
	switch {
	case err == nil && info.IsDir():
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("target %s is a directory", target)
	case err == nil:
		if err := renameSafe(fsys, target, bakPath); err != nil {
			_ = fsys.Remove(tmpPath)
			return fmt.Errorf("backing up existing file: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("checking target: %w", err)
	}

	if err := renameSafe(fsys, tmpPath, target); err != nil {
		if _, bakErr := fsys.Stat(bakPath); bakErr == nil {
			_ = renameSafe(fsys, bakPath, target)
		}
		_ = fsys.Remove(tmpPath)
		return fmt.Errorf("renaming temp to target: %w", err)
	}

	_ = fsys.Remove(bakPath)
	return nil
}

func renameSafe(fsys afero.Fs, oldPath, newPath string) error {
	err := fsys.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	if copyErr := copyFile(fsys, oldPath, newPath); copyErr != nil {
		return fmt.Errorf("copy fallback: %w (rename error: %w)", copyErr, err)
	}
	_ = fsys.Remove(oldPath)
	return nil
}

func copyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := fsys.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
