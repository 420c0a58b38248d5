package assembler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// copyFile copies src to dst keeping the source permission bits plus extra.
func copyFile(src, dst string, extra os.FileMode) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	mode := info.Mode().Perm() | extra

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return err
	}

	// OpenFile honours the umask; set the exact bits afterwards.
	return os.Chmod(dst, mode)
}

// copyTree recursively copies the src directory to dst. Symbolic links are
// followed so the staged tree never points outside the AppDir.
func copyTree(src, dst string) error {
	src = filepath.Clean(src)

	return godirwalk.Walk(src, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Callback: func(osPathname string, _ *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, osPathname)
			if err != nil {
				return err
			}

			target := filepath.Join(dst, rel)

			info, err := os.Stat(osPathname)
			if err != nil {
				return err
			}

			switch {
			case info.IsDir():
				return os.MkdirAll(target, info.Mode().Perm()|0o700)
			case info.Mode().IsRegular():
				return copyFile(osPathname, target, 0)
			default:
				// Sockets, devices and pipes have no place in a bundle.
				return nil
			}
		},
	})
}
