// Package archive safely unpacks zip uploads into a throwaway directory so
// each member can be fed back through the per-file pipeline.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/crmkit/deal-consolidator/constants"
)

// Expand unpacks zipPath and calls visit for every allowed, non-archive file
// found inside, nested directories included. Members with absolute paths or
// parent-traversal segments are silently skipped, as are nested zip files and
// files with disallowed extensions. The working directory is removed on every
// return path.
func Expand(ctx context.Context, zipPath string, logger *slog.Logger, visit func(path, name string)) error {
	if logger == nil {
		logger = slog.Default()
	}

	dest, err := os.MkdirTemp("", "dc-zip-*")
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(dest); err != nil {
			logger.Warn("failed to remove archive work dir", "dir", dest, "error", err)
		}
	}()

	// ErrInsecurePath still yields a usable reader; those members are vetted
	// and skipped individually below.
	zr, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		if unsafeMemberPath(member.Name) {
			logger.Warn("archive member skipped", "name", member.Name, "reason", "unsafe path")
			continue
		}
		if err := extractMember(member, dest); err != nil {
			// one bad member does not abort the archive
			logger.Warn("archive member skipped", "name", member.Name, "error", err)
		}
	}

	return filepath.WalkDir(dest, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.ExtOf(d.Name())
		if !constants.IsAllowed(ext) || ext == "zip" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		visit(p, d.Name())
		return nil
	})
}

// unsafeMemberPath reports whether a member name escapes the extraction
// directory: absolute, or containing a ".." segment on either separator.
func unsafeMemberPath(name string) bool {
	clean := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(clean, "/") {
		return true
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func extractMember(member *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(member.Name))

	if member.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
