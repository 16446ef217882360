package extraction

import (
	"context"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Entry is one regular file inside an archive.
type Entry struct {
	Path string
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// ErrNotArchive is returned by Walk when the file holds a single compressed
// stream rather than a set of files.
var ErrNotArchive = errors.New("not an archive")

// ArchiveExt returns the archive extension of filename (".zip", ".tar.gz",
// ...) or "" when the upload should be stored as is. A bare ".gz" is a
// single compressed file, not an archive.
func ArchiveExt(filename string) string {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".tar.gz") {
		return ".tar.gz"
	}
	switch ext := filepath.Ext(lower); ext {
	case ".zip", ".rar", ".7z", ".tar", ".tgz":
		return ext
	}
	return ""
}

// IsArchive reports whether an upload with this name should be unpacked.
func IsArchive(filename string) bool {
	return ArchiveExt(filename) != ""
}

// ShouldIgnore reports system files and folder markers that archive tools
// leave behind.
func ShouldIgnore(filename string) bool {
	switch {
	case filename == "", strings.HasSuffix(filename, "/"):
		return true
	case strings.HasPrefix(filename, "."):
		// covers ._ resource forks and .DS_Store
		return true
	case strings.EqualFold(filename, "thumbs.db"):
		return true
	case strings.HasPrefix(filename, "__MACOSX"):
		return true
	}
	return false
}

// Walk calls fn for every regular file in the archive at archivePath,
// skipping ignored files and anything under a __MACOSX folder.
func Walk(ctx context.Context, archivePath string, fn func(Entry) error) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return err
	}

	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." && !d.IsDir() {
			return ErrNotArchive
		}
		if d.IsDir() {
			if p != "." && ShouldIgnore(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if ShouldIgnore(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(Entry{
			Path: p,
			Name: path.Base(p),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return fsys.Open(p) },
		})
	})
}
