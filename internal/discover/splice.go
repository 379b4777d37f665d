package discover

import (
	"fmt"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"mvdan.cc/gofumpt/format"
)

// splice replaces the byte range [start:end) of path with newContent.
// The write goes through a temp file in the same directory followed
// by a rename, so a crash never leaves a half-written manifest.
func splice(fsys billy.Filesystem, path string, start, end uint32, newContent []byte) error {
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read source %s: %w", path, err)
	}
	if int(start) > len(src) || int(end) > len(src) || start > end {
		return fmt.Errorf("invalid byte range [%d:%d] for file of length %d", start, end, len(src))
	}

	result := make([]byte, 0, int(start)+len(newContent)+len(src)-int(end))
	result = append(result, src[:start]...)
	result = append(result, newContent...)
	result = append(result, src[end:]...)

	return writeAtomic(fsys, path, result)
}

func writeAtomic(fsys billy.Filesystem, path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := fsys.TempFile(dir, ".refwalk-splice-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}

// formatGoBuffer formats Go source in-memory with gofumpt. Non-Go
// files and unformattable buffers pass through unchanged.
func formatGoBuffer(content []byte, path string) []byte {
	if !strings.HasSuffix(path, ".go") {
		return content
	}
	formatted, err := format.Source(content, format.Options{})
	if err != nil {
		return content
	}
	return formatted
}
