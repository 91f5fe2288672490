// internal/utils/paths.go
package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// TempDir returns the root temporary directory, honouring the TEMP_DIR
// environment variable before falling back to the system default.
func TempDir() string {
	if dir := os.Getenv("TEMP_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// TempFolder creates and returns a folder beneath the root temporary
// directory. With deleteIfExists set, a pre-existing folder is wiped first.
func TempFolder(folder string, deleteIfExists bool) (string, error) {
	dir := filepath.Join(TempDir(), folder)
	if deleteIfExists {
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("failed to clear temp folder: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp folder: %w", err)
	}
	return dir, nil
}

// UniqueTempFolder creates a temp folder with a random suffix so concurrent
// runs never collide.
func UniqueTempFolder(prefix string) (string, error) {
	return TempFolder(fmt.Sprintf("%s-%s", prefix, uuid.NewString()), false)
}

// WithTempFolder runs fn with a fresh temp folder, removing it on every exit
// path.
func WithTempFolder(folder string, fn func(dir string) error) error {
	dir, err := TempFolder(folder, true)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}

// FilenameExtensionFromURL derives a filename stem and extension from a URL.
// With secondLast set, the second-last path segment is prepended to the stem.
// With useQuery set, a slugified form of the query string is appended. Either
// is used alone when the URL path yields no stem at all.
func FilenameExtensionFromURL(rawURL string, secondLast, useQuery bool) (string, string) {
	unescaped := rawURL
	if u, err := url.QueryUnescape(rawURL); err == nil {
		unescaped = u
	}
	parsed, err := url.Parse(unescaped)
	if err != nil {
		parsed = &url.URL{Path: unescaped}
	}

	last := path.Base(parsed.Path)
	if last == "." || last == "/" {
		last = ""
	}
	secondLastPart := path.Base(path.Dir(parsed.Path))
	if secondLastPart == "." || secondLastPart == "/" {
		secondLastPart = ""
	}

	extension := path.Ext(last)
	filename := strings.TrimSuffix(last, extension)

	if queryPart := slug.Make(parsed.RawQuery); queryPart != "" {
		if filename == "" {
			filename = queryPart
		} else if useQuery {
			filename = fmt.Sprintf("%s_%s", filename, queryPart)
		}
	}
	if secondLastPart != "" {
		if filename == "" {
			filename = secondLastPart
		} else if secondLast {
			filename = fmt.Sprintf("%s_%s", secondLastPart, filename)
		}
	}
	return filename, extension
}

// FilenameFromURL derives a filename including extension from a URL.
func FilenameFromURL(rawURL string) string {
	filename, extension := FilenameExtensionFromURL(rawURL, false, false)
	return filename + extension
}

// UniquePath joins folder and filename, appending a counter to the stem until
// the path does not exist.
func UniquePath(folder, filename string) string {
	extension := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, extension)
	candidate := filepath.Join(folder, filename)
	count := 0
	for {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		count++
		candidate = filepath.Join(folder, fmt.Sprintf("%s%d%s", stem, count, extension))
	}
}
