// internal/retrieve/filename.go
package retrieve

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/valpere/DataRetriever/internal/utils"
)

// CacheFilename derives the deterministic cache filename for url. An
// explicit filename always wins. Otherwise the URL's filename stem — the
// second-last path segment, the last segment and the query string, so URLs
// differing in any of them get distinct cache entries — is slugified and
// combined with its extension; when the extension does not match any of the
// expected ones for the requested kind, it is folded into the stem and the
// first expected extension is appended instead, so a cache entry always
// carries an extension decoders recognise.
func CacheFilename(rawURL, explicit string, expectedExtensions ...string) string {
	if explicit != "" {
		return explicit
	}
	stem, ext := utils.FilenameExtensionFromURL(rawURL, true, true)
	stem = slug.Make(stem)
	ext = strings.ToLower(ext)

	if len(expectedExtensions) == 0 {
		return stem + ext
	}
	for _, expected := range expectedExtensions {
		if ext == expected {
			return stem + ext
		}
	}
	if ext != "" {
		stem = slug.Make(stem + ext)
	}
	return stem + expectedExtensions[0]
}

// CacheKey resolves the filesystem path of the cache entry for url under
// root. Existence of the file is the cache entry; there is no index.
func CacheKey(root, rawURL, explicit string, expectedExtensions ...string) string {
	return filepath.Join(root, CacheFilename(rawURL, explicit, expectedExtensions...))
}
