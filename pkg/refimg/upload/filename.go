package upload

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExtension is used when an image's format could not be determined.
const DefaultExtension = "jpg"

// RemoteFilename returns the published name of an image: the normalized
// reference code and the image extension. Distinct codes give distinct names.
func RemoteFilename(code, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		ext = DefaultExtension
	}
	return code + "." + ext
}

// PublicURL joins the public base URL and a file name.
func PublicURL(baseURL, name string) string {
	escaped := url.PathEscape(name)
	if baseURL == "" {
		return escaped
	}
	return strings.TrimRight(baseURL, "/") + "/" + escaped
}

// dirSegments returns every directory level of dir from the top down,
// e.g. a/b/c -> [a a/b a/b/c]. A leading slash is kept.
func dirSegments(dir string) []string {
	dir = path.Clean(strings.TrimSpace(dir))
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	prefix := ""
	if strings.HasPrefix(dir, "/") {
		prefix = "/"
		dir = strings.TrimPrefix(dir, "/")
	}

	parts := strings.Split(dir, "/")
	segments := make([]string, 0, len(parts))
	for i := range parts {
		segments = append(segments, prefix+strings.Join(parts[:i+1], "/"))
	}
	return segments
}

// tempName returns the staging name used before the final rename.
func tempName(name, id string) string {
	return "." + name + "." + id + ".part"
}

// backupName is where a published object waits while it is being replaced.
func backupName(name, id string) string {
	return "." + name + "." + id + ".old"
}
