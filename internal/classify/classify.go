// Package classify decides whether a runtime failure is a stale-chunk fetch
// failure worth retrying, and whether a message belongs to the configured
// ignore list. Classification is string-pattern based: browsers do not agree
// on error shapes for failed dynamic module fetches, so the message text is
// the only portable signal.
package classify

import "strings"

// chunkPatterns match the messages browsers and bundlers produce when a
// dynamically imported module cannot be fetched, typically because a new
// deployment removed the hashed asset the stale client still references.
var chunkPatterns = []string{
	"failed to fetch dynamically imported module",
	"error loading dynamically imported module",
	"importing a module script failed",
	"failed to load module script",
	"chunkloaderror",
	"loading chunk",
	"loading css chunk",
	"failed to import",
}

// IsChunkError reports whether err looks like a stale-chunk fetch failure.
func IsChunkError(err error) bool {
	if err == nil {
		return false
	}
	return IsChunkErrorMessage(err.Error())
}

// IsChunkErrorMessage is IsChunkError over a bare message string.
func IsChunkErrorMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, p := range chunkPatterns {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

// ShouldIgnore reports whether any of the messages matches an entry of the
// ignore list (case-insensitive substring match). Ignored messages silence
// the default event logging, not the retry behavior itself.
func ShouldIgnore(messages []string, ignoreList []string) bool {
	if len(ignoreList) == 0 {
		return false
	}
	for _, msg := range messages {
		m := strings.ToLower(msg)
		for _, ignored := range ignoreList {
			if ignored == "" {
				continue
			}
			if strings.Contains(m, strings.ToLower(ignored)) {
				return true
			}
		}
	}
	return false
}
