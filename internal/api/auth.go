package api

import (
	"regexp"
	"strings"
)

var bearerPattern = regexp.MustCompile(`^Bearer (.+)$`)

// ResolveCredential returns the Cachet token for a request: the non-blank bearer token from
// the Authorization header when one is present, otherwise fallback. An empty result means
// no credential is available.
func ResolveCredential(authorization, fallback string) string {
	if match := bearerPattern.FindStringSubmatch(authorization); match != nil {
		if token := strings.TrimSpace(match[1]); token != "" {
			return token
		}
	}
	return fallback
}
