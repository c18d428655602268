package registry

import (
	"regexp"
	"strings"
)

var nonIDChars = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveID maps a branch name to its environment id.
// feature/Auth_Login -> feature-auth-login
func DeriveID(branch string) string {
	id := nonIDChars.ReplaceAllString(strings.ToLower(branch), "-")
	return strings.Trim(id, "-")
}
