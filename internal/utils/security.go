package contextutils

import (
	"path"
	"strings"
)

// MaskSecret masks a token or password for logging purposes.
// Returns a masked version that shows only the first 4 and last 4 characters.
func MaskSecret(secret string) string {
	if secret == "" {
		return "[EMPTY]"
	}

	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}

	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

const maxFileNameLength = 100

// SanitizeFileName reduces a client-supplied file name to a safe storage key segment.
// Directory components are dropped and anything outside [A-Za-z0-9._-] becomes '-'.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-'
		if !ok {
			r = '-'
		}
		if r == '-' {
			if lastDash {
				continue
			}
			lastDash = true
		} else {
			lastDash = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "-.")
	if len(out) > maxFileNameLength {
		out = out[len(out)-maxFileNameLength:]
	}
	if out == "" {
		return "file"
	}
	return out
}
