package util

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// dataDirEnv names the directory that relative runtime files (logs, sqlite databases) are placed under.
const dataDirEnv = "DATA_DIR"

// DataDir reports the configured data directory, or "" when DATA_DIR is unset or blank.
func DataDir() string {
	dir := strings.TrimSpace(os.Getenv(dataDirEnv))
	if dir == "" {
		return ""
	}
	return filepath.Clean(dir)
}

// ResolveWritable anchors a relative path at DataDir. Absolute paths pass through.
func ResolveWritable(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if dir := DataDir(); dir != "" {
		return filepath.Join(dir, path)
	}
	return path
}

// secretMasks maps a minimum secret length to how many characters stay visible at each end.
var secretMasks = []struct {
	over int
	keep int
}{
	{over: 8, keep: 4},
	{over: 4, keep: 2},
	{over: 2, keep: 1},
}

// HideSecret keeps both ends of secret and elides the middle so log lines stay correlatable.
func HideSecret(secret string) string {
	for _, mask := range secretMasks {
		if len(secret) > mask.over {
			return secret[:mask.keep] + "..." + secret[len(secret)-mask.keep:]
		}
	}
	return secret
}

// MaskSensitiveQuery rewrites credential-like parameters (token, code, password...) in a raw query.
// Parameter order and untouched pairs are preserved byte for byte.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	masked := false
	for i, pair := range pairs {
		if rewritten, ok := maskQueryPair(pair); ok {
			pairs[i] = rewritten
			masked = true
		}
	}
	if !masked {
		return raw
	}
	return strings.Join(pairs, "&")
}

func maskQueryPair(pair string) (string, bool) {
	if pair == "" {
		return pair, false
	}
	name, value, _ := strings.Cut(pair, "=")
	if !isCredentialParam(unescapeOrRaw(name)) {
		return pair, false
	}
	hidden := HideSecret(strings.TrimSpace(unescapeOrRaw(value)))
	return name + "=" + url.QueryEscape(hidden), true
}

func unescapeOrRaw(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

var (
	credentialParams    = map[string]struct{}{"key": {}, "code": {}, "otp": {}, "totp": {}}
	credentialFragments = []string{"token", "secret", "password", "session"}
)

func isCredentialParam(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "[]")
	if name == "" {
		return false
	}
	if _, ok := credentialParams[name]; ok {
		return true
	}
	for _, fragment := range credentialFragments {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}
