package meta

import (
	"os"
	"strings"
)

const envPrefix = "${env."

// ExpandEnv replaces ${env.NAME} references with the value of the NAME
// environment variable; unset variables expand to empty text. A reference
// with an invalid name is kept literally, an unterminated one ends expansion.
func ExpandEnv(text string) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var ret strings.Builder
	for {
		before, after, found := strings.Cut(text, envPrefix)
		ret.WriteString(before)
		if !found {
			return ret.String()
		}
		name, rest, closed := strings.Cut(after, "}")
		if !closed {
			ret.WriteString(envPrefix)
			ret.WriteString(after)
			return ret.String()
		}
		if !isEnvName(name) {
			ret.WriteString(envPrefix)
			text = after
			continue
		}
		ret.WriteString(os.Getenv(name))
		text = rest
	}
}

func isEnvName(name string) bool {
	for _, r := range name {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		return false
	}
	return true
}
