package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// RedactedText is the replacement text for credentials
const RedactedText = "[REDACTED]"

// Matches user:pass@host in URLs and connection strings
var credentialsPattern = regexp.MustCompile(`://[^:/@\s]*:[^@\s]+@`)

// NewLogger builds a production logger, or a development one when
// development is set, at the given level.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	return cfg.Build()
}

// SanitizeURL hides the password of a URL before it is logged.
func SanitizeURL(u string) string {
	return credentialsPattern.ReplaceAllString(u, "://"+RedactedText+"@")
}
