package store

import (
	"regexp"
	"strings"
)

// LogMetadata holds structured fields extracted from a raw log line.
// Absent fields are empty strings; SeverityScore is always populated.
type LogMetadata struct {
	Service       string  `json:"service,omitempty"`
	Level         string  `json:"level,omitempty"`
	ErrorType     string  `json:"error_type,omitempty"`
	Component     string  `json:"component,omitempty"`
	SeverityScore float64 `json:"severity_score"`
}

var (
	levelLabelPattern   = regexp.MustCompile(`(?i)(?:级别|level)\s*[=:]\s*['"]?(\w+)['"]?`)
	serviceLabelPattern = regexp.MustCompile(`(?i)(?:服务|service)\s*[=:]\s*['"]?(\w+)['"]?`)
)

// ParseLogMetadata extracts structured fields from a log line. It is
// best-effort and never fails: fields it cannot determine stay empty and
// the severity score falls back to the neutral default.
//
// Two formats are recognized, in order:
//  1. CSV rows of the form service,level,error_type,message,component,cause
//     (at least six comma-separated fields, surrounding quotes stripped).
//  2. Labeled fields such as `级别='ERROR'` or `level: WARN`, used for
//     whatever the positional parse left absent.
func ParseLogMetadata(text string) LogMetadata {
	var md LogMetadata

	if strings.Contains(text, ",") {
		parts := strings.Split(text, ",")
		if len(parts) >= 6 {
			md.Service = stripField(parts[0])
			md.Level = stripField(parts[1])
			md.ErrorType = stripField(parts[2])
			md.Component = stripField(parts[4])
		}
	}

	if md.Level == "" {
		if m := levelLabelPattern.FindStringSubmatch(text); m != nil {
			md.Level = strings.ToUpper(m[1])
		}
	}
	if md.Service == "" {
		if m := serviceLabelPattern.FindStringSubmatch(text); m != nil {
			md.Service = m[1]
		}
	}

	md.SeverityScore = SeverityForLevel(md.Level)
	return md
}

// SeverityForLevel maps a log level to a severity score in (0, 1].
// Unknown or absent levels get a neutral 0.3.
func SeverityForLevel(level string) float64 {
	switch strings.ToUpper(level) {
	case "FATAL":
		return 1.0
	case "ERROR":
		return 0.8
	case "WARN", "WARNING":
		return 0.5
	case "INFO":
		return 0.2
	case "DEBUG":
		return 0.1
	default:
		return 0.3
	}
}

func stripField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `'" `)
}
