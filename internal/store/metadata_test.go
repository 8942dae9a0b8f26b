package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogMetadata(t *testing.T) {
	t.Run("csv positional format", func(t *testing.T) {
		md := ParseLogMetadata("AuthService,ERROR,TokenExpired,msg,AuthModule,cause")

		assert.Equal(t, "AuthService", md.Service)
		assert.Equal(t, "ERROR", md.Level)
		assert.Equal(t, "TokenExpired", md.ErrorType)
		assert.Equal(t, "AuthModule", md.Component)
		assert.Equal(t, 0.8, md.SeverityScore)
	})

	t.Run("quoted csv fields are stripped", func(t *testing.T) {
		md := ParseLogMetadata(`'PayService', "FATAL", 'OOM', msg, 'PayModule', cause`)

		assert.Equal(t, "PayService", md.Service)
		assert.Equal(t, "FATAL", md.Level)
		assert.Equal(t, 1.0, md.SeverityScore)
	})

	t.Run("too few fields falls through to labels", func(t *testing.T) {
		md := ParseLogMetadata("something, 级别='WARN', 服务='OrderService'")

		assert.Equal(t, "WARN", md.Level)
		assert.Equal(t, "OrderService", md.Service)
		assert.Equal(t, 0.5, md.SeverityScore)
	})

	t.Run("labeled level is uppercased", func(t *testing.T) {
		md := ParseLogMetadata("level: info, trailing, fields")
		assert.Equal(t, "INFO", md.Level)
		assert.Equal(t, 0.2, md.SeverityScore)
	})

	t.Run("plain text gets neutral defaults", func(t *testing.T) {
		md := ParseLogMetadata("user clicked the checkout button")

		assert.Empty(t, md.Service)
		assert.Empty(t, md.Level)
		assert.Equal(t, 0.3, md.SeverityScore)
	})

	t.Run("empty fields stay absent", func(t *testing.T) {
		md := ParseLogMetadata(",,,msg,,cause")

		assert.Empty(t, md.Service)
		assert.Empty(t, md.Level)
		assert.Equal(t, 0.3, md.SeverityScore)
	})

	t.Run("never panics on garbage", func(t *testing.T) {
		assert.NotPanics(t, func() {
			ParseLogMetadata("")
			ParseLogMetadata(",,,,,,,,,,,")
			ParseLogMetadata("级别=")
		})
	})
}

func TestSeverityForLevel(t *testing.T) {
	cases := map[string]float64{
		"FATAL":   1.0,
		"ERROR":   0.8,
		"WARN":    0.5,
		"WARNING": 0.5,
		"INFO":    0.2,
		"DEBUG":   0.1,
		"TRACE":   0.3,
		"":        0.3,
		"error":   0.8,
	}
	for level, want := range cases {
		assert.Equal(t, want, SeverityForLevel(level), "level %q", level)
	}
}
