package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Run("lowercases english words", func(t *testing.T) {
		assert.Equal(t, []string{"database", "connection", "timeout"},
			Tokenize("Database Connection TIMEOUT"))
	})

	t.Run("keeps underscores and digits in a single token", func(t *testing.T) {
		assert.Equal(t, []string{"error_type", "http_500"},
			Tokenize("error_type=HTTP_500"))
	})

	t.Run("splits han characters individually", func(t *testing.T) {
		assert.Equal(t, []string{"数", "据", "库", "错", "误"},
			Tokenize("数据库错误"))
	})

	t.Run("mixed text preserves order", func(t *testing.T) {
		assert.Equal(t, []string{"连", "接", "timeout", "错", "误"},
			Tokenize("连接 timeout 错误!"))
	})

	t.Run("punctuation only yields no tokens", func(t *testing.T) {
		assert.Empty(t, Tokenize("!!! ... ---"))
	})

	t.Run("idempotent on its own output", func(t *testing.T) {
		tokens := Tokenize("ERROR: payment-service 连接失败 (code=500)")
		rejoined := ""
		for _, tok := range tokens {
			rejoined += tok + " "
		}
		assert.Equal(t, tokens, Tokenize(rejoined))
	})
}
