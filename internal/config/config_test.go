package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/puzzle"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SOUP_MIN_LEN", "ORACLE_TIMEOUT", "ORACLE_PROVIDER", "ORACLE_JUDGE_MODEL", "CLIENT_ORIGIN", "SOUP_PUZZLE_MODE", "HOST_PASSWORD", "HOST_PASSWORD_HASH", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, 5, c.MinLen)
	assert.Equal(t, puzzle.ModeRandom, c.PuzzleMode)
	assert.Equal(t, 60*time.Second, c.OracleTimeout)
	assert.Equal(t, 2, c.OracleJudgeRetries)
	assert.Equal(t, 3, c.OracleAnswerRetries)
	assert.Equal(t, 12*time.Hour, c.JWTExpires)
	assert.Equal(t, 250*time.Millisecond, c.SyncPushInterval)
	assert.Equal(t, "gpt-4o-mini", c.OracleJudgeModel)
	assert.Equal(t, "http://localhost:5173", c.ClientOrigin)
	assert.False(t, c.HostAuth())
	require.NoError(t, c.Validate())
}

func TestJudgeModelFollowsProvider(t *testing.T) {
	t.Setenv("ORACLE_JUDGE_MODEL", "")
	t.Setenv("ORACLE_PROVIDER", "anthropic")
	c := Load()
	assert.Equal(t, "claude-3-5-haiku-latest", c.OracleJudgeModel)
	require.NoError(t, c.Validate())

	t.Setenv("ORACLE_JUDGE_MODEL", "claude-sonnet-4-5")
	assert.Equal(t, "claude-sonnet-4-5", Load().OracleJudgeModel)

	c.OracleJudgeModel = ""
	assert.ErrorContains(t, c.Validate(), "ORACLE_JUDGE_MODEL")
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SOUP_MIN_LEN", "3")
	t.Setenv("SOUP_PUZZLE_MODE", "DAILY")
	t.Setenv("SOUP_SHOW_RATIONALE", "true")
	t.Setenv("ORACLE_TIMEOUT", "15")
	t.Setenv("SYNC_PUSH_INTERVAL", "1s")

	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 3, c.MinLen)
	assert.Equal(t, puzzle.ModeDaily, c.PuzzleMode)
	assert.True(t, c.ShowRationale)
	assert.Equal(t, 15*time.Second, c.OracleTimeout)
	assert.Equal(t, time.Second, c.SyncPushInterval)
}

func TestBadNumbersFallBack(t *testing.T) {
	t.Setenv("SOUP_MIN_LEN", "five")
	t.Setenv("ORACLE_TIMEOUT", "soon")
	c := Load()
	assert.Equal(t, 5, c.MinLen)
	assert.Equal(t, 60*time.Second, c.OracleTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOST_PASSWORD", "")
	t.Setenv("HOST_PASSWORD_HASH", "")
	base := Load()

	c := base
	c.OracleProvider = "llama"
	c.MinLen = 0
	err := c.Validate()
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "ORACLE_PROVIDER")
	assert.Contains(t, err.Error(), "SOUP_MIN_LEN")

	c = base
	c.HostPassword = "secret"
	c.JWTSecret = ""
	require.ErrorIs(t, c.Validate(), apperr.ErrConfiguration)
	c.JWTSecret = "signing-key"
	require.NoError(t, c.Validate())

	c = base
	c.PuzzleMode = "weekly"
	require.Error(t, c.Validate())
}
