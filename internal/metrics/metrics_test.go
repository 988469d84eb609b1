package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/oracle"
)

func TestCounters(t *testing.T) {
	m := New()
	m.GameStarted()
	m.GameStarted()
	m.GameSolved()
	m.OracleCall(oracle.KindQuestion, string(oracle.Affirmative), 300*time.Millisecond)
	m.OracleCall(oracle.KindQuestion, "failure", time.Second)
	m.Rejected(apperr.CodeOracleBusy)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gamesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gamesSolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleCalls.WithLabelValues("question", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("oracle_busy")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.GameStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "soup_games_started_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
