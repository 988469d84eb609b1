package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/soup-server/internal/auth"
	"github.com/robalobadob/soup-server/internal/chatlog"
	"github.com/robalobadob/soup-server/internal/command"
	"github.com/robalobadob/soup-server/internal/game"
	"github.com/robalobadob/soup-server/internal/metrics"
	"github.com/robalobadob/soup-server/internal/oracle"
	"github.com/robalobadob/soup-server/internal/puzzle"
	"github.com/robalobadob/soup-server/internal/store"
)

var albatross = puzzle.Puzzle{
	ID:       "albatross",
	Question: "A man orders albatross soup, takes one sip, and later kills himself.",
	Answer:   "He realised the soup he had been fed on the island was not albatross.",
}

type onePuzzle struct{}

func (onePuzzle) Pick() puzzle.Puzzle { return albatross }

type yesJudge struct{}

func (yesJudge) JudgeQuestion(context.Context, *puzzle.Puzzle, string) (oracle.QuestionVerdict, error) {
	return oracle.QuestionVerdict{Outcome: oracle.Affirmative}, nil
}

func (yesJudge) JudgeAnswer(context.Context, *puzzle.Puzzle, string) (oracle.AnswerVerdict, error) {
	return oracle.AnswerVerdict{Outcome: oracle.Correct}, nil
}

type fixture struct {
	srv     *httptest.Server
	engine  *game.Engine
	history store.Store
}

func newFixture(t *testing.T, host *auth.Host) *fixture {
	t.Helper()
	return newFixtureWithOrigin(t, host, "")
}

func newFixtureWithOrigin(t *testing.T, host *auth.Host, origin string) *fixture {
	t.Helper()
	hist := store.NewMemoryStore()
	m := metrics.New()
	e := game.New(onePuzzle{}, yesJudge{}, game.WithHistory(hist), game.WithObserver(m))
	s := New(Deps{
		Engine:       e,
		Host:         host,
		History:      hist,
		Metrics:      m.Handler(),
		PuzzleCount:  5,
		PushInterval: 10 * time.Millisecond,
		ClientOrigin: origin,
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return &fixture{srv: ts, engine: e, history: hist}
}

func (f *fixture) post(t *testing.T, path string, body any, hdr ...string) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t, nil)
	res, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, decode[map[string]bool](t, res)["ok"])

	res, err = http.Get(f.srv.URL + "/puzzles/count")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, 5, decode[map[string]int](t, res)["count"])

	res, err = http.Get(f.srv.URL + "/nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", decode[map[string]string](t, res)["error"])
}

func TestCommandRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	res := f.post(t, "/cmd", command.Request{Cmd: "new_game"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	started := decode[command.Response](t, res)
	assert.Zero(t, started.Code)
	assert.Equal(t, 1, started.GameID)
	assert.Equal(t, albatross.Question, started.Question)

	res = f.post(t, "/cmd", command.Request{Cmd: "ask", Content: "Was he on an island?", Speaker: "dora"})
	asked := decode[command.Response](t, res)
	assert.Equal(t, "判断：是", asked.Msg)

	res = f.post(t, "/cmd", command.Request{Cmd: "ask", Content: "soup"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, 4, decode[command.Response](t, res).Code)

	res = f.post(t, "/cmd", command.Request{Cmd: "fly"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, 1, decode[command.Response](t, res).Code)

	res = f.post(t, "/cmd", command.Request{Cmd: "ans", Content: "It was not albatross before"})
	solved := decode[command.Response](t, res)
	assert.True(t, solved.Solved)
	assert.Contains(t, solved.Msg, albatross.Answer)

	res = f.post(t, "/cmd", command.Request{Cmd: "ask", Content: "Is it still running?"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 2, decode[command.Response](t, res).Code)
}

func TestUpdateDeliversDeltas(t *testing.T) {
	f := newFixture(t, nil)
	f.post(t, "/cmd", command.Request{Cmd: "start"})

	res := f.post(t, "/update", chatlog.Fresh)
	snap := decode[game.Snapshot](t, res)
	assert.Equal(t, 1, snap.GameID)
	assert.True(t, snap.Running)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, game.HostSpeaker, snap.Entries[0].Speaker)

	f.post(t, "/cmd", command.Request{Cmd: "ask", Content: "Was he shipwrecked?"})

	getRes, err := http.Get(f.srv.URL + "/update?gameId=1&cursor=1")
	require.NoError(t, err)
	defer getRes.Body.Close()
	snap = decode[game.Snapshot](t, getRes)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "Was he shipwrecked?", snap.Entries[0].Content)
	assert.Equal(t, chatlog.Cursor{GameID: 1, Offset: 3}, snap.Cursor)

	res = f.post(t, "/update", snap.Cursor)
	assert.Empty(t, decode[game.Snapshot](t, res).Entries)
}

func TestLifecycleRequiresHostToken(t *testing.T) {
	host, err := auth.New(auth.Config{Password: "captain", Secret: "k"})
	require.NoError(t, err)
	f := newFixture(t, host)

	res := f.post(t, "/cmd", command.Request{Cmd: "new_game"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = f.post(t, "/auth/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = f.post(t, "/auth/login", map[string]string{"password": "captain"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	token, _ := decode[map[string]any](t, res)["token"].(string)
	require.NotEmpty(t, token)

	res = f.post(t, "/cmd", command.Request{Cmd: "new_game"}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, res.StatusCode)

	// Gameplay stays open.
	res = f.post(t, "/cmd", command.Request{Cmd: "ask", Content: "Did he eat on the island?"})
	assert.Zero(t, decode[command.Response](t, res).Code)
}

func TestHistoryAndMetrics(t *testing.T) {
	f := newFixture(t, nil)
	f.post(t, "/cmd", command.Request{Cmd: "start"})
	f.post(t, "/cmd", command.Request{Cmd: "end"})

	res, err := http.Get(f.srv.URL + "/history?limit=5")
	require.NoError(t, err)
	defer res.Body.Close()
	recs := decode[[]store.Record](t, res)
	require.Len(t, recs, 1)
	assert.Equal(t, store.OutcomeAbandoned, recs[0].Outcome)

	mres, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer mres.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(mres.Body)
	assert.Contains(t, buf.String(), "soup_games_started_total 1")
}

func TestWebsocketPushesSnapshots(t *testing.T) {
	f := newFixture(t, nil)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap game.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 0, snap.GameID)
	assert.False(t, snap.Running)

	f.engine.StartNewGame(context.Background())

	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 1, snap.GameID)
	assert.True(t, snap.Running)
	require.Len(t, snap.Entries, 1)
	assert.Contains(t, snap.Entries[0].Content, albatross.Question)

	_, err = f.engine.Ask(context.Background(), "eve", "Was there a shipwreck?")
	require.NoError(t, err)

	var got []chatlog.Entry
	for len(got) < 2 {
		require.NoError(t, conn.ReadJSON(&snap))
		got = append(got, snap.Entries...)
	}
	assert.Equal(t, "Was there a shipwreck?", got[0].Content)
	assert.Equal(t, "判断：是", got[1].Content)
}

func preflight(t *testing.T, f *fixture, origin string) http.Header {
	t.Helper()
	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/cmd", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	return res.Header
}

func TestCORSDoesNotEchoForeignOrigin(t *testing.T) {
	f := newFixture(t, nil)
	h := preflight(t, f, "https://evil.example")
	assert.Equal(t, "http://localhost:5173", h.Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, h.Values("Access-Control-Allow-Origin"), "https://evil.example")

	h = preflight(t, f, "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
}

func TestWildcardOriginDropsCredentials(t *testing.T) {
	f := newFixtureWithOrigin(t, nil, "*")
	h := preflight(t, f, "https://evil.example")
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, h.Get("Access-Control-Allow-Credentials"))
}

func TestForeignOriginCannotRunLifecycle(t *testing.T) {
	host, err := auth.New(auth.Config{Password: "captain", Secret: "k"})
	require.NoError(t, err)
	f := newFixture(t, host)
	token, _, err := host.Login("captain")
	require.NoError(t, err)
	bearer := "Bearer " + token

	res := f.post(t, "/cmd", command.Request{Cmd: "new_game"}, "Authorization", bearer, "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.False(t, f.engine.State().Running)

	res = f.post(t, "/cmd", command.Request{Cmd: "new_game"}, "Authorization", bearer, "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, f.engine.State().Running)
}

func TestWebsocketChecksOrigin(t *testing.T) {
	f := newFixture(t, nil)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"

	_, res, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	conn.Close()
}

func TestCmdBodyIsCapped(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.StartNewGame(context.Background())

	res := f.post(t, "/cmd", command.Request{Cmd: "ask", Content: strings.Repeat("a", 20<<10)})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decode[command.Response](t, res)
	assert.Equal(t, "invalid_json", body.Msg)
	assert.Len(t, f.engine.Log(), 1)
}
