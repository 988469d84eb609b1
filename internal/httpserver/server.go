// internal/httpserver/server.go
//
// HTTP server wiring for the turtle-soup game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access log).
//   - Public endpoints: "/", "/health", "/puzzles/count", "/history", "/metrics".
//   - Command endpoint: POST /cmd (lifecycle commands gated by host auth
//     when a host password is configured).
//   - Sync endpoints: POST|GET /update and the /ws push stream
//     (routes_sync.go).
//   - Host login/logout: /auth/*.
//
// Notes:
//   - CORS names CLIENT_ORIGIN with credentials (so the auth cookie works);
//     "*" drops credentials.
//   - /cmd and /ws are not bound by the 10s handler timeout; a judgement
//     may legitimately take up to the oracle timeout.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/auth"
	"github.com/robalobadob/soup-server/internal/command"
	"github.com/robalobadob/soup-server/internal/config"
	"github.com/robalobadob/soup-server/internal/game"
	"github.com/robalobadob/soup-server/internal/store"
)

// Deps are the collaborators a Server routes to. Host, History and
// Metrics are optional.
type Deps struct {
	Engine       *game.Engine
	Host         *auth.Host
	History      store.Store
	Metrics      http.Handler
	PuzzleCount  int
	ClientOrigin string
	PushInterval time.Duration
}

// Server bundles the router and its dependencies.
type Server struct {
	r        *chi.Mux
	engine   *game.Engine
	dispatch *command.Dispatcher
	host     *auth.Host
	history  store.Store
	puzzles  int
	push     time.Duration
	origin   string
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		engine:   d.Engine,
		dispatch: command.NewDispatcher(d.Engine),
		host:     d.Host,
		history:  d.History,
		puzzles:  d.PuzzleCount,
		push:     d.PushInterval,
		origin:   d.ClientOrigin,
	}
	if s.push <= 0 {
		s.push = 250 * time.Millisecond
	}
	if s.origin == "" {
		s.origin = config.DefaultClientOrigin
	}
	if s.host == nil {
		s.host, _ = auth.New(auth.Config{})
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)       // zerolog line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // CORS for CLIENT_ORIGIN

	// --- oracle-bound, no handler timeout ---
	s.r.With(jsonContentType).Post("/cmd", s.handleCmd)
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"soup-server","endpoints":["/health","POST /cmd","/update","/ws","/history","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/puzzles/count", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]int{"count": s.puzzles})
		})

		// --- sync ---
		r.Post("/update", s.handleUpdate)
		r.Get("/update", s.handleUpdate)

		r.Get("/history", s.handleHistory)

		// --- host auth ---
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
	})

	if d.Metrics != nil {
		s.r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows the configured origin with credentials. "*" allows any
// origin without credentials; the caller's Origin is never echoed back.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")
		if s.origin == "*" {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", s.origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed reports whether r comes from the configured origin. Requests
// without an Origin header (curl, the CLI) are allowed.
func (s *Server) originAllowed(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || s.origin == "*" || o == s.origin
}

// accessLog writes one zerolog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			ev := log.Debug()
			if ww.Status() >= 500 {
				ev = log.Warn()
			}
			ev.Str("reqId", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------ COMMANDS -----------------------------------

func isLifecycle(cmd string) bool {
	switch strings.ToLower(strings.TrimSpace(cmd)) {
	case "new_game", "start", "new", "end_game", "quit", "end":
		return true
	}
	return false
}

// maxCmdBody caps a /cmd request body.
const maxCmdBody = 16 << 10

// handleCmd runs one command. The response body is always a
// command.Response; the HTTP status follows the error class.
func (s *Server) handleCmd(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxCmdBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, command.Response{
			Code:  apperr.Status(apperr.CodeValidation),
			Error: apperr.CodeValidation,
			Msg:   "invalid_json",
		})
		return
	}
	if isLifecycle(req.Cmd) {
		// Form posts skip preflight, so the cookie alone is not enough.
		if !s.originAllowed(r) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		if !s.host.Authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
	}

	res := s.dispatch.Do(r.Context(), req)
	if res.Error != apperr.CodeOK {
		log.Info().Str("cmd", req.Cmd).Str("code", string(res.Error)).Msg(res.Msg)
	}
	writeJSON(w, apperr.HTTPStatus(res.Error), res)
}

// ------------------------------ HISTORY ------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []store.Record{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db_error"})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ------------------------------- AUTH --------------------------------------

type loginReq struct {
	Password string `json:"password"`
}

// handleLogin checks the host password, sets the cookie, and returns the token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	tok, exp, err := s.host.Login(body.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "auth_disabled"})
		return
	case errors.Is(err, auth.ErrBadPassword):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	case err != nil:
		log.Error().Err(err).Msg("sign host token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign_failed"})
		return
	}
	s.host.SetCookie(w, tok, exp)
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expiresAt": exp.UTC()})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.host.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
