// internal/httpserver/routes_sync.go
//
// Chat sync routes.
//   - POST /update  body {"gameId":n,"cursor":m}  → Snapshot
//   - GET  /update?gameId=n&cursor=m              → Snapshot
//   - GET  /ws?gameId=n&cursor=m                  → websocket stream of Snapshots
//
// A client with no cursor (gameId missing or -1) receives the whole log.
// The websocket pushes a Snapshot whenever entries arrive or the
// running/busy flags change; the client needs no polling loop.

package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/chatlog"
	"github.com/robalobadob/soup-server/internal/game"
)

const wsWriteWait = 5 * time.Second

// handleUpdate serves one incremental sync.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	c := chatlog.Fresh
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil && err != io.EOF {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
	} else {
		c = cursorFromQuery(r)
	}
	writeJSON(w, http.StatusOK, s.engine.Sync(c))
}

func cursorFromQuery(r *http.Request) chatlog.Cursor {
	q := r.URL.Query()
	c := chatlog.Fresh
	if v, err := strconv.Atoi(q.Get("gameId")); err == nil {
		c.GameID = v
	}
	if v, err := strconv.Atoi(q.Get("cursor")); err == nil {
		c.Offset = v
	}
	return c
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{CheckOrigin: s.originAllowed}
}

// handleWS upgrades and pushes snapshots until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	// Reader: drains control frames and notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cursor := cursorFromQuery(r)
	var last *game.Snapshot
	ticker := time.NewTicker(s.push)
	defer ticker.Stop()

	for {
		snap := s.engine.Sync(cursor)
		if changed(last, snap) {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug().Err(err).Msg("ws write")
				return
			}
			cursor = snap.Cursor
			last = &snap
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// changed reports whether snap carries anything the client has not seen.
func changed(last *game.Snapshot, snap game.Snapshot) bool {
	if last == nil || len(snap.Entries) > 0 {
		return true
	}
	return last.GameID != snap.GameID || last.Running != snap.Running || last.Busy != snap.Busy
}
