// internal/chatlog/chatlog.go
//
// Append-only chat log for one game plus the incremental sync rules
// pollers rely on.
//
// Sync rules (Delta):
//   1. Cursor.GameID differs from the server game → the whole log.
//   2. Cursor.Offset is inside the log           → the suffix from Offset.
//   3. Otherwise                                 → nothing.
//
// A client that stores the returned cursor and sends it back on the next
// poll receives every entry exactly once, in order, across restarts.
//
// Log is not safe for concurrent use; the game engine owns and locks it.

package chatlog

// Entry is a single chat line. Index equals its position in the log.
type Entry struct {
	Index   int    `json:"index"`
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// Cursor is the client-held sync position.
type Cursor struct {
	GameID int `json:"gameId"`
	Offset int `json:"cursor"`
}

// Fresh is the cursor of a client that has never synced.
var Fresh = Cursor{GameID: -1}

// Log is an ordered, append-only sequence of entries.
type Log struct {
	entries []Entry
}

// Append adds a line and returns it with its assigned index.
func (l *Log) Append(speaker, content string) Entry {
	e := Entry{Index: len(l.entries), Speaker: speaker, Content: content}
	l.entries = append(l.entries, e)
	return e
}

// Len reports the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// All returns a copy of every entry.
func (l *Log) All() []Entry { return l.Since(0) }

// Since returns a copy of the entries from index n onward.
func (l *Log) Since(n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Reset empties the log; the next Append gets index 0.
func (l *Log) Reset() { l.entries = nil }

// Delta returns what a client at c is missing, given the server's game id.
func (l *Log) Delta(serverGameID int, c Cursor) []Entry {
	if c.GameID != serverGameID {
		return l.All()
	}
	return l.Since(c.Offset)
}

// Next is the cursor a client should send after receiving everything.
func (l *Log) Next(serverGameID int) Cursor {
	return Cursor{GameID: serverGameID, Offset: len(l.entries)}
}
