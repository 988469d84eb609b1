// internal/puzzle/puzzle.go
//
// Puzzle catalog ("soups"): the fixed set of scenarios the host can draw from.
//
// Responsibilities:
//   - Validate every puzzle at load time (non-empty question and answer).
//   - Hand out puzzles at random (crypto/rand) or deterministically per day.
//
// The catalog is read-only after construction and safe for concurrent use.

package puzzle

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/robalobadob/soup-server/internal/apperr"
)

// Puzzle is a scenario (Question) paired with its hidden solution (Answer).
type Puzzle struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Valid reports whether both question and answer carry text.
func (p Puzzle) Valid() bool {
	return strings.TrimSpace(p.Question) != "" && strings.TrimSpace(p.Answer) != ""
}

// Catalog holds the available puzzles.
type Catalog struct {
	puzzles []Puzzle
}

// New validates list and builds a catalog. Puzzles without an ID get
// "soup-<n>" where n is their 1-based position.
func New(list []Puzzle) (*Catalog, error) {
	if len(list) == 0 {
		return nil, apperr.New(apperr.CodeConfiguration, "puzzle catalog is empty")
	}
	out := make([]Puzzle, len(list))
	for i, p := range list {
		if !p.Valid() {
			return nil, apperr.New(apperr.CodeConfiguration,
				fmt.Sprintf("puzzle #%d is missing a question or an answer", i+1))
		}
		if strings.TrimSpace(p.ID) == "" {
			p.ID = fmt.Sprintf("soup-%d", i+1)
		}
		out[i] = p
	}
	return &Catalog{puzzles: out}, nil
}

// Len returns the number of puzzles.
func (c *Catalog) Len() int { return len(c.puzzles) }

// All returns a copy of the catalog contents.
func (c *Catalog) All() []Puzzle {
	out := make([]Puzzle, len(c.puzzles))
	copy(out, c.puzzles)
	return out
}

// Random returns a uniformly chosen puzzle.
func (c *Catalog) Random() Puzzle {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.puzzles))))
	if err != nil {
		return c.puzzles[0]
	}
	return c.puzzles[n.Int64()]
}

// Daily returns the puzzle of t's UTC date. The same (date, salt) pair
// always yields the same puzzle.
func (c *Catalog) Daily(t time.Time, salt string) Puzzle {
	return c.puzzles[DailyIndex(t, salt, len(c.puzzles))]
}

// DailyIndex is HMAC-SHA256(salt, YYYY-MM-DD) reduced modulo n.
func DailyIndex(t time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(t.UTC().Format("2006-01-02")))
	sum := h.Sum(nil)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}
