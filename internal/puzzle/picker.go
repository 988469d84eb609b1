package puzzle

import (
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/soup-server/internal/apperr"
)

// Mode selects how the next puzzle is drawn.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeDaily  Mode = "daily"
)

// ParseMode accepts "random" (default when empty) or "daily".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRandom:
		return ModeRandom, nil
	case ModeDaily:
		return ModeDaily, nil
	}
	return "", apperr.New(apperr.CodeConfiguration, fmt.Sprintf("unknown puzzle mode %q", s))
}

// Picker draws puzzles from a catalog according to a mode.
type Picker struct {
	Catalog *Catalog
	Mode    Mode
	Salt    string
	Now     func() time.Time
}

// Pick returns the next puzzle.
func (p *Picker) Pick() Puzzle {
	if p.Mode == ModeDaily {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		return p.Catalog.Daily(now(), p.Salt)
	}
	return p.Catalog.Random()
}
