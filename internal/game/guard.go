package game

// guard marks an oracle call in flight. It is only touched while the
// engine mutex is held.
type guard struct {
	busy bool
}

// acquire takes the guard; it reports false if it was already taken.
func (g *guard) acquire() bool {
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

func (g *guard) release() { g.busy = false }
