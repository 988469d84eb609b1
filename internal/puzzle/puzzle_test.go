package puzzle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/soup-server/internal/apperr"
)

func TestNewValidatesRecords(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = New([]Puzzle{{Question: "q", Answer: "a"}, {Question: "  ", Answer: "a"}})
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "#2")

	c, err := New([]Puzzle{{Question: "q1", Answer: "a1"}, {ID: "named", Question: "q2", Answer: "a2"}})
	require.NoError(t, err)
	all := c.All()
	assert.Equal(t, "soup-1", all[0].ID)
	assert.Equal(t, "named", all[1].ID)
}

func TestRandomStaysInCatalog(t *testing.T) {
	c, err := New([]Puzzle{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}})
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		p := c.Random()
		assert.Contains(t, []string{"q1", "q2"}, p.Question)
	}
}

func TestDailyIsDeterministic(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	later := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, c.Daily(day, "salt"), c.Daily(later, "salt"))
	assert.Equal(t, 0, DailyIndex(day, "salt", 0))

	idx := DailyIndex(day, "salt", c.Len())
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, c.Len())

	p := &Picker{Catalog: c, Mode: ModeDaily, Salt: "salt", Now: func() time.Time { return day }}
	assert.Equal(t, c.Daily(day, "salt"), p.Pick())
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "soups.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"question":"q","answer":"a"}]`), 0o644))
	c, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	yamlPath := filepath.Join(dir, "soups.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- id: y1\n  question: qy\n  answer: ay\n"), 0o644))
	c, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "y1", c.All()[0].ID)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{not json`), 0o644))
	_, err = Load(badPath)
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestLoadDefaultContainsElevatorPuzzle(t *testing.T) {
	c, err := LoadOrDefault("")
	require.NoError(t, err)
	found := false
	for _, p := range c.All() {
		if p.ID == "elevator" {
			found = true
			assert.Equal(t, "He is too short to reach the button.", p.Answer)
		}
	}
	assert.True(t, found)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRandom, m)
	m, err = ParseMode(" Daily ")
	require.NoError(t, err)
	assert.Equal(t, ModeDaily, m)
	_, err = ParseMode("weekly")
	require.ErrorIs(t, err, apperr.ErrConfiguration)
}
