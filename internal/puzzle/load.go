package puzzle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/soup-server/assets"
	"github.com/robalobadob/soup-server/internal/apperr"
)

// Load reads a catalog file. The format follows the extension:
// .yaml/.yml are YAML, everything else is JSON. Both hold a list of
// {id, question, answer} records.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "read puzzle file", errors.Wrapf(err, "open %s", path))
	}
	list, err := decode(b, filepath.Ext(path))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "parse puzzle file", errors.Wrapf(err, "decode %s", path))
	}
	return New(list)
}

// LoadDefault builds the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	b, err := assets.Puzzles()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "read embedded puzzles", err)
	}
	list, err := decode(b, ".json")
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "parse embedded puzzles", err)
	}
	return New(list)
}

// LoadOrDefault loads path when set and the embedded catalog otherwise.
func LoadOrDefault(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return LoadDefault()
	}
	return Load(path)
}

func decode(b []byte, ext string) ([]Puzzle, error) {
	var list []Puzzle
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &list); err != nil {
			return nil, errors.Wrap(err, "yaml")
		}
	default:
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, errors.Wrap(err, "json")
		}
	}
	return list, nil
}
