package config

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// File names inside a configuration directory.
const (
	CitizensFile = "citizens.yaml"
	TiersFile    = "tiers.yaml"
	EconomyFile  = "economy.yaml"
)

//go:embed defaults/*.yaml
var defaultFS embed.FS

type citizensDoc struct {
	Citizens []Archetype `yaml:"citizens"`
}

type tiersDoc struct {
	Tiers []Tier `yaml:"tiers"`
}

// Load reads and validates the three configuration tables from dir.
func Load(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// Default returns the configuration tables compiled into the binary.
func Default() (*Store, error) {
	return LoadFS(defaultFS, "defaults")
}

// LoadFS reads and validates the configuration tables from dir within fsys.
// The tiers table is optional; the other two are required.
func LoadFS(fsys fs.FS, dir string) (*Store, error) {
	var s Store

	var cd citizensDoc
	if err := decodeFile(fsys, path.Join(dir, CitizensFile), TableCitizens, &cd); err != nil {
		return nil, err
	}
	s.Archetypes = cd.Citizens

	var td tiersDoc
	err := decodeFile(fsys, path.Join(dir, TiersFile), TableTiers, &td)
	switch {
	case err == nil:
		s.Tiers = td.Tiers
	case errors.Is(err, fs.ErrNotExist):
		// Tier classification is optional.
	default:
		return nil, err
	}

	if err := decodeFile(fsys, path.Join(dir, EconomyFile), TableEconomy, &s.Economy); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeFile(fsys fs.FS, name, table string, out any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return &Error{Table: table, Field: name, Reason: "read", Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Table: table, Field: name, Reason: "decode", Err: err}
	}
	return nil
}
