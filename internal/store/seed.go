package store

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SeedRecord is one known submission in a seed file.
type SeedRecord struct {
	Problem  string  `yaml:"problem"`
	Code     string  `yaml:"code"`
	Score    float64 `yaml:"score"`
	Count    int     `yaml:"count"`
	Feedback string  `yaml:"feedback,omitempty"`
}

type seedFile struct {
	States []SeedRecord `yaml:"states"`
}

// LoadSeed decodes a YAML seed file. The source code in each record is raw;
// callers canonicalize it before saving.
func LoadSeed(r io.Reader) ([]SeedRecord, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, rec := range f.States {
		if rec.Problem == "" {
			return nil, fmt.Errorf("seed record %d: missing problem", i)
		}
		if rec.Score < 0 || rec.Score > 1 {
			return nil, fmt.Errorf("seed record %d: score %v outside [0, 1]", i, rec.Score)
		}
		if rec.Count < 0 {
			return nil, fmt.Errorf("seed record %d: negative count", i)
		}
	}
	return f.States, nil
}
