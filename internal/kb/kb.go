package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names expected inside the data directory.
const (
	PhrasesFile   = "emergency_phrases.json"
	SheltersFile  = "shelters.json"
	LocationsFile = "locations.json"
)

// DataLoadError is fatal: the engine must not serve requests on a partial
// or inconsistent knowledge base.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("knowledge base: load %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

type ShelterRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Capacity   int      `json:"capacity,omitempty"`
	Facilities []string `json:"facilities,omitempty"`
	Contact    string   `json:"contact,omitempty"`
}

func (s ShelterRecord) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}

// KB is the read-only knowledge base. Built once by Load, never mutated
// afterwards, safe to share across concurrent readers.
type KB struct {
	// Phrases maps a category name to its trigger phrases, as listed in
	// the dataset. Linguistic normalization is the matcher's concern.
	Phrases map[string][]string

	Shelters  []ShelterRecord
	Locations map[string]Coordinate
}

// Load reads all three datasets from dir. No partial load: any missing or
// malformed source, duplicate shelter id, or phrase claimed by two
// categories yields a DataLoadError.
func Load(dir string) (*KB, error) {
	kb := &KB{}

	if err := readJSON(filepath.Join(dir, PhrasesFile), &kb.Phrases); err != nil {
		return nil, &DataLoadError{Source: PhrasesFile, Err: err}
	}
	if err := readJSON(filepath.Join(dir, SheltersFile), &kb.Shelters); err != nil {
		return nil, &DataLoadError{Source: SheltersFile, Err: err}
	}
	var locs map[string]Coordinate
	if err := readJSON(filepath.Join(dir, LocationsFile), &locs); err != nil {
		return nil, &DataLoadError{Source: LocationsFile, Err: err}
	}
	kb.Locations = locs

	if err := kb.validate(); err != nil {
		return nil, err
	}
	return kb, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func (kb *KB) validate() error {
	if len(kb.Phrases) == 0 {
		return &DataLoadError{Source: PhrasesFile, Err: fmt.Errorf("no categories defined")}
	}

	// Each phrase maps to exactly one category; an overlap is a
	// data-integrity error, not something to resolve at runtime.
	owner := map[string]string{}
	for cat, phrases := range kb.Phrases {
		if len(phrases) == 0 {
			return &DataLoadError{Source: PhrasesFile, Err: fmt.Errorf("category %q has no phrases", cat)}
		}
		for _, p := range phrases {
			key := strings.Join(strings.Fields(strings.ToLower(p)), " ")
			if key == "" {
				return &DataLoadError{Source: PhrasesFile, Err: fmt.Errorf("category %q contains an empty phrase", cat)}
			}
			if prev, ok := owner[key]; ok && prev != cat {
				return &DataLoadError{
					Source: PhrasesFile,
					Err:    fmt.Errorf("phrase %q mapped to both %q and %q", key, prev, cat),
				}
			}
			owner[key] = cat
		}
	}

	seen := map[string]bool{}
	for _, s := range kb.Shelters {
		if s.ID == "" {
			return &DataLoadError{Source: SheltersFile, Err: fmt.Errorf("shelter %q has no id", s.Name)}
		}
		if seen[s.ID] {
			return &DataLoadError{Source: SheltersFile, Err: fmt.Errorf("duplicate shelter id %q", s.ID)}
		}
		seen[s.ID] = true
		if !s.Coordinate().Valid() {
			return &DataLoadError{
				Source: SheltersFile,
				Err:    fmt.Errorf("shelter %q has invalid coordinates (%f, %f)", s.ID, s.Latitude, s.Longitude),
			}
		}
	}

	for name, c := range kb.Locations {
		if !c.Valid() {
			return &DataLoadError{
				Source: LocationsFile,
				Err:    fmt.Errorf("location %q has invalid coordinates (%f, %f)", name, c.Latitude, c.Longitude),
			}
		}
	}

	return nil
}
