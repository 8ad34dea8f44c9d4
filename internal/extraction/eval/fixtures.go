package eval

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Case is one labelled message.
type Case struct {
	Message  string   `json:"message"`
	Expected Expected `json:"expected"`
}

// Fixture is a named set of cases.
type Fixture struct {
	Name  string
	Cases []Case
}

// LoadFixtures loads every embedded fixture file, sorted by name.
func LoadFixtures() ([]*Fixture, error) {
	entries, err := fixtureFS.ReadDir("fixtures")
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []*Fixture
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		f, err := loadFixture(e.Name())
		if err != nil {
			return nil, fmt.Errorf("load fixture %q: %w", e.Name(), err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func loadFixture(file string) (*Fixture, error) {
	data, err := fixtureFS.ReadFile(path.Join("fixtures", file))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases")
	}
	for i, c := range cases {
		if !c.Expected.Intent.Valid() {
			return nil, fmt.Errorf("case %d: unknown intent %q", i, c.Expected.Intent)
		}
	}

	return &Fixture{
		Name:  strings.TrimSuffix(file, ".json"),
		Cases: cases,
	}, nil
}
