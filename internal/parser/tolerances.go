package parser

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

// ToleranceEntry is one characteristic of a tolerance file.
type ToleranceEntry struct {
	Name     string                 `yaml:"name"`
	PassFail bool                   `yaml:"pass_fail"`
	Spec     analysis.ToleranceSpec `yaml:",inline"`
}

// Kind reports whether the characteristic is numeric or pass/fail.
func (e ToleranceEntry) Kind() analysis.Kind {
	if e.PassFail {
		return analysis.KindPassFail
	}
	return analysis.KindNumeric
}

// ToleranceFile is the YAML document holding the tolerances of a structure.
type ToleranceFile struct {
	Structure       string           `yaml:"structure"`
	Characteristics []ToleranceEntry `yaml:"characteristics"`
}

// Lookup returns the entry named name.
func (f *ToleranceFile) Lookup(name string) (ToleranceEntry, bool) {
	for _, e := range f.Characteristics {
		if e.Name == name {
			return e, true
		}
	}
	return ToleranceEntry{}, false
}

// ParseTolerances reads a tolerance YAML file.
func ParseTolerances(path string) (*ToleranceFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tolerance file: %w", err)
	}
	defer file.Close()
	return ParseTolerancesReader(file)
}

// ParseTolerancesReader decodes a tolerance document. Entries need a unique
// name; a numeric entry may omit any of nominal, minimum and maximum.
func ParseTolerancesReader(r io.Reader) (*ToleranceFile, error) {
	var tf ToleranceFile
	if err := yaml.NewDecoder(r).Decode(&tf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse tolerance file: %w", err)
	}
	seen := make(map[string]bool, len(tf.Characteristics))
	for i, e := range tf.Characteristics {
		if e.Name == "" {
			return nil, fmt.Errorf("tolerance entry %d has no name", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("tolerance %q defined twice", e.Name)
		}
		seen[e.Name] = true
	}
	return &tf, nil
}
