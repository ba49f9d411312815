package match

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/reelprompt/reelprompt/internal/taxonomy"
	"gopkg.in/yaml.v3"
)

// Vocabulary is the closed term list mapped to taxonomy roles. Terms are
// matched case-insensitively; each term maps to exactly one role. Built once
// at startup, read-only afterward.
type Vocabulary struct {
	terms map[string]string // lowercased term → role
}

//go:embed vocab.yaml
var defaultVocabYAML []byte

type fileVocab struct {
	Terms []struct {
		Role  string   `yaml:"role"`
		Terms []string `yaml:"terms"`
	} `yaml:"terms"`
}

// DefaultVocabulary returns the embedded vocabulary validated against the
// registry. The embedded table is known-good; a failure is a build defect.
func DefaultVocabulary(reg *taxonomy.Registry) *Vocabulary {
	v, err := ParseVocabulary(defaultVocabYAML, reg)
	if err != nil {
		panic(fmt.Sprintf("match: embedded vocabulary invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a vocabulary from a YAML file.
func LoadVocabulary(path string, reg *taxonomy.Registry) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	v, err := ParseVocabulary(data, reg)
	if err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return v, nil
}

// ParseVocabulary builds a vocabulary from YAML data. Every role must be a
// registered taxonomy identifier — unlike candidate spans at annotation time,
// a bad vocabulary file is a configuration error, not a data-quality skip.
func ParseVocabulary(data []byte, reg *taxonomy.Registry) (*Vocabulary, error) {
	var fv fileVocab
	if err := yaml.Unmarshal(data, &fv); err != nil {
		return nil, err
	}

	v := &Vocabulary{terms: make(map[string]string)}
	for _, group := range fv.Terms {
		role := strings.TrimSpace(group.Role)
		if role == "" {
			return nil, fmt.Errorf("vocabulary group with empty role")
		}
		if !reg.IsRegistered(role) {
			return nil, fmt.Errorf("vocabulary role %q not in taxonomy", role)
		}
		for _, term := range group.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			if prev, dup := v.terms[term]; dup && prev != role {
				return nil, fmt.Errorf("term %q mapped to both %q and %q", term, prev, role)
			}
			v.terms[term] = role
		}
	}
	if len(v.terms) == 0 {
		return nil, fmt.Errorf("vocabulary has no terms")
	}
	return v, nil
}

// Role returns the taxonomy role mapped to term, matching case-insensitively.
func (v *Vocabulary) Role(term string) (string, bool) {
	role, ok := v.terms[strings.ToLower(term)]
	return role, ok
}

// Terms returns all vocabulary terms in sorted order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, 0, len(v.terms))
	for t := range v.terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}
