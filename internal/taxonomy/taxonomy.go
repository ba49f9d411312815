// Package taxonomy provides the hierarchical category catalog used to label
// prompt spans.
//
// Category identifiers are dot-separated paths with two levels: a parent
// category ("camera") and its attributes ("camera.movement"). The registry is
// built once at process start from an embedded default catalog or a YAML
// file, and is read-only afterward — every pipeline component shares the same
// registry by reference.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackID is the category assigned to spans with unknown roles in
// lenient mode.
const FallbackID = "general"

// Category is a single immutable catalog entry.
type Category struct {
	ID         string   // dot-separated path, e.g. "camera" or "camera.movement"
	Parent     string   // empty for top-level categories
	Label      string   // display label, never used for matching
	Attributes []string // child attribute IDs, only populated on top-level categories
}

// Registry is the read-only category catalog. Safe for concurrent use after
// construction.
type Registry struct {
	categories map[string]Category
	order      []string
}

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

type fileTaxonomy struct {
	Categories []struct {
		ID         string   `yaml:"id"`
		Label      string   `yaml:"label"`
		Attributes []string `yaml:"attributes"`
	} `yaml:"categories"`
}

// Default returns the registry built from the embedded catalog.
// The embedded catalog is known-good; a parse failure is a build defect.
func Default() *Registry {
	r, err := Parse(defaultTaxonomyYAML)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded catalog invalid: %v", err))
	}
	return r
}

// Load reads a taxonomy catalog from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return r, nil
}

// Parse builds a registry from YAML catalog data. Attribute entries are
// expanded into full categories with Parent set, so "camera.movement" is
// addressable directly.
func Parse(data []byte) (*Registry, error) {
	var ft fileTaxonomy
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, err
	}
	if len(ft.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	r := &Registry{categories: make(map[string]Category)}
	for _, c := range ft.Categories {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("category with empty id")
		}
		if strings.Contains(id, ".") {
			return nil, fmt.Errorf("top-level category %q must not contain a dot", id)
		}
		if _, dup := r.categories[id]; dup {
			return nil, fmt.Errorf("duplicate category %q", id)
		}

		attrs := make([]string, 0, len(c.Attributes))
		for _, a := range c.Attributes {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			attrID := id + "." + a
			if _, dup := r.categories[attrID]; dup {
				return nil, fmt.Errorf("duplicate category %q", attrID)
			}
			r.categories[attrID] = Category{
				ID:     attrID,
				Parent: id,
				Label:  displayLabel(a),
			}
			r.order = append(r.order, attrID)
			attrs = append(attrs, attrID)
		}

		label := strings.TrimSpace(c.Label)
		if label == "" {
			label = displayLabel(id)
		}
		r.categories[id] = Category{ID: id, Label: label, Attributes: attrs}
		r.order = append(r.order, id)
	}

	if _, ok := r.categories[FallbackID]; !ok {
		r.categories[FallbackID] = Category{ID: FallbackID, Label: displayLabel(FallbackID)}
		r.order = append(r.order, FallbackID)
	}

	sort.Strings(r.order)
	return r, nil
}

// Get returns the category for id.
func (r *Registry) Get(id string) (Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// IsRegistered reports whether id names a known category.
func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.categories[id]
	return ok
}

// ParentOf returns the top-level parent of a role identifier. For attribute
// roles ("camera.movement") this is the first path segment; top-level roles
// are their own parent. Works on unregistered roles too — overlap resolution
// needs a parent for every candidate, known or not.
func ParentOf(role string) string {
	if idx := strings.IndexByte(role, '.'); idx > 0 {
		return role[:idx]
	}
	return role
}

// IsAttribute reports whether role is an attribute-level identifier.
func IsAttribute(role string) bool {
	return strings.IndexByte(role, '.') > 0
}

// Specificity returns the number of dot-separated segments in role.
// More segments means a more specific role.
func Specificity(role string) int {
	if role == "" {
		return 0
	}
	return strings.Count(role, ".") + 1
}

// Fallback returns the lenient-mode replacement category ID.
func (r *Registry) Fallback() string {
	return FallbackID
}

// Categories returns all categories in stable (sorted) order.
func (r *Registry) Categories() []Category {
	out := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.categories[id])
	}
	return out
}

// Len returns the total number of registered categories, attributes included.
func (r *Registry) Len() int {
	return len(r.categories)
}

// displayLabel turns an identifier segment into a human-readable label
// ("time_of_day" → "Time Of Day").
func displayLabel(seg string) string {
	words := strings.FieldsFunc(seg, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
