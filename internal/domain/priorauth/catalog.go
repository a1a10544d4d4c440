package priorauth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog answers, for any procedure code, whether prior authorization is
// required and which documents must accompany the request. Lookup is total:
// a code the catalog has never seen gets the conservative default of
// requiring authorization with clinical notes.
type Catalog struct {
	rules map[string]Requirements
}

const defaultDoc = "Clinical notes"

// NewCatalog builds a catalog from an explicit rule table. The map is
// copied; the catalog is immutable afterwards and safe for concurrent use.
func NewCatalog(rules map[string]Requirements) *Catalog {
	copied := make(map[string]Requirements, len(rules))
	for code, req := range rules {
		docs := make([]string, len(req.RequiredDocs))
		copy(docs, req.RequiredDocs)
		copied[code] = Requirements{RequiresAuth: req.RequiresAuth, RequiredDocs: docs}
	}
	return &Catalog{rules: copied}
}

// DefaultCatalog returns the built-in rule table.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]Requirements{
		"70551": {RequiresAuth: true, RequiredDocs: []string{"Clinical notes", "Recent imaging"}},
		"70553": {RequiresAuth: true, RequiredDocs: []string{"Clinical notes", "Neurology consult", "Previous MRI"}},
		"97110": {RequiresAuth: false, RequiredDocs: []string{}},
	})
}

// Lookup never fails. Unknown codes require authorization with the default
// document list so that a stale catalog cannot wave a procedure through.
func (c *Catalog) Lookup(code string) Requirements {
	if req, ok := c.rules[code]; ok {
		docs := make([]string, len(req.RequiredDocs))
		copy(docs, req.RequiredDocs)
		return Requirements{RequiresAuth: req.RequiresAuth, RequiredDocs: docs}
	}
	return Requirements{RequiresAuth: true, RequiredDocs: []string{defaultDoc}}
}

// Known reports whether the code has an explicit catalog entry.
func (c *Catalog) Known(code string) bool {
	_, ok := c.rules[code]
	return ok
}

// Len returns the number of explicit rules.
func (c *Catalog) Len() int { return len(c.rules) }

type catalogFile struct {
	Rules map[string]struct {
		RequiresAuth bool     `yaml:"requires_auth"`
		RequiredDocs []string `yaml:"required_docs"`
	} `yaml:"rules"`
}

// LoadCatalogFile reads a YAML rule table and builds a catalog from it.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(cf.Rules) == 0 {
		return nil, fmt.Errorf("catalog file %s has no rules", path)
	}
	rules := make(map[string]Requirements, len(cf.Rules))
	for code, r := range cf.Rules {
		docs := r.RequiredDocs
		if docs == nil {
			docs = []string{}
		}
		rules[code] = Requirements{RequiresAuth: r.RequiresAuth, RequiredDocs: docs}
	}
	return NewCatalog(rules), nil
}
