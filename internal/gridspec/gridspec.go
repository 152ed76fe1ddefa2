package gridspec

import (
	"fmt"
	"time"

	"github.com/roach88/gridfill/internal/enrich"
	"github.com/roach88/gridfill/internal/order"
)

// GridSpec is a compiled grid spec.
type GridSpec struct {
	Columns     []Column
	Sources     []Source
	Concurrency int
	Timeout     time.Duration

	// Summary names the bool column counted in the summary row.
	Summary string
}

// Column is one declared grid column, in declaration order.
type Column struct {
	Name     string
	Type     order.Type
	Label    string
	Sortable bool
}

// Source is one declared enrichment source. Exactly one of URL or Env is
// set; Env names the environment variable holding the endpoint prefix.
type Source struct {
	Name     string
	URL      string
	Env      string
	Query    string
	Format   string
	Extract  enrich.Kind
	Target   string
	Mappings map[string]string
}

// Schema returns the comparator schema built from sortable columns.
func (g *GridSpec) Schema() order.Schema {
	schema := make(order.Schema, len(g.Columns))
	for _, c := range g.Columns {
		if c.Sortable {
			schema[c.Name] = c.Type
		}
	}
	return schema
}

// Column returns the column called name.
func (g *GridSpec) Column(name string) (Column, bool) {
	for _, c := range g.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Source returns the source called name.
func (g *GridSpec) Source(name string) (Source, bool) {
	for _, s := range g.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// SourceNames returns source names in declaration order.
func (g *GridSpec) SourceNames() []string {
	names := make([]string, len(g.Sources))
	for i, s := range g.Sources {
		names[i] = s.Name
	}
	return names
}

// ColumnNames returns column names in declaration order.
func (g *GridSpec) ColumnNames() []string {
	names := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		names[i] = c.Name
	}
	return names
}

// ResolveURL returns the endpoint prefix, reading Env through lookup when
// no URL is given directly.
func (s Source) ResolveURL(lookup func(string) (string, bool)) (string, error) {
	if s.URL != "" {
		return s.URL, nil
	}
	if lookup != nil {
		if v, ok := lookup(s.Env); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("source %s: environment variable %s is not set", s.Name, s.Env)
}

// Enricher builds a runnable enrich.Source with a resolved URL.
func (s Source) Enricher(lookup func(string) (string, bool), client *enrich.Client) (*enrich.Source, error) {
	u, err := s.ResolveURL(lookup)
	if err != nil {
		return nil, err
	}
	src := enrich.NewSource(enrich.Source{
		Name:     s.Name,
		URL:      u,
		Query:    s.Query,
		Format:   s.Format,
		Extract:  s.Extract,
		Target:   s.Target,
		Mappings: s.Mappings,
	}, client)
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return src, nil
}
