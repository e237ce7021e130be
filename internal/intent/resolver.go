package intent

import "strings"

type Selection struct {
	Intent   string
	SQL      string
	Fallback bool
}

type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve maps a prompt to exactly one template. It never fails: a prompt
// matching no keyword, including the empty prompt, selects the default.
func (r *Resolver) Resolve(prompt string) Selection {
	normalized := strings.ToLower(prompt)
	for _, template := range r.catalog.templates {
		if template.Matches(normalized) {
			return Selection{Intent: template.Name, SQL: template.SQL}
		}
	}
	fallback := r.catalog.fallback
	return Selection{Intent: fallback.Name, SQL: fallback.SQL, Fallback: true}
}
