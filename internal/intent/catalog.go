package intent

import (
	"fmt"
	"strings"
)

const (
	VendorSpend    = "vendor_spend"
	InvoiceSummary = "invoice_summary"
	RecentInvoices = "recent_invoices"
)

// Template is a named, literal SQL statement and the keywords that select it.
// A template without keywords is the catalog default.
type Template struct {
	Name     string
	Keywords []string
	SQL      string
}

// Matches reports whether any keyword occurs in the already lower-cased prompt.
func (t Template) Matches(normalized string) bool {
	for _, keyword := range t.Keywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

func (t Template) IsDefault() bool {
	return len(t.Keywords) == 0
}

// Catalog is an ordered, immutable set of templates. Declaration order is
// match priority.
type Catalog struct {
	templates []Template
	fallback  Template
}

func NewCatalog(templates ...Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("catalog requires at least one template")
	}

	seen := make(map[string]struct{}, len(templates))
	matchers := make([]Template, 0, len(templates))
	var fallback *Template
	for i, template := range templates {
		name := strings.TrimSpace(template.Name)
		if name == "" {
			return nil, fmt.Errorf("template %d: name is required", i)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("template %q: duplicate name", name)
		}
		seen[name] = struct{}{}

		sqlText := strings.TrimSpace(template.SQL)
		if sqlText == "" {
			return nil, fmt.Errorf("template %q: sql is required", name)
		}
		if !isReadOnly(sqlText) {
			return nil, fmt.Errorf("template %q: sql must be a SELECT or WITH statement", name)
		}

		keywords := make([]string, 0, len(template.Keywords))
		for _, keyword := range template.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				return nil, fmt.Errorf("template %q: empty keyword", name)
			}
			keywords = append(keywords, keyword)
		}

		normalized := Template{Name: name, Keywords: keywords, SQL: sqlText}
		if normalized.IsDefault() {
			if fallback != nil {
				return nil, fmt.Errorf("template %q: catalog already has default %q", name, fallback.Name)
			}
			fallback = &normalized
			continue
		}
		matchers = append(matchers, normalized)
	}
	if fallback == nil {
		return nil, fmt.Errorf("catalog requires a default template without keywords")
	}

	return &Catalog{templates: matchers, fallback: *fallback}, nil
}

// DefaultCatalog returns the built-in invoice analytics catalog.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(builtinTemplates...)
	if err != nil {
		panic(fmt.Sprintf("builtin intent catalog: %v", err))
	}
	return catalog
}

var builtinTemplates = []Template{
	{
		Name:     VendorSpend,
		Keywords: []string{"vendor"},
		SQL:      `SELECT v.name, SUM(i.total) AS spend FROM "Invoice" i JOIN "Vendor" v ON i."vendorId"=v.id GROUP BY v.name ORDER BY spend DESC LIMIT 5;`,
	},
	{
		Name:     InvoiceSummary,
		Keywords: []string{"summary", "statistics", "stats"},
		SQL:      `SELECT SUM(total) AS total_spend, COUNT(*) AS total_invoices, AVG(total) AS avg_invoice_value FROM "Invoice";`,
	},
	{
		Name: RecentInvoices,
		SQL:  `SELECT * FROM "Invoice" LIMIT 5;`,
	},
}

// Templates lists the keyword templates in priority order followed by the default.
func (c *Catalog) Templates() []Template {
	out := make([]Template, 0, len(c.templates)+1)
	for _, template := range c.templates {
		template.Keywords = append([]string(nil), template.Keywords...)
		out = append(out, template)
	}
	return append(out, c.fallback)
}

func (c *Catalog) Default() Template {
	return c.fallback
}

// Lookup finds a template by name.
func (c *Catalog) Lookup(name string) (Template, bool) {
	if c.fallback.Name == name {
		return c.fallback, true
	}
	for _, template := range c.templates {
		if template.Name == name {
			return template, true
		}
	}
	return Template{}, false
}

func isReadOnly(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}
