package suggestions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"etlinspector/pkg/contracts/domain"
)

// templateData is what property and script templates see.
type templateData struct {
	Column  string
	Field   string
	Columns []string
}

type compiledProperty struct {
	key, value *template.Template
}

type compiledProcessor struct {
	name        string
	description string
	properties  []compiledProperty
}

type compiledEntry struct {
	spec       entrySpec
	processors []compiledProcessor
	script     *template.Template
}

// Catalogue renders remediation material per issue category.
type Catalogue struct {
	entries map[domain.Category]*compiledEntry
}

var funcs = template.FuncMap{
	"groovy": quoteGroovy,
	"json":   quoteJSON,
	"sql":    quoteSQL,
	"clean":  CleanColumnName,
}

func quoteGroovy(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func quoteSQL(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// New compiles the built-in entries.
func New() (*Catalogue, error) {
	c := &Catalogue{entries: make(map[domain.Category]*compiledEntry, len(builtinEntries))}
	for _, spec := range builtinEntries {
		entry, err := compile(spec)
		if err != nil {
			return nil, fmt.Errorf("compile %s suggestions: %w", spec.category, err)
		}
		c.entries[spec.category] = entry
	}
	return c, nil
}

var (
	defaultOnce      sync.Once
	defaultCatalogue *Catalogue
)

// Default returns the shared built-in catalogue. The templates are static,
// so a compile failure is a programming error and panics.
func Default() *Catalogue {
	defaultOnce.Do(func() {
		c, err := New()
		if err != nil {
			panic(err)
		}
		defaultCatalogue = c
	})
	return defaultCatalogue
}

func compile(spec entrySpec) (*compiledEntry, error) {
	entry := &compiledEntry{spec: spec}
	for _, p := range spec.processors {
		cp := compiledProcessor{name: p.name, description: p.description}
		for i, prop := range p.properties {
			id := fmt.Sprintf("%s.%s.%d", spec.category, p.name, i)
			k, err := template.New(id + ".key").Funcs(funcs).Parse(prop.key)
			if err != nil {
				return nil, err
			}
			v, err := template.New(id + ".value").Funcs(funcs).Parse(prop.value)
			if err != nil {
				return nil, err
			}
			cp.properties = append(cp.properties, compiledProperty{key: k, value: v})
		}
		entry.processors = append(entry.processors, cp)
	}
	script, err := template.New(string(spec.category) + ".script").Funcs(funcs).Parse(spec.script)
	if err != nil {
		return nil, err
	}
	entry.script = script
	return entry, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func newData(columns []string) templateData {
	data := templateData{Column: "field", Field: "field", Columns: columns}
	if len(columns) > 0 {
		data.Column = columns[0]
		data.Field = CleanColumnName(columns[0])
	}
	return data
}

// Suggestion renders the full material for a category and its affected
// columns. Dataset-scoped issues pass no columns.
func (c *Catalogue) Suggestion(category domain.Category, columns []string) (domain.Suggestion, error) {
	entry, ok := c.entries[category]
	if !ok {
		return domain.Suggestion{}, fmt.Errorf("no suggestions for category %q", category)
	}
	data := newData(columns)

	processors, err := c.processors(entry, data)
	if err != nil {
		return domain.Suggestion{}, err
	}
	script, err := render(entry.script, data)
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("render %s script: %w", category, err)
	}

	return domain.Suggestion{
		Category:   category,
		Problem:    entry.spec.problem,
		Columns:    append([]string(nil), columns...),
		Processors: processors,
		Flow:       append([]string(nil), entry.spec.flow...),
		Remedies:   append([]string(nil), entry.spec.remedies...),
		Script:     script,
	}, nil
}

func (c *Catalogue) processors(entry *compiledEntry, data templateData) ([]domain.Processor, error) {
	out := make([]domain.Processor, 0, len(entry.processors))
	for _, p := range entry.processors {
		proc := domain.Processor{Name: p.name, Description: p.description}
		for _, prop := range p.properties {
			k, err := render(prop.key, data)
			if err != nil {
				return nil, fmt.Errorf("render %s property key: %w", p.name, err)
			}
			v, err := render(prop.value, data)
			if err != nil {
				return nil, fmt.Errorf("render %s property %s: %w", p.name, k, err)
			}
			proc.Properties = append(proc.Properties, domain.Property{Key: k, Value: v})
		}
		out = append(out, proc)
	}
	return out, nil
}

// ToolConfig renders the compact NiFi configuration stored on an issue:
// one line per processor with its non-boilerplate properties, then the
// example flow.
func (c *Catalogue) ToolConfig(category domain.Category, column string) string {
	entry, ok := c.entries[category]
	if !ok {
		return ""
	}
	var columns []string
	if column != "" {
		columns = []string{column}
	}
	processors, err := c.processors(entry, newData(columns))
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, p := range processors {
		b.WriteString("NiFi ")
		b.WriteString(p.Name)
		b.WriteString(":")
		first := true
		for _, prop := range p.Properties {
			if prop.Key == "Record Reader" || prop.Key == "Record Writer" {
				continue
			}
			if first {
				b.WriteString(" ")
				first = false
			} else {
				b.WriteString("; ")
			}
			b.WriteString(prop.Key)
			b.WriteString("=")
			b.WriteString(prop.Value)
		}
		b.WriteString("\n")
	}
	b.WriteString("Flow: ")
	b.WriteString(flowNames(entry.spec.flow))
	return b.String()
}

// flowNames reduces flow steps to the processor chain.
func flowNames(steps []string) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		name, _, _ := strings.Cut(s, " ")
		names[i] = name
	}
	return strings.Join(names, " -> ")
}

// ForReport groups a report's issues by category and renders one
// suggestion per category present, in check order.
func (c *Catalogue) ForReport(r domain.Report) []domain.Suggestion {
	var out []domain.Suggestion
	for _, cat := range r.Categories() {
		var columns []string
		for _, issue := range r.IssuesFor(cat) {
			if !issue.DatasetScoped() {
				columns = append(columns, issue.Column)
			}
		}
		s, err := c.Suggestion(cat, columns)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Categories lists the categories with catalogue entries in check order.
func (c *Catalogue) Categories() []domain.Category {
	var out []domain.Category
	for _, cat := range domain.AllCategories {
		if _, ok := c.entries[cat]; ok {
			out = append(out, cat)
		}
	}
	return out
}
