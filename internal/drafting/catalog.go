package drafting

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/catalog.yaml
var defaultCatalog []byte

// Template is one drafting template. Store-backed templates carry a Key and
// load their Body on demand.
type Template struct {
	DocumentType string   `yaml:"documentType"`
	Language     string   `yaml:"language"`
	Aliases      []string `yaml:"aliases"`
	Body         string   `yaml:"body"`
	Key          string   `yaml:"-"`
}

// FileName is the template's file name, e.g. Simple_Affidavit.txt.
func (t Template) FileName() string {
	if t.Key != "" {
		return path.Base(t.Key)
	}
	return strings.ReplaceAll(strings.TrimSpace(t.DocumentType), " ", "_") + ".txt"
}

func (t Template) id() string {
	return normalize(t.Language) + "/" + normalize(t.DocumentType)
}

// Catalog is the static set of templates shipped with the service.
type Catalog struct {
	Templates []Template `yaml:"templates"`
}

// LoadCatalog parses the YAML catalog at path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template catalog: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	seen := make(map[string]bool, len(cat.Templates))
	for i, t := range cat.Templates {
		if strings.TrimSpace(t.DocumentType) == "" || strings.TrimSpace(t.Language) == "" {
			return nil, fmt.Errorf("template %d: documentType and language are required", i)
		}
		if strings.TrimSpace(t.Body) == "" {
			return nil, fmt.Errorf("template %q (%s): body is empty", t.DocumentType, t.Language)
		}
		if seen[t.id()] {
			return nil, fmt.Errorf("template %q (%s): duplicate entry", t.DocumentType, t.Language)
		}
		seen[t.id()] = true
	}
	return &cat, nil
}

// templateFromKey maps {prefix}/{Language}/{Document_Type}.txt to a Template.
func templateFromKey(prefix, key string) (Template, bool) {
	rel := strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(prefix, "/")), "/")
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], ".txt") {
		return Template{}, false
	}
	docType := strings.TrimSuffix(parts[1], ".txt")
	if strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(docType) == "" {
		return Template{}, false
	}
	return Template{
		DocumentType: strings.ReplaceAll(docType, "_", " "),
		Language:     parts[0],
		Key:          key,
	}, true
}

// merge overlays store templates on the catalog. A store template replaces a
// catalog entry with the same type and language.
func merge(catalog, stored []Template) []Template {
	byID := make(map[string]Template, len(catalog)+len(stored))
	for _, t := range catalog {
		byID[t.id()] = t
	}
	for _, t := range stored {
		if prev, ok := byID[t.id()]; ok && len(t.Aliases) == 0 {
			t.Aliases = prev.Aliases
		}
		byID[t.id()] = t
	}
	out := make([]Template, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FileName() != out[j].FileName() {
			return out[i].FileName() < out[j].FileName()
		}
		return out[i].id() < out[j].id()
	})
	return out
}
