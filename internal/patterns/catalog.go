package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mira/internal/logging"
)

// catalogFile is the on-disk shape of a template file: one or more templates
// under a top-level "patterns" key.
type catalogFile struct {
	Patterns []*Template `yaml:"patterns"`
}

// LoadTemplateFile parses one YAML template file and returns its templates.
func LoadTemplateFile(path string) ([]*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", filepath.Base(path), err)
	}

	var out []*Template
	for _, tpl := range cf.Patterns {
		if err := validateTemplate(tpl); err != nil {
			logging.CatalogWarn("Skipping template in %s: %v", filepath.Base(path), err)
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// LoadTemplateDir loads every *.yaml/*.yml file in a directory into the
// library. A missing directory is not an error; individual bad files are
// skipped with a warning.
func LoadTemplateDir(lib *Library, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read patterns dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		templates, err := LoadTemplateFile(filepath.Join(dir, name))
		if err != nil {
			logging.CatalogWarn("Skipping %s: %v", name, err)
			continue
		}
		for _, tpl := range templates {
			lib.Register(tpl)
			loaded++
		}
	}

	if loaded > 0 {
		logging.Catalog("Loaded %d templates from %s", loaded, dir)
	}
	return loaded, nil
}

// validateTemplate checks the structural shape of a parsed template.
func validateTemplate(tpl *Template) error {
	if tpl == nil {
		return fmt.Errorf("nil template")
	}
	if tpl.ID == "" {
		return fmt.Errorf("template missing id")
	}
	if len(tpl.Indicators) == 0 {
		return fmt.Errorf("template %s has no indicators", tpl.ID)
	}
	for _, ind := range tpl.Indicators {
		if ind.Type == "" {
			return fmt.Errorf("template %s has an indicator without a type", tpl.ID)
		}
		if ind.Weight <= 0 || ind.Weight > 1 {
			return fmt.Errorf("template %s indicator %s weight %.2f outside (0,1]", tpl.ID, ind.Type, ind.Weight)
		}
	}
	if tpl.ConfidenceThreshold <= 0 || tpl.ConfidenceThreshold > 1 {
		return fmt.Errorf("template %s confidence threshold %.2f outside (0,1]", tpl.ID, tpl.ConfidenceThreshold)
	}
	return nil
}
