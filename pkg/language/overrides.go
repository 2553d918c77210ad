package language

import (
	"fmt"
	"os"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// OverrideFile is the structure of a languages.yaml file.
//
//	default: es
//	languages:
//	  es:
//	    voice: Polly.Mia
//	    greeting: "Hola, soy Alex..."
//	    termination_phrases: [adiós, hasta luego]
type OverrideFile struct {
	Default   domain.LocaleKey                   `yaml:"default"`
	Languages map[domain.LocaleKey]map[string]any `yaml:"languages"`
	// Enabled restricts the catalog to a subset of locales, in any order.
	Enabled []domain.LocaleKey `yaml:"enabled"`
}

// LoadOverrides reads a YAML file and applies it on top of base.
// A missing file is not an error: base is returned unchanged.
func LoadOverrides(path string, base *Catalog) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("failed to read languages file: %w", err)
	}

	var file OverrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse languages file: %w", err)
	}
	return ApplyOverrides(base, file)
}

// ApplyOverrides patches entries of base field by field and re-validates the result.
// Only locales already known to base can be patched.
func ApplyOverrides(base *Catalog, file OverrideFile) (*Catalog, error) {
	entries := make(map[domain.LocaleKey]Entry)
	for _, e := range base.Entries() {
		entries[e.Key] = e
	}

	for key, patch := range file.Languages {
		e, ok := entries[key]
		if !ok {
			return nil, fmt.Errorf("languages file: %w: %q", domain.ErrUnknownSelector, key)
		}
		patched, err := patchEntry(e, patch)
		if err != nil {
			return nil, fmt.Errorf("languages file: %q: %w", key, err)
		}
		entries[key] = patched
	}

	keys := base.Keys()
	if len(file.Enabled) > 0 {
		keys = file.Enabled
	}
	selected := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e, ok := entries[key]
		if !ok {
			return nil, fmt.Errorf("languages file: enabled: %w: %q", domain.ErrUnknownSelector, key)
		}
		selected = append(selected, e)
	}

	def := base.Default().Key
	if file.Default != "" {
		def = file.Default
	}
	return NewCatalog(def, selected...)
}

func patchEntry(e Entry, patch map[string]any) (Entry, error) {
	key := e.Key
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "yaml",
		ErrorUnused: true,
		ZeroFields:  true,
		Result:      &e,
	})
	if err != nil {
		return Entry{}, err
	}
	if err := decoder.Decode(patch); err != nil {
		return Entry{}, err
	}
	e.Key = key
	return e, nil
}
