// Package messages loads localized response text from YAML catalogs.
//
// A catalog directory holds one file per locale, named
// "messages_<locale>.yaml" (for example messages_en_US.yaml). Nested
// mappings are flattened into dot-separated keys, so
//
//	disambiguation:
//	  two_options: "..."
//
// is addressed as "disambiguation.two_options". Handlers look text up
// through a locale-bound View; a missing key falls back first to the
// en_US catalog, then to the caller-supplied fallback string.
package messages

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is consulted when a key is missing from the requested
// locale's catalog.
const DefaultLocale = "en_US"

// Catalog keys the framework itself consults.
const (
	KeyDisambiguationTwo      = "disambiguation.two_options"
	KeyDisambiguationMultiple = "disambiguation.multiple_options"
	KeyErrorGeneric           = "general.error_generic"
)

// Manager holds the loaded catalogs for every locale.
type Manager struct {
	locales map[string]map[string]string
}

// NewManager returns an empty manager. Lookups against it resolve to the
// caller's fallback text, so a bot with no catalog files still works.
func NewManager() *Manager {
	return &Manager{locales: make(map[string]map[string]string)}
}

// LoadDir loads every messages_<locale>.yaml file under dir. Files that
// do not match the naming scheme are ignored.
func LoadDir(dir string) (*Manager, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir %s: %w", dir, err)
	}

	m := NewManager()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		locale, ok := localeFromFilename(e.Name())
		if !ok {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", e.Name(), err)
		}
		if err := m.LoadLocale(locale, raw); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", e.Name(), err)
		}
	}
	return m, nil
}

// LoadLocale parses one YAML catalog and merges it into the locale's
// table, with new entries winning over existing ones.
func (m *Manager) LoadLocale(locale string, raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	table := m.locales[locale]
	if table == nil {
		table = make(map[string]string)
		m.locales[locale] = table
	}
	flatten("", doc, table)
	return nil
}

// Locale binds the manager to one locale for lookups.
func (m *Manager) Locale(locale string) *View {
	return &View{manager: m, locale: locale}
}

// Locales lists the locales with at least one loaded key, sorted.
func (m *Manager) Locales() []string {
	out := make([]string, 0, len(m.locales))
	for locale := range m.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// View is an immutable, locale-bound window onto a Manager.
type View struct {
	manager *Manager
	locale  string
}

// Get resolves key in the view's locale, then in en_US, then returns
// fallback.
func (v *View) Get(key, fallback string) string {
	if v == nil || v.manager == nil {
		return fallback
	}
	if text, ok := v.manager.locales[v.locale][key]; ok {
		return text
	}
	if v.locale != DefaultLocale {
		if text, ok := v.manager.locales[DefaultLocale][key]; ok {
			return text
		}
	}
	return fallback
}

// Has reports whether key exists in the view's locale or in en_US.
func (v *View) Has(key string) bool {
	if v == nil || v.manager == nil {
		return false
	}
	if _, ok := v.manager.locales[v.locale][key]; ok {
		return true
	}
	if v.locale != DefaultLocale {
		_, ok := v.manager.locales[DefaultLocale][key]
		return ok
	}
	return false
}

// Lookup adapts the view to the error-converter's catalog hook: it
// returns an error for missing keys instead of a fallback string.
func (v *View) Lookup(key string) (string, error) {
	if !v.Has(key) {
		return "", fmt.Errorf("message key %q not found", key)
	}
	return v.Get(key, ""), nil
}

func localeFromFilename(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, ".yaml")
	if !ok {
		if base, ok = strings.CutSuffix(name, ".yml"); !ok {
			return "", false
		}
	}
	locale, ok := strings.CutPrefix(base, "messages_")
	if !ok || locale == "" {
		return "", false
	}
	return locale, true
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
			// tolerated: an empty YAML value is not a message
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
