package language

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Catalog is the read-only table of supported locales.
type Catalog struct {
	entries    map[domain.LocaleKey]Entry
	order      []domain.LocaleKey
	defaultKey domain.LocaleKey
}

// NewCatalog builds and validates a catalog. Entries are ordered by menu digit.
func NewCatalog(defaultKey domain.LocaleKey, entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		entries:    make(map[domain.LocaleKey]Entry, len(entries)),
		defaultKey: defaultKey,
	}

	var errs []error
	for _, e := range entries {
		if _, dup := c.entries[e.Key]; dup {
			errs = append(errs, &ValidationError{Key: string(e.Key), Field: "key", Reason: "duplicate"})
			continue
		}
		c.entries[e.Key] = normalize(e)
		c.order = append(c.order, e.Key)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.entries[c.order[i]].Digit < c.entries[c.order[j]].Digit
	})

	if err := c.validate(errs); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics, for package-level defaults.
func MustCatalog(defaultKey domain.LocaleKey, entries ...Entry) *Catalog {
	c, err := NewCatalog(defaultKey, entries...)
	if err != nil {
		panic(fmt.Sprintf("invalid language catalog: %v", err))
	}
	return c
}

func normalize(e Entry) Entry {
	phrases := make([]string, 0, len(e.TerminationPhrases))
	for _, p := range e.TerminationPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	e.TerminationPhrases = phrases
	return e
}

func (c *Catalog) validate(errs []error) error {
	if _, ok := c.entries[c.defaultKey]; !ok {
		errs = append(errs, &ValidationError{Field: "default", Reason: fmt.Sprintf("locale %q is not in the catalog", c.defaultKey)})
	}

	digits := make(map[string]domain.LocaleKey)
	for _, key := range c.order {
		e := c.entries[key]
		k := string(key)
		required := map[string]string{
			"digit":        e.Digit,
			"locale":       e.Locale,
			"voice":        e.Voice,
			"menu_prompt":  e.MenuPrompt,
			"greeting":     e.Greeting,
			"no_input":     e.NoInput,
			"farewell":     e.Farewell,
			"error_prompt": e.ErrorPrompt,
			"instructions": e.Instructions,
		}
		for _, field := range sortedKeys(required) {
			if strings.TrimSpace(required[field]) == "" {
				errs = append(errs, &ValidationError{Key: k, Field: field, Reason: "required"})
			}
		}
		if len(e.TerminationPhrases) == 0 {
			errs = append(errs, &ValidationError{Key: k, Field: "termination_phrases", Reason: "at least one phrase is required"})
		}
		if e.Digit != "" {
			if other, dup := digits[e.Digit]; dup {
				errs = append(errs, &ValidationError{Key: k, Field: "digit", Reason: fmt.Sprintf("already used by %q", other)})
			}
			digits[e.Digit] = key
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve maps a selector (menu digit, locale key, or spoken language name)
// to an entry. Unknown or empty selectors resolve to the default entry.
func (c *Catalog) Resolve(selector string) Entry {
	e, _ := c.Match(selector)
	return e
}

// spokenDigits maps menu numbers as speech recognition may transcribe them.
var spokenDigits = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4",
	"uno": "1", "dos": "2", "tres": "3", "cuatro": "4",
	"un": "1", "une": "1", "deux": "2", "trois": "3", "quatre": "4",
	"um": "1", "dois": "2", "três": "3", "quatro": "4",
}

// Match is Resolve that also reports whether the selector was recognized.
// Trailing punctuation is ignored and spoken menu numbers count as digits.
func (c *Catalog) Match(selector string) (Entry, bool) {
	s := strings.ToLower(strings.TrimSpace(selector))
	s = strings.TrimSpace(strings.TrimRight(s, ".,!?;:"))
	if d, ok := spokenDigits[s]; ok {
		s = d
	}
	if s != "" {
		for _, key := range c.order {
			if e := c.entries[key]; e.matches(s) {
				return e, true
			}
		}
	}
	return c.Default(), false
}

// Lookup returns the entry for a locale key.
func (c *Catalog) Lookup(key domain.LocaleKey) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Get returns the entry for a key, falling back to the default.
func (c *Catalog) Get(key domain.LocaleKey) Entry {
	if e, ok := c.entries[key]; ok {
		return e
	}
	return c.Default()
}

// Default returns the fixed default entry.
func (c *Catalog) Default() Entry {
	return c.entries[c.defaultKey]
}

// Entries returns all entries in menu order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key])
	}
	return out
}

// Keys returns all locale keys in menu order.
func (c *Catalog) Keys() []domain.LocaleKey {
	out := make([]domain.LocaleKey, len(c.order))
	copy(out, c.order)
	return out
}
