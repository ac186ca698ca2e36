// Package localization provides the message catalogue used for outgoing notifications.
// Translations are JSON files named by language code (e.g. "en.json"); values are
// text/template strings rendered against the notification fields.
package localization

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
	cache        map[string]*template.Template
}

// Default returns a Localizer over the catalogue compiled into the binary.
func Default() (*Localizer, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return NewLocalizer(sub)
}

// NewLocalizer loads every *.json file at the root of fsys.
func NewLocalizer(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		cache:        make(map[string]*template.Template),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(".", file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.lookup(lang, key); ok {
		return value
	}
	return key
}

func (l *Localizer) lookup(lang, key string) (string, bool) {
	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value, true
		}
	}
	// Fallback to a default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value, true
			}
		}
	}
	return "", false
}

// Render executes the template stored under key with data.
func (l *Localizer) Render(lang, key string, data interface{}) (string, error) {
	l.mu.RLock()
	raw, ok := l.lookup(lang, key)
	tmpl := l.cache[lang+"/"+key]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("localization key %q not found", key)
	}

	if tmpl == nil {
		parsed, err := template.New(key).Option("missingkey=zero").Parse(raw)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", key, err)
		}
		l.mu.Lock()
		l.cache[lang+"/"+key] = parsed
		l.mu.Unlock()
		tmpl = parsed
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", key, err)
	}
	return buf.String(), nil
}
