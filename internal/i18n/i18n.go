package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	LangTR = "tr"
	LangEN = "en"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

type Manager struct {
	defaultLanguage string
	locales         map[string]map[string]string
	supported       []string
}

// NewManager loads locales from localesDir, or the built-in locales when
// localesDir is empty.
func NewManager(defaultLanguage string, localesDir string) (*Manager, error) {
	if strings.TrimSpace(localesDir) == "" {
		return NewEmbeddedManager(defaultLanguage)
	}
	return NewManagerFS(defaultLanguage, os.DirFS(localesDir), ".")
}

func NewEmbeddedManager(defaultLanguage string) (*Manager, error) {
	return NewManagerFS(defaultLanguage, embeddedLocales, "locales")
}

func NewManagerFS(defaultLanguage string, files fs.FS, localesDir string) (*Manager, error) {
	manager := &Manager{
		locales: map[string]map[string]string{},
	}

	entries, err := fs.ReadDir(files, localesDir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		language := strings.TrimSuffix(strings.ToLower(entry.Name()), path.Ext(entry.Name()))
		content, err := fs.ReadFile(files, path.Join(localesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}

		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}

		manager.locales[language] = messages
		manager.supported = append(manager.supported, language)
	}

	if len(manager.supported) == 0 {
		return nil, fmt.Errorf("no locales found in %s", localesDir)
	}
	if _, ok := manager.locales[LangTR]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangTR)
	}
	if _, ok := manager.locales[LangEN]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}

	sort.Strings(manager.supported)
	manager.defaultLanguage = LangTR
	if normalized := normalizeLanguageTag(defaultLanguage); manager.isSupported(normalized) {
		manager.defaultLanguage = normalized
	}
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := normalizeLanguageTag(raw)
	if manager.isSupported(normalized) {
		return normalized
	}
	return manager.defaultLanguage
}

// DetectFromAcceptLanguage picks the supported language with the highest
// q-weight. Ties keep header order; q=0 means "not acceptable".
func (manager *Manager) DetectFromAcceptLanguage(raw string) string {
	best := ""
	bestWeight := 0.0
	for _, part := range strings.Split(raw, ",") {
		tag, weight := parseLanguageRange(part)
		if weight <= bestWeight || !manager.isSupported(tag) {
			continue
		}
		best, bestWeight = tag, weight
	}
	if best == "" {
		return manager.defaultLanguage
	}
	return best
}

// Translate returns the message for key in language, then in the default
// language, then the key itself.
func (manager *Manager) Translate(language string, key string) string {
	if value := strings.TrimSpace(manager.locales[manager.NormalizeLanguage(language)][key]); value != "" {
		return value
	}
	if value := strings.TrimSpace(manager.locales[manager.defaultLanguage][key]); value != "" {
		return value
	}
	return key
}

// ErrorMessage localizes an API error code.
func (manager *Manager) ErrorMessage(language string, code string) string {
	return manager.Translate(language, "error."+code)
}

// ReasonMessage localizes an eligibility or scan reason code.
func (manager *Manager) ReasonMessage(language string, reason string) string {
	return manager.Translate(language, "reason."+reason)
}

// MealLabel is the display name of a meal type ("breakfast", "lunch", "none").
func (manager *Manager) MealLabel(language string, mealType string) string {
	return manager.Translate(language, "meal."+mealType)
}

func (manager *Manager) isSupported(language string) bool {
	if language == "" {
		return false
	}
	_, ok := manager.locales[language]
	return ok
}

func parseLanguageRange(raw string) (string, float64) {
	tag, params, _ := strings.Cut(strings.TrimSpace(raw), ";")
	tag = normalizeLanguageTag(tag)
	if tag == "" || tag == "*" {
		return "", 0
	}

	weight := 1.0
	for _, param := range strings.Split(params, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || strings.TrimSpace(name) != "q" {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return tag, 0
		}
		weight = parsed
	}
	return tag, weight
}

func normalizeLanguageTag(raw string) string {
	language := strings.ToLower(strings.TrimSpace(raw))
	if language == "" {
		return ""
	}
	language = strings.ReplaceAll(language, "_", "-")
	if separator := strings.Index(language, "-"); separator >= 0 {
		language = language[:separator]
	}
	return language
}
