package i18n

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

func TestLocaleKeysParity(t *testing.T) {
	en := mustLoadLocaleMessages(t, "en")
	tr := mustLoadLocaleMessages(t, "tr")

	missingInTR := missingKeys(en, tr)
	missingInEN := missingKeys(tr, en)

	if len(missingInTR) == 0 && len(missingInEN) == 0 {
		return
	}

	if len(missingInTR) > 0 {
		t.Errorf("keys missing in tr locale: %s", strings.Join(missingInTR, ", "))
	}
	if len(missingInEN) > 0 {
		t.Errorf("keys missing in en locale: %s", strings.Join(missingInEN, ", "))
	}
}

func mustLoadLocaleMessages(t *testing.T, language string) map[string]string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve test file path: runtime.Caller failed")
	}
	localesDir := filepath.Join(filepath.Dir(thisFile), "locales")
	localePath := filepath.Join(localesDir, language+".json")

	content, err := os.ReadFile(localePath)
	if err != nil {
		t.Fatalf("read locale %q: %v", language, err)
	}

	messages := map[string]string{}
	if err := json.Unmarshal(content, &messages); err != nil {
		t.Fatalf("parse locale %q: %v", language, err)
	}
	if len(messages) == 0 {
		t.Fatalf("locale %q is empty", language)
	}

	return messages
}

func missingKeys(source map[string]string, target map[string]string) []string {
	missing := make([]string, 0)
	for key := range source {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func TestEveryReasonHasAMessage(t *testing.T) {
	reasons := []string{
		"user_not_found", "user_inactive", "user_not_approved", "outside_meal_window",
		"already_taken", "quota_exhausted", "token_expired", "token_tampered",
		"token_malformed", "rate_limited", "device_mismatch",
	}
	for _, language := range []string{"en", "tr"} {
		messages := mustLoadLocaleMessages(t, language)
		for _, reason := range reasons {
			if strings.TrimSpace(messages["reason."+reason]) == "" {
				t.Errorf("locale %s has no message for reason %s", language, reason)
			}
		}
	}
}

func TestEmbeddedManagerDetectsLanguage(t *testing.T) {
	manager, err := NewEmbeddedManager("tr")
	if err != nil {
		t.Fatalf("NewEmbeddedManager() unexpected error: %v", err)
	}

	if got := manager.DetectFromAcceptLanguage("de-DE,en-US;q=0.8"); got != LangEN {
		t.Fatalf("expected en, got %q", got)
	}
	if got := manager.DetectFromAcceptLanguage("fr"); got != LangTR {
		t.Fatalf("expected default tr, got %q", got)
	}
	if got := manager.Translate("en", "reason.already_taken"); got != "This meal was already taken today." {
		t.Fatalf("unexpected translation %q", got)
	}
	if got := manager.Translate("tr", "missing.key"); got != "missing.key" {
		t.Fatalf("expected missing key to echo, got %q", got)
	}
}

func TestDetectFromAcceptLanguageHonorsWeights(t *testing.T) {
	manager, err := NewEmbeddedManager("en")
	if err != nil {
		t.Fatalf("NewEmbeddedManager() unexpected error: %v", err)
	}

	tests := []struct {
		header string
		want   string
	}{
		{header: "en;q=0.4, tr-TR;q=0.9", want: LangTR},
		{header: "tr;q=0", want: LangEN},
		{header: "*", want: LangEN},
		{header: "tr_TR", want: LangTR},
		{header: "tr;q=abc, en", want: LangEN},
	}
	for _, tt := range tests {
		if got := manager.DetectFromAcceptLanguage(tt.header); got != tt.want {
			t.Errorf("DetectFromAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDomainLookupsFallBackToDefaultLanguage(t *testing.T) {
	manager, err := NewEmbeddedManager("tr")
	if err != nil {
		t.Fatalf("NewEmbeddedManager() unexpected error: %v", err)
	}

	if got := manager.ReasonMessage("xx", "already_taken"); got != "Bu öğün bugün zaten alındı." {
		t.Fatalf("unexpected reason message %q", got)
	}
	if got := manager.ErrorMessage("en", "no_such_code"); got != "error.no_such_code" {
		t.Fatalf("expected unknown code to echo, got %q", got)
	}
	if got := manager.MealLabel("en", "breakfast"); got == "meal.breakfast" {
		t.Fatal("expected a breakfast label")
	}
}

func TestNewManagerRejectsUnknownDefault(t *testing.T) {
	manager, err := NewManager("xx", "")
	if err != nil {
		t.Fatalf("NewManager() unexpected error: %v", err)
	}
	if manager.DefaultLanguage() != LangTR {
		t.Fatalf("expected tr fallback, got %q", manager.DefaultLanguage())
	}
}
