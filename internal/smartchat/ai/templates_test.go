package ai

import (
	"math/rand"
	"testing"
)

func TestDefaultTemplatePackValidates(t *testing.T) {
	pack := DefaultTemplatePack()
	if err := pack.Validate(); err != nil {
		t.Fatalf("embedded pack invalid: %v", err)
	}
}

func TestParseTemplatePackRejectsMissingSections(t *testing.T) {
	_, err := ParseTemplatePack([]byte("greetings:\n  vi:\n    - xin chào\n"))
	if err == nil {
		t.Fatal("expected validation error for a pack with missing sections")
	}
}

func TestTemplatePackPickIsDeterministicWithSeed(t *testing.T) {
	pack := DefaultTemplatePack()

	a := pack.Greeting(LangVietnamese, rand.New(rand.NewSource(7)))
	b := pack.Greeting(LangVietnamese, rand.New(rand.NewSource(7)))
	if a != b {
		t.Fatalf("same seed gave %q and %q", a, b)
	}
}

func TestTemplatePackCoversBothLanguages(t *testing.T) {
	pack := DefaultTemplatePack()
	rnd := rand.New(rand.NewSource(1))

	for _, lang := range []Language{LangVietnamese, LangEnglish} {
		if pack.Greeting(lang, rnd) == "" {
			t.Fatalf("empty greeting for %q", lang)
		}
		if pack.Default(lang, rnd) == "" {
			t.Fatalf("empty default for %q", lang)
		}
		if pack.Apology(lang, rnd) == "" {
			t.Fatalf("empty apology for %q", lang)
		}
	}
}
