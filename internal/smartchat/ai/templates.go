package ai

import (
	_ "embed"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatePack []byte

// TemplatePack holds the pre-authored reply variants for the deterministic
// responder, keyed by language code ("vi", "en").
type TemplatePack struct {
	Greetings map[Language][]string `yaml:"greetings"`
	Defaults  map[Language][]string `yaml:"defaults"`
	Apologies map[Language][]string `yaml:"apologies"`
}

// ParseTemplatePack decodes a YAML template pack and validates it. It is the
// canonical entry point for loading reply templates.
func ParseTemplatePack(data []byte) (*TemplatePack, error) {
	var pack TemplatePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse template pack: %w", err)
	}
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return &pack, nil
}

// DefaultTemplatePack loads the pack embedded in the binary. The embedded
// pack is validated by tests, so a failure here is a build defect.
func DefaultTemplatePack() *TemplatePack {
	pack, err := ParseTemplatePack(defaultTemplatePack)
	if err != nil {
		panic(fmt.Sprintf("embedded template pack invalid: %v", err))
	}
	return pack
}

// Validate checks the pack for structural correctness: every section must
// cover both languages with at least one variant.
func (p *TemplatePack) Validate() error {
	sections := map[string]map[Language][]string{
		"greetings": p.Greetings,
		"defaults":  p.Defaults,
		"apologies": p.Apologies,
	}
	for name, section := range sections {
		if section == nil {
			return fmt.Errorf("template pack: section %q is missing", name)
		}
		for _, lang := range []Language{LangVietnamese, LangEnglish} {
			variants := section[lang]
			if len(variants) == 0 {
				return fmt.Errorf("template pack: section %q has no %q variants", name, lang)
			}
			for i, v := range variants {
				if v == "" {
					return fmt.Errorf("template pack: section %q %q variant %d is empty", name, lang, i)
				}
			}
		}
	}
	return nil
}

// Greeting picks a greeting variant for lang using rnd.
func (p *TemplatePack) Greeting(lang Language, rnd *rand.Rand) string {
	return pick(p.Greetings[lang], rnd)
}

// Default picks a default-reply variant for lang using rnd.
func (p *TemplatePack) Default(lang Language, rnd *rand.Rand) string {
	return pick(p.Defaults[lang], rnd)
}

// Apology picks an apology variant for lang using rnd.
func (p *TemplatePack) Apology(lang Language, rnd *rand.Rand) string {
	return pick(p.Apologies[lang], rnd)
}

// pick selects a uniformly random variant. The rand source is injected so
// tests can seed it for deterministic output.
func pick(variants []string, rnd *rand.Rand) string {
	switch len(variants) {
	case 0:
		return ""
	case 1:
		return variants[0]
	}
	return variants[rnd.Intn(len(variants))]
}
