// Package channels maps raw upstream traffic mediums onto the dashboard
// category set using an embedded list of PCRE rules.
package channels

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"

	"minidash/internal/rows"
)

//go:embed rules/mediums.yml
var ruleFiles embed.FS

// Rule maps a medium pattern to a category
type Rule struct {
	Regex    string        `yaml:"regex"`
	Category rows.Category `yaml:"category"`
}

type compiledRule struct {
	regex    *pcre.Regexp
	category rows.Category
}

// Classifier assigns categories to medium strings
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles rules in order. Patterns are matched case-insensitively.
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		if !rows.IsValidCategory(r.Category) {
			return nil, fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
		re, err := pcre.Compile("(?i)" + r.Regex)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid pattern %q: %w", i, r.Regex, err)
		}
		c.rules = append(c.rules, compiledRule{regex: re, category: r.Category})
	}
	return c, nil
}

// LoadRules parses a YAML rule list
func LoadRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse medium rules: %w", err)
	}
	return rules, nil
}

// Classify returns the category of medium, falling back to the default category
func (c *Classifier) Classify(medium string) rows.Category {
	medium = strings.TrimSpace(medium)
	if medium == "" {
		return rows.DefaultCategory
	}
	for _, r := range c.rules {
		if r.regex.MatchString(medium) {
			return r.category
		}
	}
	return rows.DefaultCategory
}

var (
	defaultClassifier *Classifier
	defaultErr        error
	once              sync.Once
)

// Default returns the classifier built from the embedded rule file
func Default() (*Classifier, error) {
	once.Do(func() {
		data, err := ruleFiles.ReadFile("rules/mediums.yml")
		if err != nil {
			defaultErr = err
			return
		}
		rules, err := LoadRules(data)
		if err != nil {
			defaultErr = err
			return
		}
		defaultClassifier, defaultErr = NewClassifier(rules)
	})
	return defaultClassifier, defaultErr
}
