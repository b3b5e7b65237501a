// Package labelfilter screens the free-text labels of a battle submission
// (scenario tags and hero names) for banned words before they are stored in
// history or broadcast on the live feed.
package labelfilter

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode determines how the filter handles violations
type Mode string

const (
	ModeReplace Mode = "REPLACE" // Mask banned words with asterisks
	ModeBlock   Mode = "BLOCK"   // Refuse the whole submission
)

// Config holds the label filter configuration.
type Config struct {
	Enabled     bool
	Mode        Mode
	BannedWords []string
}

// Result is the outcome of checking one label.
type Result struct {
	Filtered     string // the label, masked in REPLACE mode
	Violated     bool
	MatchedWords []string
}

// Filter matches banned words on word boundaries, ignoring case.
// A Filter is immutable once built and safe for concurrent use.
type Filter struct {
	enabled  bool
	mode     Mode
	patterns []*wordPattern
}

type wordPattern struct {
	word    string
	pattern *regexp.Regexp
}

// New builds a Filter. An unknown or empty mode means REPLACE.
func New(cfg Config) *Filter {
	f := &Filter{
		enabled:  cfg.Enabled,
		mode:     ModeReplace,
		patterns: make([]*wordPattern, 0, len(cfg.BannedWords)),
	}
	if Mode(strings.ToUpper(string(cfg.Mode))) == ModeBlock {
		f.mode = ModeBlock
	}

	for _, word := range cfg.BannedWords {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		f.patterns = append(f.patterns, &wordPattern{
			word:    word,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`),
		})
	}

	return f
}

// LoadWordList reads a YAML list of banned words, one per entry.
func LoadWordList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var words []string
	if err := yaml.Unmarshal(data, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// Check screens a single label.
func (f *Filter) Check(label string) Result {
	result := Result{Filtered: label, MatchedWords: []string{}}

	if f == nil || !f.enabled || len(f.patterns) == 0 {
		return result
	}

	for _, wp := range f.patterns {
		if !wp.pattern.MatchString(label) {
			continue
		}
		result.Violated = true
		result.MatchedWords = append(result.MatchedWords, wp.word)

		if f.mode == ModeReplace {
			result.Filtered = wp.pattern.ReplaceAllStringFunc(result.Filtered, func(match string) string {
				return strings.Repeat("*", len(match))
			})
		}
	}

	return result
}

// Clean applies the filter to every label in place. It returns the banned
// words found and false if the filter is in BLOCK mode and any label
// violated it, in which case no label is modified.
func (f *Filter) Clean(labels ...*string) ([]string, bool) {
	var matched []string
	results := make([]Result, len(labels))
	for i, l := range labels {
		results[i] = f.Check(*l)
		matched = append(matched, results[i].MatchedWords...)
	}

	if len(matched) > 0 && f.IsBlockMode() {
		return matched, false
	}
	for i, l := range labels {
		*l = results[i].Filtered
	}
	return matched, true
}

// IsEnabled returns whether the filter is enabled
func (f *Filter) IsEnabled() bool {
	return f != nil && f.enabled
}

// IsBlockMode returns true if the filter refuses violating submissions.
func (f *Filter) IsBlockMode() bool {
	return f != nil && f.mode == ModeBlock
}
