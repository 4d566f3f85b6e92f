package domain

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

type frontMatter struct {
	Title   string `yaml:"title"`
	Date    string `yaml:"date"`
	Summary string `yaml:"summary,omitempty"`
}

// ComposeFrontMatter wraps a markdown body in the yaml envelope the content
// repository expects.
func ComposeFrontMatter(title, summary, body string, date time.Time) string {
	fm := frontMatter{
		Title:   title,
		Date:    date.UTC().Format(time.RFC3339),
		Summary: summary,
	}
	// frontMatter has no unmarshalable fields, this cannot fail.
	meta, _ := yaml.Marshal(fm)
	return fmt.Sprintf("%s\n%s%s\n\n%s", frontMatterDelim, meta, frontMatterDelim, body)
}

// StripFrontMatter removes a leading "---"-delimited block, returning just the
// body. Content without an envelope is returned unchanged.
func StripFrontMatter(content string) string {
	if !strings.HasPrefix(content, frontMatterDelim) {
		return content
	}
	parts := strings.SplitN(content, frontMatterDelim, 3)
	if len(parts) < 3 {
		return content
	}
	return strings.TrimSpace(parts[2])
}
