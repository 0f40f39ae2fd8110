package core

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSubjectTemplates are the built-in subject templates
var DefaultSubjectTemplates = []string{
	"Kunde möchte Bestellung {{ Bestellnummer }} stornieren.",
	"Ein Käufer möchte einen Kauf abbrechen",
}

// DefaultBodyTemplates are the built-in body templates
var DefaultBodyTemplates = []string{
	"Kunde möchte Bestellung {{ Bestellnummer }}  stornieren.",
	"Käufer: {{ Käufer }}",
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\p{L}\p{N}_]+)\s*\}\}`)

// compiledTemplate is a template turned into a regex; group i+1 captures vars[i]
type compiledTemplate struct {
	source string
	re     *regexp.Regexp
	vars   []string
}

// TemplateExtractor pulls named values such as order numbers out of messages
// that follow known notification templates
type TemplateExtractor struct {
	subject []compiledTemplate
	body    []compiledTemplate
}

// NewTemplateExtractor compiles the subject and body templates
func NewTemplateExtractor(subjectTemplates, bodyTemplates []string) (*TemplateExtractor, error) {
	subject, err := compileTemplates(subjectTemplates)
	if err != nil {
		return nil, err
	}
	body, err := compileTemplates(bodyTemplates)
	if err != nil {
		return nil, err
	}
	return &TemplateExtractor{subject: subject, body: body}, nil
}

func compileTemplates(templates []string) ([]compiledTemplate, error) {
	out := make([]compiledTemplate, 0, len(templates))
	for _, t := range templates {
		if strings.TrimSpace(t) == "" {
			continue
		}
		ct, err := compileTemplate(t)
		if err != nil {
			return nil, fmt.Errorf("invalid template %q: %w", t, err)
		}
		out = append(out, ct)
	}
	return out, nil
}

// compileTemplate quotes the literal parts of the template and replaces every
// placeholder with a capture group typed by the variable name
func compileTemplate(template string) (compiledTemplate, error) {
	var (
		sb   strings.Builder
		vars []string
		last int
	)
	sb.WriteString(`(?im)`)
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		name := template[loc[2]:loc[3]]
		sb.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		sb.WriteString("(" + variablePattern(name) + ")")
		vars = append(vars, name)
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(template[last:]))

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return compiledTemplate{}, err
	}
	return compiledTemplate{source: template, re: re, vars: vars}, nil
}

func variablePattern(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "nummer") || strings.Contains(lower, "id"):
		return `[A-Za-z0-9\-]+`
	case strings.Contains(lower, "betrag") || strings.Contains(lower, "preis"):
		return `[0-9]+[,.]?[0-9]*\s*[€$£]?`
	case strings.Contains(lower, "datum"):
		return `\d{1,2}\.\d{1,2}\.\d{2,4}|\d{4}-\d{2}-\d{2}`
	case strings.Contains(lower, "name") || strings.Contains(lower, "käufer"):
		return `[A-Za-zÄÖÜäöüß \t]+`
	default:
		return `\S+`
	}
}

// Extract returns the variables of every template occurrence in subject and
// body. Later occurrences overwrite earlier ones; nil when nothing matched.
func (e *TemplateExtractor) Extract(subject, body string) map[string]string {
	var vars map[string]string
	collect := func(text string, templates []compiledTemplate) {
		for _, t := range templates {
			for _, m := range t.re.FindAllStringSubmatch(text, -1) {
				if vars == nil {
					vars = make(map[string]string)
				}
				for i, name := range t.vars {
					vars[name] = strings.TrimSpace(m[i+1])
				}
			}
		}
	}
	collect(subject, e.subject)
	collect(body, e.body)
	return vars
}

// HasTemplates reports whether any template is configured
func (e *TemplateExtractor) HasTemplates() bool {
	return e != nil && len(e.subject)+len(e.body) > 0
}
