package dev

import (
	"bytes"
	"html/template"
	"os"

	"github.com/vango-dev/devstatic/internal/config"
	"github.com/vango-dev/devstatic/internal/errors"
	"github.com/vango-dev/devstatic/internal/rules"
)

// TemplateData is passed to every configured template.
type TemplateData struct {
	// Pattern is the rule pattern the template is bound to.
	Pattern string

	// Base is the configured base directory.
	Base string
}

// LoadTemplates turns the configured template files into render actions, in
// declaration order. Each file is parsed up front so syntax errors surface
// before any listener is bound, and parsed again on every render so edits
// show up on the next request.
func LoadTemplates(cfg *config.Config) ([]rules.Entry, error) {
	entries := make([]rules.Entry, 0, len(cfg.Templates))
	for _, e := range cfg.Templates {
		file := cfg.TemplatePath(e.Value)
		if _, err := parseTemplate(file); err != nil {
			return nil, errors.New(errors.CodeInvalidTemplate).
				WithDetail("template for \"" + e.Pattern + "\" (" + e.Value + ")").
				Wrap(err)
		}
		data := TemplateData{Pattern: e.Pattern, Base: cfg.Base}
		entries = append(entries, rules.Entry{
			Pattern: e.Pattern,
			Action:  rules.Render(templateRenderer(file, data)),
		})
	}
	return entries, nil
}

func templateRenderer(file string, data TemplateData) rules.RenderFunc {
	return func() ([]byte, error) {
		tmpl, err := parseTemplate(file)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func parseTemplate(file string) (*template.Template, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return template.New(file).Parse(string(src))
}
