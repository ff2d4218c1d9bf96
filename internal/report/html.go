package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

//go:embed template.html
var indexTemplate string

func writeIndex(path string, data *Data) error {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return fmt.Errorf("parsing index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering index: %w", err)
	}

	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	out, err := m.String("text/html", buf.String())
	if err != nil {
		return fmt.Errorf("minifying index: %w", err)
	}

	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
