package transform

import (
	"bytes"
	"context"
	"html/template"
	"os"

	"github.com/tdewolff/minify/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Markup renders HTML pages with html/template. The "partials" option is a
// glob of templates every page may include by their source-relative path.
type Markup struct {
	resolver ports.InputResolver
	minifier *minify.M
}

// PageData is the value pages are executed with.
type PageData struct {
	// Page is the source-relative path of the page being rendered.
	Page       string
	Profile    string
	Production bool
}

// Apply renders every input page. Production output is minified including inline CSS and JS.
func (m *Markup) Apply(ctx context.Context, req *ports.Request) error {
	partials, err := m.parsePartials(req)
	if err != nil {
		return err
	}

	for _, input := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := m.render(req, partials, input)
		if err != nil {
			return inputError(req, input, err)
		}
		rel, err := outputRel(req, input)
		if err != nil {
			return inputError(req, input, err)
		}
		if err := req.Sink.WriteFile(producer(req, input), rel, out); err != nil {
			return inputError(req, input, err)
		}
	}
	logf(req.Log, "rendered %d pages", len(req.Inputs))
	return nil
}

func (m *Markup) parsePartials(req *ports.Request) (*template.Template, error) {
	set := template.New("")
	pattern := req.Task.Option("partials", "")
	if pattern == "" {
		return set, nil
	}

	files, err := m.resolver.ResolveInputs([]string{pattern}, nil, req.Layout.SourceDir())
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		content, err := os.ReadFile(file) //nolint:gosec // resolved input
		if err != nil {
			return nil, inputError(req, file, zerr.Wrap(err, domain.ErrFileReadFailed.Error()))
		}
		if _, err := set.New(sourceRel(req.Layout, file)).Parse(string(content)); err != nil {
			return nil, inputError(req, file, err)
		}
	}
	return set, nil
}

func (m *Markup) render(req *ports.Request, partials *template.Template, input string) ([]byte, error) {
	content, err := os.ReadFile(input) //nolint:gosec // resolved input
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrFileReadFailed.Error())
	}

	set, err := partials.Clone()
	if err != nil {
		return nil, err
	}
	page := sourceRel(req.Layout, input)
	tmpl, err := set.New(page).Parse(string(content))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, PageData{
		Page:       page,
		Profile:    req.Profile.String(),
		Production: req.Profile.Minify(),
	}); err != nil {
		return nil, err
	}
	if !req.Profile.Minify() {
		return buf.Bytes(), nil
	}
	return m.minifier.Bytes(mediaHTML, buf.Bytes())
}
