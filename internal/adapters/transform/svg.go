package transform

import (
	"context"
	"os"

	"github.com/tdewolff/minify/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// SVG minifies vector images.
type SVG struct {
	minifier *minify.M
}

// Apply writes a minified copy of every input.
func (s *SVG) Apply(ctx context.Context, req *ports.Request) error {
	for _, input := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := minifyFile(s.minifier, input)
		if err != nil {
			return inputError(req, input, err)
		}
		rel, err := outputRel(req, input)
		if err != nil {
			return inputError(req, input, err)
		}
		if err := req.Sink.WriteFile(producer(req, input), rel, data); err != nil {
			return inputError(req, input, err)
		}
	}
	logf(req.Log, "minified %d svg files", len(req.Inputs))
	return nil
}

func minifyFile(m *minify.M, file string) ([]byte, error) {
	content, err := os.ReadFile(file) //nolint:gosec // resolved input
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrFileReadFailed.Error())
	}
	return m.Bytes(mediaSVG, content)
}
