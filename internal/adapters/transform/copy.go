package transform

import (
	"context"

	"go.trai.ch/kiln/internal/core/ports"
)

// Copy copies inputs verbatim, keeping their path relative to the task base.
type Copy struct{}

// Apply copies every input through the sink.
func (c *Copy) Apply(ctx context.Context, req *ports.Request) error {
	for _, input := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := outputRel(req, input)
		if err != nil {
			return inputError(req, input, err)
		}
		if err := req.Sink.CopyFile(producer(req, input), rel, input); err != nil {
			return inputError(req, input, err)
		}
	}
	logf(req.Log, "copied %d files", len(req.Inputs))
	return nil
}
