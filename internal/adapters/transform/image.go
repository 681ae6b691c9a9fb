package transform

import (
	"context"
	"path"
	"runtime"
	"strconv"
	"strings"

	"go.trai.ch/kiln/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// ImageMode selects how hard the image transform works.
type ImageMode string

const (
	// ImageOptimize recompresses originals and emits WebP copies.
	ImageOptimize ImageMode = "optimize"
	// ImageFast only emits quickly encoded WebP copies.
	ImageFast ImageMode = "fast"
)

// WebPOptions configures cwebp.
type WebPOptions struct {
	Quality int
	Method  int
}

// PNGOptions configures oxipng.
type PNGOptions struct {
	Level int
}

// JPEGOptions configures cjpeg.
type JPEGOptions struct {
	Quality     int
	Progressive bool
}

// EncodeOptions lists the encoders that run for one image. Nil fields are skipped.
type EncodeOptions struct {
	WebP *WebPOptions
	PNG  *PNGOptions
	JPEG *JPEGOptions
}

// Empty reports whether no encoder runs.
func (o EncodeOptions) Empty() bool {
	return o.WebP == nil && o.PNG == nil && o.JPEG == nil
}

// EncodePolicy decides the encoders for the image at rel, a slash path.
// Favicons never get a WebP copy.
func EncodePolicy(mode ImageMode, rel string) EncodeOptions {
	favicon := path.Base(path.Dir(rel)) == "favicons"
	ext := strings.ToLower(path.Ext(rel))

	var opts EncodeOptions
	switch mode {
	case ImageFast:
		if !favicon {
			opts.WebP = &WebPOptions{Quality: 75, Method: 0}
		}
	default:
		if !favicon {
			opts.WebP = &WebPOptions{Quality: 90, Method: 6}
		}
		switch ext {
		case ".png":
			opts.PNG = &PNGOptions{Level: 6}
		case ".jpg", ".jpeg":
			opts.JPEG = &JPEGOptions{Quality: 80, Progressive: true}
		}
	}
	return opts
}

// Image re-encodes raster images through the configured encoder binaries.
type Image struct {
	executor ports.Executor
}

// Apply encodes inputs concurrently, at most one per CPU.
func (i *Image) Apply(ctx context.Context, req *ports.Request) error {
	mode := ImageMode(req.Task.Option("mode", string(ImageOptimize)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, input := range req.Inputs {
		g.Go(func() error {
			if err := i.encode(ctx, req, mode, input); err != nil {
				return inputError(req, input, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logf(req.Log, "encoded %d images (%s)", len(req.Inputs), mode)
	return nil
}

func (i *Image) encode(ctx context.Context, req *ports.Request, mode ImageMode, input string) error {
	rel, err := outputRel(req, input)
	if err != nil {
		return err
	}
	opts := EncodePolicy(mode, sourceRel(req.Layout, input))
	p := producer(req, input)

	var recompressed []string
	switch {
	case opts.PNG != nil:
		recompressed = []string{req.Tools.Oxipng, "-o", strconv.Itoa(opts.PNG.Level), "--strip", "safe", "--stdout", input}
	case opts.JPEG != nil:
		recompressed = []string{req.Tools.Cjpeg, "-quality", strconv.Itoa(opts.JPEG.Quality), "-optimize"}
		if opts.JPEG.Progressive {
			recompressed = append(recompressed, "-progressive")
		}
		recompressed = append(recompressed, input)
	}
	if recompressed != nil {
		data, err := i.executor.Output(ctx, ports.Command{Args: recompressed, Dir: req.Layout.Root, Env: toolEnv(req.Layout)}, req.Log)
		if err != nil {
			return err
		}
		if err := req.Sink.WriteFile(p, rel, data); err != nil {
			return err
		}
	}

	if opts.WebP != nil {
		args := []string{req.Tools.Cwebp, "-quiet", "-q", strconv.Itoa(opts.WebP.Quality), "-m", strconv.Itoa(opts.WebP.Method), input, "-o", "-"}
		data, err := i.executor.Output(ctx, ports.Command{Args: args, Dir: req.Layout.Root, Env: toolEnv(req.Layout)}, req.Log)
		if err != nil {
			return err
		}
		if err := req.Sink.WriteFile(p, withExt(rel, ".webp"), data); err != nil {
			return err
		}
	}
	return nil
}
