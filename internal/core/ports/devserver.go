package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Reloader pushes live-reload signals to connected browsers.
//
//go:generate mockgen -source=devserver.go -destination=mocks/mock_devserver.go -package=mocks
type Reloader interface {
	// Reload tells browsers to refresh according to mode.
	Reload(mode domain.ReloadMode)
	// NotifyError shows a build failure in connected browsers.
	NotifyError(err error)
}

// DevServer serves the build directory with live reload.
type DevServer interface {
	Reloader
	// Serve blocks until ctx is canceled or the listener fails.
	Serve(ctx context.Context, root string, cfg domain.ServerConfig) error
}
