package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the configuration from cwd upward and returns the project.
	// Without a config file the built-in pipeline rooted at cwd is returned.
	Load(cwd string) (*domain.Project, error)
}
