package config

import "go.trai.ch/kiln/internal/core/domain"

// Names of the built-in entry points.
const (
	BuildTask = "build"
	DevTask   = "dev"
)

var (
	prodOnly = []domain.Profile{domain.ProfileProduction}
	devOnly  = []domain.Profile{domain.ProfileDevelopment}
)

// DefaultTasks returns the built-in pipeline. Every writer depends on clean;
// build and dev group the writers of their profile.
func DefaultTasks() []*domain.Task {
	clean := []string{"clean"}
	return []*domain.Task{
		{Name: "clean", Transform: domain.TransformClean},
		{
			Name:         "copy",
			Transform:    domain.TransformCopy,
			Inputs:       []string{"fonts/**/*.{woff,woff2}", "*.ico", "*.webmanifest"},
			Dependencies: clean,
		},
		{
			Name:         "styles",
			Transform:    domain.TransformStyle,
			Inputs:       []string{"styles/style.scss"},
			Base:         "styles",
			OutputDir:    "css",
			Dependencies: clean,
		},
		{
			Name:         "html",
			Transform:    domain.TransformMarkup,
			Inputs:       []string{"*.html"},
			Options:      map[string]string{"partials": "partials/**/*.html"},
			Dependencies: clean,
		},
		{
			Name:         "scripts",
			Transform:    domain.TransformScript,
			Inputs:       []string{"js/main.js"},
			Base:         "js",
			OutputDir:    "js",
			Dependencies: clean,
		},
		{
			Name:         "optimizeImages",
			Transform:    domain.TransformImage,
			Inputs:       []string{"images/**/*.{png,jpg}"},
			Base:         "images",
			OutputDir:    "images",
			Options:      map[string]string{"mode": "optimize"},
			Dependencies: clean,
			Profiles:     prodOnly,
		},
		{
			Name:         "optimizeSvg",
			Transform:    domain.TransformSVG,
			Inputs:       []string{"images/**/*.svg"},
			Excludes:     []string{"images/icons/**"},
			Base:         "images",
			OutputDir:    "images",
			Dependencies: clean,
		},
		{
			Name:         "sprite",
			Transform:    domain.TransformSprite,
			Inputs:       []string{"images/icons/*.svg"},
			Base:         "images/icons",
			OutputDir:    "images",
			Dependencies: clean,
		},
		{
			// SVGs are left to optimizeSvg so the two never write the same path.
			Name:         "copyImages",
			Transform:    domain.TransformCopy,
			Inputs:       []string{"images/**/*.{png,jpg}"},
			Excludes:     []string{"images/icons/**"},
			Base:         "images",
			OutputDir:    "images",
			Dependencies: clean,
			Profiles:     devOnly,
		},
		{
			Name:         "fastWebp",
			Transform:    domain.TransformImage,
			Inputs:       []string{"images/**/*.{png,jpg}"},
			Excludes:     []string{"images/favicons/**"},
			Base:         "images",
			OutputDir:    "images",
			Options:      map[string]string{"mode": "fast"},
			Dependencies: clean,
			Profiles:     devOnly,
		},
		{
			Name:         BuildTask,
			Dependencies: []string{"copy", "styles", "html", "scripts", "optimizeImages", "optimizeSvg", "sprite"},
			Profiles:     prodOnly,
		},
		{
			Name:         DevTask,
			Dependencies: []string{"copy", "styles", "html", "scripts", "optimizeSvg", "copyImages", "fastWebp", "sprite"},
			Profiles:     devOnly,
		},
	}
}

// DefaultWatch returns the bindings used by dev sessions of the built-in pipeline.
func DefaultWatch() []domain.WatchBinding {
	return []domain.WatchBinding{
		{Pattern: "styles/**/*.scss", Tasks: []string{"styles"}, Reload: domain.ReloadStyles},
		{Pattern: "js/**/*.js", Tasks: []string{"scripts"}, Reload: domain.ReloadPage},
		{Pattern: "**/*.html", Tasks: []string{"html"}, Reload: domain.ReloadPage},
	}
}

// DefaultProject returns the built-in pipeline rooted at root.
func DefaultProject(root string) (*domain.Project, error) {
	g := domain.NewGraph()
	g.SetRoot(root)
	for _, t := range DefaultTasks() {
		if err := g.AddTask(t); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &domain.Project{
		Layout:     domain.DefaultLayout(root),
		Graph:      g,
		Watch:      DefaultWatch(),
		Server:     domain.ServerConfig{Host: domain.DefaultHost, Port: domain.DefaultPort},
		Tools:      domain.DefaultTools(),
		Collisions: domain.CollisionError,
	}, nil
}
