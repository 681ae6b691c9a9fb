// Package config provides the configuration loader for kiln.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// SupportedVersion is the only kiln.yaml schema version understood by the loader.
const SupportedVersion = "1"

var transforms = []domain.TransformKind{
	domain.TransformNone,
	domain.TransformClean,
	domain.TransformCopy,
	domain.TransformStyle,
	domain.TransformMarkup,
	domain.TransformScript,
	domain.TransformImage,
	domain.TransformSVG,
	domain.TransformSprite,
	domain.TransformCommand,
}

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads kiln.yaml. path is either the file itself or a directory to search upward from.
// Without a config file the built-in pipeline rooted at path is returned.
func (l *Loader) Load(path string) (*domain.Project, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}
	configPath, ok, err := findConfiguration(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultProject(path)
	}

	var kf Kilnfile
	if err := readAndUnmarshalYAML(configPath, &kf); err != nil {
		return nil, zerr.With(err, "file", configPath)
	}
	project, err := l.buildProject(configPath, &kf)
	if err != nil {
		return nil, zerr.With(err, "file", configPath)
	}
	return project, nil
}

func findConfiguration(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	if !info.IsDir() {
		return path, true, nil
	}

	currentDir := path
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false, nil
		}
		currentDir = parentDir
	}
}

func (l *Loader) buildProject(configPath string, kf *Kilnfile) (*domain.Project, error) {
	if kf.Version != "" && kf.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s declares version %q, expected %q", domain.ConfigFileName, kf.Version, SupportedVersion))
	}

	root := filepath.Dir(configPath)
	project, err := DefaultProject(root)
	if err != nil {
		return nil, err
	}
	if kf.Source != "" {
		project.Layout.Source = kf.Source
	}
	if kf.Build != "" {
		project.Layout.Build = kf.Build
	}
	if err := project.Layout.CheckInsideRoot(project.Layout.BuildDir()); err != nil {
		return nil, zerr.With(err, "build", kf.Build)
	}
	if err := project.Layout.CheckSeparate(); err != nil {
		return nil, err
	}
	project.ConfigPath = configPath

	if kf.Server.Host != "" {
		project.Server.Host = kf.Server.Host
	}
	if kf.Server.Port != 0 {
		project.Server.Port = kf.Server.Port
	}
	project.Tools = mergeTools(project.Tools, kf.Tools)

	if project.Collisions, err = domain.ParseCollisionPolicy(kf.Collisions); err != nil {
		return nil, err
	}

	// Declared tasks replace the built-in pipeline, and its watch bindings with it.
	if len(kf.Tasks) > 0 {
		if project.Graph, err = buildGraph(root, kf.Tasks); err != nil {
			return nil, err
		}
		project.Watch = nil
	}
	if len(kf.Watch) > 0 {
		if project.Watch, err = buildWatch(kf.Watch); err != nil {
			return nil, err
		}
	}
	return project, nil
}

func buildGraph(root string, tasks map[string]*TaskDTO) (*domain.Graph, error) {
	g := domain.NewGraph()
	g.SetRoot(root)

	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		dto := tasks[name]
		if dto == nil {
			dto = &TaskDTO{}
		}
		for _, dep := range dto.DependsOn {
			if _, ok := tasks[dep]; !ok {
				err := zerr.With(domain.ErrMissingDependency, "missing_dependency", dep)
				return nil, zerr.With(err, "task", name)
			}
		}
		task, err := buildTask(name, dto)
		if err != nil {
			return nil, zerr.With(err, "task", name)
		}
		if err := g.AddTask(task); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func buildTask(name string, dto *TaskDTO) (*domain.Task, error) {
	kind := domain.TransformKind(dto.Transform)
	if !slices.Contains(transforms, kind) {
		return nil, zerr.With(domain.ErrUnknownTransform, "transform", dto.Transform)
	}
	if kind == domain.TransformCommand && len(dto.Cmd) == 0 {
		return nil, domain.ErrMissingCommand
	}

	profiles := make([]domain.Profile, 0, len(dto.Profiles))
	for _, p := range dto.Profiles {
		profile, err := domain.ParseProfile(p)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return &domain.Task{
		Name:         name,
		Transform:    kind,
		Inputs:       dto.Input,
		Excludes:     dto.Exclude,
		Base:         filepath.ToSlash(dto.Base),
		OutputDir:    filepath.ToSlash(dto.Output),
		Options:      dto.Options,
		Command:      dto.Cmd,
		Dependencies: dto.DependsOn,
		Profiles:     profiles,
	}, nil
}

func buildWatch(dtos []WatchDTO) ([]domain.WatchBinding, error) {
	bindings := make([]domain.WatchBinding, 0, len(dtos))
	for _, dto := range dtos {
		mode, err := domain.ParseReloadMode(dto.Reload)
		if err != nil {
			return nil, zerr.With(err, "pattern", dto.Pattern)
		}
		bindings = append(bindings, domain.WatchBinding{
			Pattern: dto.Pattern,
			Tasks:   dto.Tasks,
			Reload:  mode,
		})
	}
	return bindings, nil
}

// mergeTools overrides the defaults with configured binaries.
func mergeTools(base domain.Tools, dto ToolsDTO) domain.Tools {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&base.Sass, dto.Sass)
	override(&base.Cwebp, dto.Cwebp)
	override(&base.Oxipng, dto.Oxipng)
	override(&base.Cjpeg, dto.Cjpeg)
	return base
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by discovery or given by the user
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
