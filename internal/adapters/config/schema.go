package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
type Kilnfile struct {
	Version    string              `yaml:"version"`
	Source     string              `yaml:"source"`
	Build      string              `yaml:"build"`
	Server     ServerDTO           `yaml:"server"`
	Tools      ToolsDTO            `yaml:"tools"`
	Collisions string              `yaml:"collisions"`
	Tasks      map[string]*TaskDTO `yaml:"tasks"`
	Watch      []WatchDTO          `yaml:"watch"`
}

// ServerDTO configures the dev server.
type ServerDTO struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ToolsDTO overrides the external encoder binaries.
type ToolsDTO struct {
	Sass   string `yaml:"sass"`
	Cwebp  string `yaml:"cwebp"`
	Oxipng string `yaml:"oxipng"`
	Cjpeg  string `yaml:"cjpeg"`
}

// TaskDTO represents a task definition in the configuration.
type TaskDTO struct {
	Transform string            `yaml:"transform"`
	Input     []string          `yaml:"input"`
	Exclude   []string          `yaml:"exclude"`
	Base      string            `yaml:"base"`
	Output    string            `yaml:"output"`
	Options   map[string]string `yaml:"options"`
	Cmd       []string          `yaml:"cmd"`
	DependsOn []string          `yaml:"dependsOn"`
	Profiles  []string          `yaml:"profiles"`
}

// WatchDTO binds a source pattern to the tasks it re-runs.
type WatchDTO struct {
	Pattern string   `yaml:"pattern"`
	Tasks   []string `yaml:"tasks"`
	Reload  string   `yaml:"reload"`
}
