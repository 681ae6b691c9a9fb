package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm))
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	return config.NewLoader(mocks.NewMockLogger(ctrl))
}

func TestLoader_DefaultsWithoutConfig(t *testing.T) {
	root := t.TempDir()

	project, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Empty(t, project.ConfigPath)
	assert.Equal(t, domain.DefaultLayout(root), project.Layout)
	assert.Equal(t, domain.ServerConfig{Host: "localhost", Port: 3000}, project.Server)
	assert.Equal(t, domain.DefaultTools(), project.Tools)
	assert.Equal(t, domain.CollisionError, project.Collisions)
	assert.Equal(t, config.DefaultWatch(), project.Watch)
	assert.Equal(t, root, project.Graph.Root())

	build, err := project.Graph.ForProfile(domain.ProfileProduction).Resolve([]string{config.BuildTask})
	require.NoError(t, err)
	assert.Equal(t, "clean", build[0])
	assert.Equal(t, config.BuildTask, build[len(build)-1])
	assert.ElementsMatch(t, []string{
		"clean", "copy", "html", "optimizeImages", "optimizeSvg", "scripts", "sprite", "styles", "build",
	}, build)

	dev, err := project.Graph.ForProfile(domain.ProfileDevelopment).Resolve([]string{config.DevTask})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"clean", "copy", "copyImages", "fastWebp", "html", "optimizeSvg", "scripts", "sprite", "styles", "dev",
	}, dev)
}

func TestDefaultTasks_WritersDependOnClean(t *testing.T) {
	for _, task := range config.DefaultTasks() {
		if task.Name == "clean" || task.IsGroup() {
			continue
		}
		assert.Equal(t, []string{"clean"}, task.Dependencies, task.Name)
	}
}

func TestDefaultTasks_FastWebpSkipsFavicons(t *testing.T) {
	for _, task := range config.DefaultTasks() {
		if task.Name == "fastWebp" {
			assert.Contains(t, task.Excludes, "images/favicons/**")
			assert.Equal(t, "fast", task.Option("mode", ""))
			return
		}
	}
	t.Fatal("fastWebp not declared")
}

func TestLoader_DiscoversConfigUpward(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `
version: "1"
source: src
build: dist
server:
  port: 8080
tools:
  sass: /opt/sass/sass
collisions: overwrite
`)
	nested := filepath.Join(root, "src", "styles")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	project, err := newLoader(t).Load(nested)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, domain.ConfigFileName), project.ConfigPath)
	assert.Equal(t, domain.Layout{Root: root, Source: "src", Build: "dist"}, project.Layout)
	assert.Equal(t, domain.ServerConfig{Host: "localhost", Port: 8080}, project.Server)
	assert.Equal(t, "/opt/sass/sass", project.Tools.Sass)
	assert.Equal(t, "cwebp", project.Tools.Cwebp)
	assert.Equal(t, domain.CollisionOverwrite, project.Collisions)

	_, ok := project.Graph.GetTask("styles")
	assert.True(t, ok, "built-in pipeline kept without tasks")
	assert.Equal(t, config.DefaultWatch(), project.Watch)
}

func TestLoader_ExplicitFile(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, "site.yaml", `
tasks:
  stamp:
    transform: command
    cmd: ["date"]
`)

	project, err := newLoader(t).Load(filepath.Join(root, "site.yaml"))
	require.NoError(t, err)
	assert.Equal(t, root, project.Layout.Root)
	assert.Equal(t, 1, project.Graph.TaskCount())
}

func TestLoader_RelativePathsResolveRoot(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `source: src`)
	t.Chdir(root)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	for _, path := range []string{".", domain.ConfigFileName} {
		project, err := newLoader(t).Load(path)
		require.NoError(t, err, path)

		assert.True(t, filepath.IsAbs(project.Layout.Root), path)
		got, err := filepath.EvalSymlinks(project.Layout.Root)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
		assert.True(t, filepath.IsAbs(project.ConfigPath), path)
	}
}

func TestLoader_DefaultsUseAbsoluteRoot(t *testing.T) {
	t.Chdir(t.TempDir())

	project, err := newLoader(t).Load(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(project.Layout.Root))
	assert.True(t, filepath.IsAbs(project.Graph.Root()))
}

func TestLoader_CustomTasks(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `
version: "1"
tasks:
  clean:
    transform: clean
  styles:
    transform: style
    input: ["styles/*.scss"]
    exclude: ["styles/_*.scss"]
    base: styles
    output: css
    options:
      load-path: styles/vendor
    dependsOn: [clean]
  icons:
    transform: sprite
    input: ["icons/*.svg"]
    base: icons
    output: img
    dependsOn: [clean]
    profiles: [prod]
  site:
    dependsOn: [styles, icons]
watch:
  - pattern: "styles/**/*.scss"
    tasks: [styles]
    reload: css
`)

	project, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, 4, project.Graph.TaskCount())
	styles, ok := project.Graph.GetTask("styles")
	require.True(t, ok)
	assert.Equal(t, domain.TransformStyle, styles.Transform)
	assert.Equal(t, []string{"styles/*.scss"}, styles.Inputs)
	assert.Equal(t, []string{"styles/_*.scss"}, styles.Excludes)
	assert.Equal(t, "styles", styles.Base)
	assert.Equal(t, "css", styles.OutputDir)
	assert.Equal(t, "styles/vendor", styles.Option("load-path", ""))
	assert.Equal(t, []string{"clean"}, styles.Dependencies)

	icons, _ := project.Graph.GetTask("icons")
	assert.Equal(t, []domain.Profile{domain.ProfileProduction}, icons.Profiles)

	site, _ := project.Graph.GetTask("site")
	assert.True(t, site.IsGroup())

	assert.Equal(t, []domain.WatchBinding{
		{Pattern: "styles/**/*.scss", Tasks: []string{"styles"}, Reload: domain.ReloadStyles},
	}, project.Watch)
}

func TestLoader_CustomTasksDropDefaultWatch(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `
tasks:
  clean:
    transform: clean
`)

	project, err := newLoader(t).Load(root)
	require.NoError(t, err)
	assert.Empty(t, project.Watch)
}

func TestLoader_VersionMismatchWarns(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `version: "2"`)

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).Times(1)

	_, err := config.NewLoader(logger).Load(root)
	require.NoError(t, err)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{
			name:    "malformed yaml",
			content: "tasks: [unterminated",
			want:    domain.ErrConfigParseFailed,
		},
		{
			name: "missing dependency",
			content: `
tasks:
  styles:
    transform: style
    dependsOn: [clean]
`,
			want: domain.ErrMissingDependency,
		},
		{
			name: "cycle",
			content: `
tasks:
  a:
    dependsOn: [b]
  b:
    dependsOn: [a]
`,
			want: domain.ErrCyclicDependency,
		},
		{
			name: "unknown transform",
			content: `
tasks:
  styles:
    transform: less
`,
			want: domain.ErrUnknownTransform,
		},
		{
			name: "command without cmd",
			content: `
tasks:
  stamp:
    transform: command
`,
			want: domain.ErrMissingCommand,
		},
		{
			name: "invalid profile",
			content: `
tasks:
  styles:
    transform: style
    profiles: [staging]
`,
			want: domain.ErrInvalidProfile,
		},
		{
			name: "invalid task name",
			content: `
tasks:
  "bad name":
    transform: clean
`,
			want: domain.ErrInvalidTaskName,
		},
		{
			name:    "invalid collision policy",
			content: `collisions: merge`,
			want:    domain.ErrInvalidCollisionPolicy,
		},
		{
			name: "invalid reload mode",
			content: `
watch:
  - pattern: "*.html"
    tasks: [html]
    reload: hot
`,
			want: domain.ErrInvalidReloadMode,
		},
		{
			name:    "build dir is project root",
			content: `build: .`,
			want:    domain.ErrOutputPathOutsideRoot,
		},
		{
			name:    "build dir escapes project root",
			content: `build: ../elsewhere`,
			want:    domain.ErrOutputPathOutsideRoot,
		},
		{
			name:    "build dir is source dir",
			content: `build: source`,
			want:    domain.ErrLayoutOverlap,
		},
		{
			name:    "build dir inside source dir",
			content: `build: source/dist`,
			want:    domain.ErrLayoutOverlap,
		},
		{
			name: "source dir inside build dir",
			content: `
source: build/src
build: build
`,
			want: domain.ErrLayoutOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			createFile(t, root, domain.ConfigFileName, tt.content)

			_, err := newLoader(t).Load(root)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want.Error())
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := newLoader(t).Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrConfigReadFailed.Error())
}
