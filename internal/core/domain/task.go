package domain

import "slices"

// TransformKind names the external transform a task invokes.
// The empty kind declares a group task that only orders its dependencies.
type TransformKind string

const (
	// TransformNone marks a group task.
	TransformNone TransformKind = ""
	// TransformClean removes the build root.
	TransformClean TransformKind = "clean"
	// TransformCopy copies files verbatim.
	TransformCopy TransformKind = "copy"
	// TransformStyle compiles stylesheets.
	TransformStyle TransformKind = "style"
	// TransformMarkup renders HTML pages from templates.
	TransformMarkup TransformKind = "markup"
	// TransformScript bundles scripts.
	TransformScript TransformKind = "script"
	// TransformImage re-encodes raster images.
	TransformImage TransformKind = "image"
	// TransformSVG optimizes vector images.
	TransformSVG TransformKind = "svg"
	// TransformSprite merges icons into a symbol sprite.
	TransformSprite TransformKind = "sprite"
	// TransformCommand runs an arbitrary command.
	TransformCommand TransformKind = "command"
)

// Task represents a named unit of build work.
// Inputs, Excludes and Base are relative to the source root; OutputDir is relative to the build root.
type Task struct {
	Name         string
	Transform    TransformKind
	Inputs       []string
	Excludes     []string
	Base         string
	OutputDir    string
	Options      map[string]string
	Command      []string
	Dependencies []string
	Profiles     []Profile
}

// ActiveIn reports whether the task participates in the given profile.
// A task without profiles is active in every profile.
func (t *Task) ActiveIn(p Profile) bool {
	return len(t.Profiles) == 0 || slices.Contains(t.Profiles, p)
}

// Option returns the named transform option or def when unset.
func (t *Task) Option(key, def string) string {
	if v, ok := t.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// IsGroup reports whether the task has no transform of its own.
func (t *Task) IsGroup() bool {
	return t.Transform == TransformNone
}

// clone returns a deep copy so a registered task cannot be mutated through the caller's value.
func (t *Task) clone() Task {
	c := *t
	c.Inputs = slices.Clone(t.Inputs)
	c.Excludes = slices.Clone(t.Excludes)
	c.Command = slices.Clone(t.Command)
	c.Dependencies = slices.Clone(t.Dependencies)
	c.Profiles = slices.Clone(t.Profiles)
	if t.Options != nil {
		c.Options = make(map[string]string, len(t.Options))
		for k, v := range t.Options {
			c.Options[k] = v
		}
	}
	return c
}
