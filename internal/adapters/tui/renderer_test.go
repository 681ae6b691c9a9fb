package tui_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/kiln/internal/adapters/tui"
)

func newTestRenderer(model *tui.Model) *tui.Renderer {
	return tui.NewRenderer(
		model,
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
}

func TestRenderer_Lifecycle(t *testing.T) {
	renderer := newTestRenderer(tui.NewModel(io.Discard))

	if err := renderer.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := renderer.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := renderer.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestRenderer_ForwardsEvents(t *testing.T) {
	model := tui.NewModel(io.Discard)
	renderer := newTestRenderer(model)

	if err := renderer.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	now := time.Now()
	renderer.OnPlanEmit([]string{"clean", "styles"}, map[string][]string{"styles": {"clean"}}, []string{"styles"})
	renderer.OnTaskStart("1", "", "clean", now)
	renderer.OnTaskLog("1", []byte("removed build\n"))
	renderer.OnTaskComplete("1", now, nil)
	renderer.OnTaskStart("2", "", "styles", now)
	renderer.OnTaskComplete("2", now, errors.New("sass failed"))

	// Messages are processed in order, so the model is settled once Quit is handled.
	_ = renderer.Stop()
	if err := renderer.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := model.TaskMap["clean"].Status; got != tui.StatusDone {
		t.Errorf("clean status = %v, want %v", got, tui.StatusDone)
	}
	if got := model.TaskMap["styles"].Status; got != tui.StatusError {
		t.Errorf("styles status = %v, want %v", got, tui.StatusError)
	}
	if got := model.TaskMap["clean"].Logs.String(); got != "removed build\n" {
		t.Errorf("clean logs = %q", got)
	}
}
