package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"kabinet.io/kabinet/models"
)

func TestPodsLiveModel(t *testing.T) {
	events := make(chan tea.Msg)
	m := newPodsLiveModel(events)
	m.now = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }

	if m.Init() == nil {
		t.Fatal("Init() returned no command")
	}

	var model tea.Model = m
	var cmd tea.Cmd
	model, cmd = model.Update(podEventMsg(models.PodEvent{Create: &models.ListPod{ID: "pod-1", PodID: "container-a"}}))
	if cmd == nil {
		t.Error("event did not schedule the next listen")
	}
	model, _ = model.Update(podEventMsg(models.PodEvent{Create: &models.ListPod{ID: "pod-2", PodID: "container-b"}}))
	model, _ = model.Update(podEventMsg(models.PodEvent{Update: &models.ListPod{ID: "pod-1", PodID: "container-c"}}))

	view := model.View()
	for _, want := range []string{"Watching pods (3 events)", "pod-1  container-c  update", "pod-2  container-b  create", "15:04:05", "q to quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view does not contain %q:\n%s", want, view)
		}
	}
	if strings.Index(view, "pod-1") > strings.Index(view, "pod-2") {
		t.Errorf("rows are not sorted by id:\n%s", view)
	}

	model, cmd = model.Update(watchDoneMsg{err: errors.New("connection lost")})
	if cmd == nil {
		t.Error("end of watch did not quit")
	}
	final := model.(podsLiveModel)
	if !final.done || final.err == nil {
		t.Errorf("final model = done %v, err %v", final.done, final.err)
	}
	if view := final.View(); !strings.Contains(view, "Watch failed: connection lost") || strings.Contains(view, "q to quit") {
		t.Errorf("final view:\n%s", view)
	}
}

func TestPodsLiveModel_Quit(t *testing.T) {
	m := newPodsLiveModel(make(chan tea.Msg))

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q did not quit")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
		t.Error("unbound key returned a command")
	}
}

func TestListenEvents(t *testing.T) {
	events := make(chan tea.Msg, 1)
	events <- podEventMsg(models.PodEvent{Delete: ptr(models.ID("pod-1"))})
	close(events)

	if msg, ok := listenEvents(events)().(podEventMsg); !ok || models.PodEvent(msg).Kind() != models.PodEventDelete {
		t.Errorf("first message = %#v", msg)
	}
	if _, ok := listenEvents(events)().(watchDoneMsg); !ok {
		t.Error("closed channel did not end the watch")
	}
}

func ptr[T any](v T) *T { return &v }
