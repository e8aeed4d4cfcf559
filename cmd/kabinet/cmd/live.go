package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"kabinet.io/kabinet/models"
)

type podEventMsg models.PodEvent

type watchDoneMsg struct {
	err error
}

// listenEvents waits for the next message of a running watch.
func listenEvents(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return watchDoneMsg{}
		}
		return msg
	}
}

type podRow struct {
	podID string
	last  models.PodEventKind
	at    time.Time
}

// podsLiveModel renders the pods seen by a watch as a table that is
// redrawn on every event.
type podsLiveModel struct {
	spinner spinner.Model
	events  <-chan tea.Msg
	now     func() time.Time

	rows map[models.ID]podRow
	seen int
	done bool
	err  error
}

func newPodsLiveModel(events <-chan tea.Msg) podsLiveModel {
	return podsLiveModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		events:  events,
		now:     time.Now,
		rows:    make(map[models.ID]podRow),
	}
}

func (m podsLiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenEvents(m.events))
}

func (m podsLiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil

	case podEventMsg:
		m.apply(models.PodEvent(msg))
		return m, listenEvents(m.events)

	case watchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply records an event. Copies of the model share the rows map; Update
// runs on the program goroutine only.
func (m *podsLiveModel) apply(e models.PodEvent) {
	m.seen++
	id := e.PodID()
	if id == "" {
		return
	}
	row := m.rows[id]
	switch {
	case e.Create != nil:
		row.podID = e.Create.PodID
	case e.Update != nil:
		row.podID = e.Update.PodID
	}
	row.last = e.Kind()
	row.at = m.now()
	m.rows[id] = row
}

func (m podsLiveModel) View() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		fmt.Fprintf(&b, "Watch failed: %v\n", m.err)
	case m.done:
		fmt.Fprintf(&b, "Watch ended after %d events\n", m.seen)
	default:
		fmt.Fprintf(&b, "%s Watching pods (%d events)\n", m.spinner.View(), m.seen)
	}
	b.WriteString("\n")

	ids := make([]models.ID, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t := &table{header: []string{"ID", "POD", "LAST EVENT", "AT"}}
	for _, id := range ids {
		row := m.rows[id]
		t.add(string(id), row.podID, string(row.last), row.at.Format(time.TimeOnly))
	}
	t.write(&b)

	if !m.done {
		b.WriteString("\nq to quit\n")
	}
	return b.String()
}
