package tui

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/width"
)

const pollInterval = time.Second

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

type tickMsg time.Time

type samplesMsg struct {
	samples []Sample
}

type errMsg struct{ err error }

// Model is the root bubbletea model for `filehorizon monitor`.
type Model struct {
	fetcher  *Fetcher
	table   table.Model
	spinner spinner.Model
	filter  textinput.Model
	all     []Sample
	err     error
}

func NewModel(url string) Model {
	columns := []table.Column{
		{Title: "Metric", Width: 34},
		{Title: "Labels", Width: 40},
		{Title: "Value", Width: 12},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(20))

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	fi := textinput.New()
	fi.Placeholder = "filter (press / to search, esc to clear)"
	fi.CharLimit = 128

	return Model{
		fetcher: NewFetcher(url, 3*time.Second),
		table:   t,
		spinner: sp,
		filter:  fi,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		samples, err := m.fetcher.Fetch(ctx)
		if err != nil {
			return errMsg{err}
		}
		return samplesMsg{samples}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "esc":
				m.filter.Blur()
				m.filter.SetValue("")
				m.table.SetRows(toRows(m.all))
				return m, nil
			case "enter":
				m.filter.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.table.SetRows(toRows(applyFilter(m.all, m.filter.Value())))
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/":
			m.filter.Focus()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())

	case samplesMsg:
		m.all = msg.samples
		m.err = nil
		m.table.SetRows(toRows(applyFilter(m.all, m.filter.Value())))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	header := headerStyle.Render(fmt.Sprintf("%s filehorizon monitor — %d series", m.spinner.View(), len(m.all)))
	body := m.table.View()
	footer := footerStyle.Render("/ filter   q quit")
	if m.filter.Focused() || m.filter.Value() != "" {
		footer = m.filter.View()
	}
	if m.err != nil {
		footer = errorStyle.Render(wordwrap.String(m.err.Error(), 80))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// sampleText adapts a []string to fuzzy.Source so Find can search
// without the caller flattening samples into plain strings itself.
type sampleText []string

func (s sampleText) String(i int) string { return s[i] }
func (s sampleText) Len() int            { return len(s) }

// applyFilter narrows samples to those whose "metric labels" text
// fuzzy-matches query; an empty query matches everything.
func applyFilter(samples []Sample, query string) []Sample {
	if query == "" {
		return samples
	}
	haystack := make(sampleText, len(samples))
	for i, s := range samples {
		haystack[i] = s.Metric + " " + s.Labels
	}
	matches := fuzzy.Find(query, haystack)
	out := make([]Sample, 0, len(matches))
	for _, match := range matches {
		out = append(out, samples[match.Index])
	}
	return out
}

func toRows(samples []Sample) []table.Row {
	rows := make([]table.Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, table.Row{
			truncateDisplay(s.Metric, 34),
			truncateDisplay(s.Labels, 40),
			fmt.Sprintf("%.2f", s.Value),
		})
	}
	return rows
}

// truncateDisplay clips s to maxWidth display columns, counting wide
// runes (CJK, emoji) as two cells so table columns stay aligned. A
// clipped string ends in "…", which takes the last of those columns.
func truncateDisplay(s string, maxWidth int) string {
	w := 0
	cut := -1
	for i, r := range s {
		rw := 1
		if width.LookupRune(r).Kind() == width.EastAsianWide {
			rw = 2
		}
		if cut < 0 && w+rw > maxWidth-1 {
			cut = i
		}
		if w+rw > maxWidth {
			return s[:cut] + "…"
		}
		w += rw
	}
	return s
}
