// Package ui provides the terminal satellite tracker using Bubble Tea. Each
// tick advances the simulated clock, updates the scene once and renders the
// observations.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Stellarium/stellarium-sub033/internal/astrotime"
	"github.com/Stellarium/stellarium-sub033/internal/scene"
	"github.com/Stellarium/stellarium-sub033/internal/visibility"
)

// TickInterval is the wall-clock refresh period.
const TickInterval = 250 * time.Millisecond

// Time-warp factors cycled with + and -.
var rates = []float64{1, 10, 60, 300, 1800}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
)

var stateStyles = map[visibility.State]lipgloss.Style{
	visibility.BelowHorizon: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	visibility.RadarSun:     lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	visibility.Visible:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
	visibility.RadarNight:   lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
	visibility.Penumbral:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	visibility.Annular:      lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
}

// TickMsg triggers a scene update.
type TickMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	scene *scene.Scene

	sim      astrotime.Instant
	lastTick time.Time
	rateIdx  int
	paused   bool
	byElev   bool

	observations []scene.Observation
	selected     int
	width        int
	height       int
}

// SnapRate returns the largest supported time-warp step not above rate,
// or the smallest step when rate is below all of them.
func SnapRate(rate float64) float64 {
	return rates[rateIndex(rate)]
}

func rateIndex(rate float64) int {
	idx := 0
	for i, r := range rates {
		if r <= rate {
			idx = i
		}
	}
	return idx
}

// New creates a model that starts the simulated clock at start. rate is
// snapped with SnapRate.
func New(sc *scene.Scene, start astrotime.Instant, rate float64) Model {
	m := Model{scene: sc, sim: start, rateIdx: rateIndex(rate)}
	m.refresh()
	return m
}

// Sim returns the current simulated instant.
func (m Model) Sim() astrotime.Instant { return m.sim }

// Rate returns the current time-warp factor.
func (m Model) Rate() float64 { return rates[m.rateIdx] }

// Observations returns the rows currently displayed.
func (m Model) Observations() []scene.Observation { return m.observations }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "+", "=":
			if m.rateIdx < len(rates)-1 {
				m.rateIdx++
			}
		case "-":
			if m.rateIdx > 0 {
				m.rateIdx--
			}
		case "e":
			m.byElev = !m.byElev
			m.refresh()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.observations)-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		now := time.Time(msg)
		if !m.paused && !m.lastTick.IsZero() {
			dt := now.Sub(m.lastTick).Seconds() * m.Rate()
			m.sim = m.sim.Add(astrotime.Seconds(dt))
			m.refresh()
		}
		m.lastTick = now
		return m, tickCmd()
	}

	return m, nil
}

// refresh updates the scene to the simulated instant and re-reads it.
func (m *Model) refresh() {
	m.scene.Update(m.sim)
	m.observations = m.scene.ObserveAll()
	if m.byElev {
		sort.SliceStable(m.observations, func(i, j int) bool {
			return m.observations[i].View.Elevation > m.observations[j].View.Elevation
		})
	}
	if m.selected >= len(m.observations) {
		m.selected = max(0, len(m.observations)-1)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	loc := m.scene.Observer().Location()
	status := fmt.Sprintf("%s UTC  x%.0f", m.sim.Time().Format("2006-01-02 15:04:05"), m.Rate())
	if m.paused {
		status += "  [paused]"
	}
	b.WriteString(titleStyle.Render("satwatch"))
	b.WriteString("  ")
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("observer %.4f, %.4f  %.0f m  |  %d tracked, %d current",
		loc.LatitudeDeg, loc.LongitudeDeg, loc.AltitudeM, m.scene.Len(), len(m.observations))))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-24s %6s %7s %7s %9s %7s %8s %9s %7s  %s",
		"NAME", "NORAD", "AZ", "EL", "RANGE", "RRATE", "LAT", "LON", "ALT", "STATE")))
	b.WriteString("\n")

	rows := len(m.observations)
	if m.height > 8 && rows > m.height-8 {
		rows = m.height - 8
	}
	for i := 0; i < rows; i++ {
		o := m.observations[i]
		line := fmt.Sprintf("%-24s %6d %7.2f %7.2f %9.1f %7.3f %8.3f %9.3f %7.1f  ",
			truncate(o.Name, 24), o.NORADID,
			o.View.AzimuthDeg(), o.View.ElevationDeg(), o.View.RangeKm, o.View.RangeRate,
			o.Subpoint.LatitudeDeg, o.Subpoint.LongitudeDeg, o.Subpoint.AltitudeKm)

		style := rowStyle
		if i == m.selected {
			style = selectedRowStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString(stateStyles[o.Visibility].Render(o.Visibility.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("[space] pause  [+/-] warp  [e] sort by elevation  [j/k] select  [q] quit"))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
