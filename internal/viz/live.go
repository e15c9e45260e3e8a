package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/molsim/internal/editor"
	"github.com/san-kum/molsim/internal/metrics"
	"github.com/san-kum/molsim/internal/molecule"
)

const (
	width           = 72
	height          = 24
	historyCapacity = 600
	autoRotateStep  = 0.02
)

type TickMsg time.Time

// Model relaxes a solution on every tick while accepting editing keys.
type Model struct {
	ed            *editor.Editor
	gauges        []metrics.Metric
	name          string
	canvas        *Canvas
	camera        *Camera
	frameRate     int
	stepsPerFrame int
	running       bool
	autoRotate    bool
	showHelp      bool
	step          int
	frame         int
	selected      molecule.AtomID
	selectedBond  molecule.BondID
	paramKeys     []string
	paramSel      int
	forceHistory  []float64
	message       string
	failed        bool
}

// NewModel builds a live view over the editor's solution. frameRate is the
// tick rate and stepsPerFrame the number of relaxation steps per tick.
func NewModel(ed *editor.Editor, name string, frameRate, stepsPerFrame int) Model {
	if frameRate <= 0 {
		frameRate = 30
	}
	if stepsPerFrame <= 0 {
		stepsPerFrame = 1
	}
	sol := ed.Solution()
	m := Model{
		ed:            ed,
		gauges:        metrics.Defaults(sol.Params()),
		name:          name,
		canvas:        NewCanvas(width, height),
		camera:        NewCamera(),
		frameRate:     frameRate,
		stepsPerFrame: stepsPerFrame,
		running:       true,
		paramKeys:     sol.ForceField().ParamNames(),
		forceHistory:  make([]float64, 0, historyCapacity),
	}
	m.camera.Fit(sol)
	if atoms := sol.Atoms(); len(atoms) > 0 {
		m.selected = atoms[0].ID()
		m.selectBond(0)
	}
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.frameRate), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the relaxation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerFrame; i++ {
				m.advance()
			}
		}
		if m.autoRotate {
			m.camera.RotateY(autoRotateStep)
		}
		m.frame++
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message, m.failed = "", false
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "s":
		if !m.running {
			m.advance()
		}
	case "tab":
		m.cycleAtom(1)
	case "shift+tab":
		m.cycleAtom(-1)
	case "b":
		m.cycleBond()
	case "a":
		if on, err := m.ed.ToggleAnchor(m.selected); err != nil {
			m.fail(err)
		} else if on {
			m.message = fmt.Sprintf("atom %d anchored", m.selected)
		} else {
			m.message = fmt.Sprintf("atom %d released", m.selected)
		}
	case "c":
		if order, err := m.ed.CycleOrder(m.selectedBond); err != nil {
			m.fail(err)
		} else {
			m.message = fmt.Sprintf("bond %d is %s", m.selectedBond, strings.ToLower(order.String()))
		}
	case "d":
		m.deleteSelected()
	case "D":
		m.ed.DeleteBond(m.selectedBond)
		m.selectBond(0)
	case "p":
		if len(m.paramKeys) > 0 {
			m.paramSel = (m.paramSel + 1) % len(m.paramKeys)
		}
	case "up", "k":
		m.adjustParam(1.05)
	case "down", "j":
		m.adjustParam(0.95)
	case "r":
		m.autoRotate = !m.autoRotate
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.RotateZ(0.1)
	case "Z":
		m.camera.RotateZ(-0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "f":
		m.camera.Fit(m.ed.Solution())
	case "t":
		NextTheme()
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) fail(err error) {
	m.message, m.failed = err.Error(), true
}

func (m *Model) advance() {
	sol := m.ed.Solution()
	stats := sol.SimulationStep()
	m.step++
	for _, mt := range m.gauges {
		mt.Observe(sol, stats)
	}
	if len(m.forceHistory) >= historyCapacity {
		m.forceHistory = m.forceHistory[1:]
	}
	m.forceHistory = append(m.forceHistory, stats.MaxForce)
}

func (m *Model) cycleAtom(dir int) {
	if id, ok := m.ed.Neighbour(m.selected, dir); ok {
		m.selected = id
		m.selectBond(0)
	}
}

func (m *Model) cycleBond() {
	bonds := m.ed.BondsOf(m.selected)
	for i, b := range bonds {
		if b == m.selectedBond {
			m.selectBond(i + 1)
			return
		}
	}
	m.selectBond(0)
}

// selectBond selects the i-th bond of the selected atom, wrapping around.
func (m *Model) selectBond(i int) {
	bonds := m.ed.BondsOf(m.selected)
	if len(bonds) == 0 {
		m.selectedBond = 0
		return
	}
	m.selectedBond = bonds[i%len(bonds)]
}

func (m *Model) deleteSelected() {
	if _, ok := m.ed.Solution().Atom(m.selected); !ok {
		return
	}
	doomed := m.selected
	next, ok := m.ed.Neighbour(doomed, 1)
	m.ed.Delete(doomed)
	m.selected = 0
	if ok && next != doomed {
		m.selected = next
	}
	m.selectBond(0)
	m.message = fmt.Sprintf("atom %d deleted", doomed)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	ff := m.ed.Solution().ForceField()
	key := m.paramKeys[m.paramSel]
	if err := ff.SetParam(key, ff.GetParams()[key]*factor); err != nil {
		m.fail(err)
		return
	}
	if key == "length_scale" {
		m.rebuildStrain()
	}
}

// rebuildStrain replaces the bond strain metric so it measures against the
// current length scale, and re-reads the solution as it stands.
func (m *Model) rebuildStrain() {
	sol := m.ed.Solution()
	for i, mt := range m.gauges {
		if _, ok := mt.(*metrics.BondStrain); ok {
			strain := metrics.NewBondStrain(sol.Params().LengthScale)
			strain.Observe(sol, molecule.StepStats{})
			m.gauges[i] = strain
		}
	}
}

// metricValues returns the latest value of every live metric by name.
func (m Model) metricValues() map[string]float64 {
	values := make(map[string]float64, len(m.gauges))
	for _, mt := range m.gauges {
		values[mt.Name()] = mt.Value()
	}
	return values
}

// Running reports whether the relaxation advances on ticks.
func (m Model) Running() bool { return m.running }

// Step is the number of relaxation steps taken so far.
func (m Model) Step() int { return m.step }

// Selected returns the selected atom and bond; zero ids mean none.
func (m Model) Selected() (molecule.AtomID, molecule.BondID) { return m.selected, m.selectedBond }

func (m *Model) draw() {
	m.canvas.Clear()
	RenderSolution(m.canvas, m.ed.Solution(), m.camera, m.selected)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	sol := m.ed.Solution()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle().Render(strings.ToUpper(m.name)) + "\n")

	status := AnimatedSpinner(m.frame) + " RELAXING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(statusStyle(m.running).Render(status) + "\n\n")

	if len(m.forceHistory) > 1 {
		chart := asciigraph.Plot(m.forceHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Max force"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	values := m.metricValues()
	s.WriteString(labelStyle.Render("Step") + valueStyle().Render(fmt.Sprintf("%d", m.step)) + "\n")
	s.WriteString(labelStyle.Render("Atoms") + valueStyle().Render(fmt.Sprintf("%d", sol.NumAtoms())) + "\n")
	s.WriteString(labelStyle.Render("Bonds") + valueStyle().Render(fmt.Sprintf("%d", sol.NumBonds())) + "\n")
	s.WriteString(labelStyle.Render("Max force") + valueStyle().Render(fmt.Sprintf("%.3e", values["max_force"])) + "\n")
	s.WriteString(labelStyle.Render("Strain") + valueStyle().Render(fmt.Sprintf("%.2f%%", values["bond_strain"]*100)) + "\n")
	s.WriteString(labelStyle.Render("Kinetic") + valueStyle().Render(fmt.Sprintf("%.3e", values["kinetic_energy"])) + "\n")

	s.WriteString("\n" + m.selectionView() + "\n")

	s.WriteString("PARAMETERS\n")
	params := sol.ForceField().GetParams()
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-13s %.4g", k, params[k])
		if i == m.paramSel {
			s.WriteString(activeStyle().Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + mutedStyle().Render(line) + "\n")
		}
	}

	if m.message != "" {
		if m.failed {
			s.WriteString("\n" + errorStyle().Render(m.message) + "\n")
		} else {
			s.WriteString("\n" + valueStyle().Render(m.message) + "\n")
		}
	}

	s.WriteString(helpStyle().Render("SP:Pause Tab:Atom B:Bond A:Anchor\nC:Order D:Delete P/↑↓:Tune ?:Help Q:Quit"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

func (m Model) selectionView() string {
	sol := m.ed.Solution()
	a, ok := sol.Atom(m.selected)
	if !ok {
		return mutedStyle().Render("no selection")
	}
	var s strings.Builder
	anchor := ""
	if a.Anchored() {
		anchor = " (anchored)"
	}
	p := a.Position()
	s.WriteString(activeStyle().Render(fmt.Sprintf("%s%d%s", a.Symbol, a.ID(), anchor)) + "\n")
	s.WriteString(mutedStyle().Render(fmt.Sprintf("  at (%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)) + "\n")
	if b, ok := sol.Bond(m.selectedBond); ok {
		other, _ := b.OtherAtom(a.ID())
		sym := "?"
		if o, ok := sol.Atom(other); ok {
			sym = fmt.Sprintf("%s%d", o.Symbol, o.ID())
		}
		s.WriteString(mutedStyle().Render(fmt.Sprintf("  bond to %s, %s", sym, strings.ToLower(b.Order().String()))) + "\n")
	}
	return s.String()
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume relaxation  ║
║  S        - Single step when paused  ║
║  Tab      - Next atom (Shift: prev)  ║
║  B        - Next bond of atom        ║
║  A        - Toggle anchor            ║
║  C        - Cycle bond order         ║
║  D        - Delete atom (Shift: bond)║
║  P        - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  R        - Toggle auto-rotation     ║
║  X/Y/Z    - Rotate, +/- Zoom, F Fit  ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`
