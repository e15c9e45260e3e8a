package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/molsim/internal/editor"
)

// Preset is one entry of the picker menu.
type Preset struct {
	Name        string
	Description string
}

// BuildFunc realises a preset into an editor over a fresh solution.
type BuildFunc func(name string) (*editor.Editor, error)

const (
	stateMenu = iota
	stateLive
)

// Picker lists presets and opens the live view on the chosen one.
type Picker struct {
	state         int
	cursor        int
	presets       []Preset
	build         BuildFunc
	frameRate     int
	stepsPerFrame int
	err           error
	live          Model
}

func NewPicker(presets []Preset, build BuildFunc, frameRate, stepsPerFrame int) Picker {
	return Picker{
		state:         stateMenu,
		presets:       presets,
		build:         build,
		frameRate:     frameRate,
		stepsPerFrame: stepsPerFrame,
	}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.state == stateLive {
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.presets)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.presets) == 0 {
			return p, nil
		}
		chosen := p.presets[p.cursor]
		ed, err := p.build(chosen.Name)
		if err != nil {
			p.err = err
			return p, nil
		}
		p.err = nil
		p.live = NewModel(ed, chosen.Name, p.frameRate, p.stepsPerFrame)
		p.state = stateLive
		return p, p.live.Init()
	}
	return p, nil
}

// Chosen returns the preset whose live view is open.
func (p Picker) Chosen() (string, bool) {
	if p.state != stateLive {
		return "", false
	}
	return p.presets[p.cursor].Name, true
}

func (p Picker) View() string {
	if p.state == stateLive {
		return p.live.View()
	}

	var s strings.Builder
	s.WriteString(headerStyle().Render("MOLSIM") + "\n")
	s.WriteString(mutedStyle().Render("pick a starting structure") + "\n\n")
	for i, pr := range p.presets {
		line := fmt.Sprintf("%-18s %s", pr.Name, mutedStyle().Render(pr.Description))
		if i == p.cursor {
			s.WriteString(activeStyle().Render("▸ ") + line + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	if p.err != nil {
		s.WriteString("\n" + errorStyle().Render(p.err.Error()) + "\n")
	}
	s.WriteString(helpStyle().Render("↑↓:Move Enter:Open Q:Quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(s.String())
}
