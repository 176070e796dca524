package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	PortFound   rune // ● port resolved
	PortMissing rune // ○ no matching port
	Channel     rune // ▶ selected deck channel
	OK          rune // ✓ last send succeeded
	Failed      rune // ✗ last send failed
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			PortFound:   '●',
			PortMissing: '○',
			Channel:     '▶',
			OK:          '✓',
			Failed:      '✗',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Readout is the style of the big BPM number.
func (t *Theme) Readout() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Success()).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent()).
		Padding(0, 2)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
