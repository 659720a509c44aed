// Package view draws client frames onto a terminal screen.
package view

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"webtron/client/internal/arena"
	"webtron/client/internal/client"
	"webtron/client/internal/trail"
)

// Screen is the part of tcell.Screen the presenter draws with.
type Screen interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
	Clear()
	Show()
}

// Glyphs.
const (
	GlyphUp         = '▲'
	GlyphDown       = '▼'
	GlyphLeft       = '◀'
	GlyphRight      = '▶'
	GlyphDead       = '✖'
	GlyphHorizontal = '─'
	GlyphVertical   = '│'
)

// View renders frames. Present may be called from the client goroutine while
// the input loop polls the same screen.
type View struct {
	mu     sync.Mutex
	screen Screen
	styles map[arena.Color]tcell.Style
	status tcell.Style
}

func New(screen Screen) *View {
	v := &View{
		screen: screen,
		styles: make(map[arena.Color]tcell.Style, len(arena.Colors)),
		status: tcell.StyleDefault.Reverse(true),
	}
	for _, c := range arena.Colors {
		v.styles[c] = tcell.StyleDefault.Foreground(tcell.GetColor(c.Hex()))
	}
	return v
}

// Present satisfies client.Presenter.
func (v *View) Present(frame client.Frame) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.screen.Clear()
	cols, rows := v.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	if frame.Joined && rows > 1 {
		grid := newGrid(frame.Arena, cols, rows-1)
		v.drawRibbons(grid, frame)
		v.drawCycles(grid, frame)
	}
	v.drawText(0, rows-1, cols, statusLine(frame), v.status)
	v.screen.Show()
}

func (v *View) style(a arena.Arena, id arena.ID) tcell.Style {
	if player, ok := a.Player(id); ok {
		if style, ok := v.styles[player.Color]; ok {
			return style
		}
	}
	return v.styles[arena.ColorWhite]
}

func (v *View) drawRibbons(g grid, frame client.Frame) {
	frame.Arena.EachLightribbon(func(id arena.ID, ribbon arena.Lightribbon) {
		if cycle, ok := frame.Arena.Lightcycle(id); ok && !cycle.Dead {
			if predicted, ok := frame.Positions[id]; ok {
				ribbon = ribbon.ReplaceLatest(predicted)
			}
		}
		style := v.style(frame.Arena, id)
		for _, segment := range trail.Segments(ribbon.Points) {
			glyph := GlyphVertical
			if segment.From.Y == segment.To.Y {
				glyph = GlyphHorizontal
			}
			c0, r0 := g.cell(segment.From)
			c1, r1 := g.cell(segment.To)
			line(c0, r0, c1, r1, func(c, r int) {
				v.screen.SetContent(c, r, glyph, nil, style)
			})
		}
	})
}

func (v *View) drawCycles(g grid, frame client.Frame) {
	frame.Arena.EachLightcycle(func(id arena.ID, cycle arena.Lightcycle) {
		position := cycle.Position
		if predicted, ok := frame.Positions[id]; ok {
			position = predicted
		}
		c, r := g.cell(position)
		v.screen.SetContent(c, r, glyphFor(cycle), nil, v.style(frame.Arena, id).Bold(true))
	})
}

func (v *View) drawText(x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			break
		}
		v.screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		v.screen.SetContent(x+col, y, ' ', nil, style)
	}
}

func glyphFor(cycle arena.Lightcycle) rune {
	if cycle.Dead {
		return GlyphDead
	}
	switch cycle.Direction {
	case arena.DirectionDown:
		return GlyphDown
	case arena.DirectionLeft:
		return GlyphLeft
	case arena.DirectionRight:
		return GlyphRight
	default:
		return GlyphUp
	}
}

// grid maps arena coordinates onto screen cells. Arena Y grows upwards,
// screen rows grow downwards.
type grid struct {
	width, height float64
	cols, rows    int
}

func newGrid(a arena.Arena, cols, rows int) grid {
	g := grid{width: float64(a.Width), height: float64(a.Height), cols: cols, rows: rows}
	if g.width <= 0 {
		g.width = 1
	}
	if g.height <= 0 {
		g.height = 1
	}
	return g
}

func (g grid) cell(p arena.Point) (int, int) {
	col := clamp(int(p.X/g.width*float64(g.cols)), 0, g.cols-1)
	row := g.rows - 1 - clamp(int(p.Y/g.height*float64(g.rows)), 0, g.rows-1)
	return col, row
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// line visits every cell from (c0, r0) to (c1, r1) inclusive.
func line(c0, r0, c1, r1 int, fn func(c, r int)) {
	dc, dr := c1-c0, r1-r0
	steps := max(abs(dc), abs(dr))
	if steps == 0 {
		fn(c0, r0)
		return
	}
	for i := 0; i <= steps; i++ {
		fn(c0+dc*i/steps, r0+dr*i/steps)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func statusLine(frame client.Frame) string {
	parts := []string{frame.Connection}
	if !frame.Joined {
		parts = append(parts, fmt.Sprintf("lobby: %d arenas", len(frame.Lobby)))
		return strings.Join(parts, " | ")
	}

	a := frame.Arena
	name := a.Name
	if name == "" {
		name = a.ID.String()[:8]
	}
	parts = append(parts, name, fmt.Sprintf("%d/%d players", a.LenPlayers(), a.MaxPlayers))

	// The winner goes ahead of the hint so narrow screens still show it.
	if a.Winner != nil {
		winner := a.Winner.String()[:8]
		if player, ok := a.Player(*a.Winner); ok {
			winner = player.Name
		}
		parts = append(parts, "winner: "+winner)
	}
	switch {
	case frame.Running():
		parts = append(parts, "running")
	case frame.Countdown() > 0:
		parts = append(parts, fmt.Sprintf("starting in %.1fs", frame.Countdown().Round(100*time.Millisecond).Seconds()))
	default:
		parts = append(parts, "press space to start")
	}
	return strings.Join(parts, " | ")
}
