package arena

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Point is a position in arena space. The wire form is a two element array.
type Point struct {
	X float64
	Y float64
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decode point: expected 2 coordinates, got %d", len(raw))
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

// Direction is the heading of a lightcycle.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	default:
		return false
	}
}

// Unit returns the unit vector for d. Up is +Y. Unknown directions map to
// the zero vector.
func (d Direction) Unit() Point {
	switch d {
	case DirectionLeft:
		return Point{X: -1}
	case DirectionRight:
		return Point{X: 1}
	case DirectionDown:
		return Point{Y: -1}
	case DirectionUp:
		return Point{Y: 1}
	default:
		return Point{}
	}
}

// Opposite reports whether turning from d to to would reverse the bike.
func (d Direction) Opposite(to Direction) bool {
	switch d {
	case DirectionUp:
		return to == DirectionDown
	case DirectionDown:
		return to == DirectionUp
	case DirectionLeft:
		return to == DirectionRight
	case DirectionRight:
		return to == DirectionLeft
	default:
		return false
	}
}

// Color is a player's ribbon colour.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorPurple Color = "purple"
	ColorRed    Color = "red"
	ColorWhite  Color = "white"
)

// Colors lists the palette in declaration order.
var Colors = []Color{ColorBlue, ColorGreen, ColorOrange, ColorPurple, ColorRed, ColorWhite}

// ParseColor maps a name onto the palette. Unknown names yield white.
func ParseColor(name string) (Color, bool) {
	for _, c := range Colors {
		if string(c) == name {
			return c, true
		}
	}
	return ColorWhite, false
}

// Hex returns the display colour as #rrggbb.
func (c Color) Hex() string {
	switch c {
	case ColorBlue:
		return "#00c2cc"
	case ColorGreen:
		return "#2ee53d"
	case ColorOrange:
		return "#f2d91a"
	case ColorPurple:
		return "#8a2ee5"
	case ColorRed:
		return "#e5482e"
	default:
		return "#e5feff"
	}
}

// IDHasher lets IDs key persistent maps.
type IDHasher struct{}

func (IDHasher) Hash(id ID) uint32 {
	h := fnv.New32a()
	h.Write(id[:])
	return h.Sum32()
}

func (IDHasher) Equal(a, b ID) bool {
	return a == b
}
