package arena

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSettersShareUntouchedCollections(t *testing.T) {
	id := uuid.New()
	base := New(uuid.New()).
		WithPlayer(id, Player{ID: id, Name: "flynn", Color: ColorBlue}).
		WithLightribbon(id, Lightribbon{Points: []Point{{X: 1, Y: 1}}})

	next := base.WithLightcycle(id, Lightcycle{Direction: DirectionUp, Speed: 55})

	if next.playerMap() != base.playerMap() {
		t.Fatalf("expected players map to be shared after lightcycle insert")
	}
	if next.lightribbonMap() != base.lightribbonMap() {
		t.Fatalf("expected lightribbons map to be shared after lightcycle insert")
	}
	if base.LenLightcycles() != 0 {
		t.Fatalf("expected parent to stay without lightcycles, got %d", base.LenLightcycles())
	}
	if next.LenLightcycles() != 1 {
		t.Fatalf("expected child to hold 1 lightcycle, got %d", next.LenLightcycles())
	}
}

func TestWithoutMissingIDReturnsSameVersion(t *testing.T) {
	base := New(uuid.New())
	next := base.WithoutPlayer(uuid.New()).WithoutLightcycle(uuid.New()).WithoutLightribbon(uuid.New())
	if !next.Identical(base) {
		t.Fatalf("expected removal of absent ids to keep the same version")
	}
}

func TestLightribbonAppendDoesNotAliasParent(t *testing.T) {
	points := make([]Point, 1, 4)
	points[0] = Point{X: 1}
	parent := Lightribbon{Points: points}

	a := parent.Append(Point{X: 2})
	b := parent.Append(Point{X: 3})

	if a.Points[1].X != 2 || b.Points[1].X != 3 {
		t.Fatalf("expected independent appends, got %v and %v", a.Points, b.Points)
	}
	if len(parent.Points) != 1 {
		t.Fatalf("expected parent to keep 1 point, got %d", len(parent.Points))
	}
}

func TestLightribbonReplaceLatest(t *testing.T) {
	parent := Lightribbon{Points: []Point{{X: 0}, {X: 1}}}
	next := parent.ReplaceLatest(Point{X: 5})
	if got := next.Points[1]; got != (Point{X: 5}) {
		t.Fatalf("expected latest point to be replaced, got %v", got)
	}
	if parent.Points[1].X != 1 {
		t.Fatalf("expected parent to be untouched, got %v", parent.Points)
	}

	empty := Lightribbon{}.ReplaceLatest(Point{X: 9})
	if len(empty.Points) != 1 || empty.Points[0].X != 9 {
		t.Fatalf("expected replace on empty ribbon to seed one point, got %v", empty.Points)
	}
}

func TestDirectionUnitVectors(t *testing.T) {
	cases := map[Direction]Point{
		DirectionLeft:  {X: -1},
		DirectionRight: {X: 1},
		DirectionDown:  {Y: -1},
		DirectionUp:    {Y: 1},
		"sideways":     {},
	}
	for dir, want := range cases {
		if got := dir.Unit(); got != want {
			t.Fatalf("expected %q unit %v, got %v", dir, want, got)
		}
	}
	if !DirectionUp.Opposite(DirectionDown) || DirectionUp.Opposite(DirectionLeft) {
		t.Fatalf("unexpected opposite evaluation for up")
	}
}

func TestArenaJSONDecodesServerShape(t *testing.T) {
	player := uuid.MustParse("6f1c1c8e-3a0b-4c5e-8d55-0d6c1a7e2b11")
	raw := `{
		"id": "0e3bf8a4-7a55-4c23-9c55-9f5b8a0c2d10",
		"name": "GRID",
		"width": 560.0,
		"height": 560.0,
		"max_players": 8,
		"started": "2026-01-02T03:04:05Z",
		"winner": null,
		"players": {"6f1c1c8e-3a0b-4c5e-8d55-0d6c1a7e2b11": {"id": "6f1c1c8e-3a0b-4c5e-8d55-0d6c1a7e2b11", "name": "sam", "color": "red"}},
		"lightcycles": {"6f1c1c8e-3a0b-4c5e-8d55-0d6c1a7e2b11": {"position": [280, 140], "direction": "up", "speed": 55, "dead": false}},
		"trails": {"6f1c1c8e-3a0b-4c5e-8d55-0d6c1a7e2b11": {"points": [[280, 140], [280, 140]]}}
	}`

	var a Arena
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if a.Width != 560 || a.Height != 560 || a.MaxPlayers != 8 {
		t.Fatalf("unexpected dimensions: %dx%d max=%d", a.Width, a.Height, a.MaxPlayers)
	}
	if a.Started == nil || !a.Started.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected start instant: %v", a.Started)
	}
	cycle, ok := a.Lightcycle(player)
	if !ok || cycle.Position != (Point{X: 280, Y: 140}) || cycle.Direction != DirectionUp {
		t.Fatalf("unexpected lightcycle: %+v (present=%v)", cycle, ok)
	}
	ribbon, ok := a.Lightribbon(player)
	if !ok || len(ribbon.Points) != 2 {
		t.Fatalf("expected trails alias to populate lightribbons, got %+v", ribbon)
	}

	encoded, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	var again Arena
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("unexpected re-decode error: %v", err)
	}
	if !again.Equal(a) {
		t.Fatalf("expected re-decoded arena to equal original")
	}
}

func TestPointRejectsWrongArity(t *testing.T) {
	var p Point
	if err := json.Unmarshal([]byte(`[1,2,3]`), &p); err == nil {
		t.Fatalf("expected error for three coordinates")
	}
}

func TestRunning(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Second)
	a := New(uuid.New())
	if a.Running(now) {
		t.Fatalf("expected arena without start to not be running")
	}
	a.Started = &future
	if a.Running(now) {
		t.Fatalf("expected scheduled arena to not be running yet")
	}
	if !a.Running(future) {
		t.Fatalf("expected arena to be running at its start instant")
	}
}
