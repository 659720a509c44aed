package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"webtron/client/internal/arena"
	"webtron/client/internal/net/proto"
)

// Each message travels as an object with a single key naming its type.
type (
	arenaListMessage struct {
		ArenaList []arena.Overview `json:"ArenaList" jsonschema:"required"`
	}
	arenaJoinedMessage struct {
		ArenaJoined [2]arena.ID `json:"ArenaJoined" jsonschema:"required"`
	}
	arenaStateMessage struct {
		ArenaState arena.Document `json:"ArenaState" jsonschema:"required"`
	}
	arenaStatePatchMessage struct {
		ArenaStatePatch []any `json:"ArenaStatePatch" jsonschema:"required"`
	}

	getArenaListMessage struct {
		GetArenaList *struct{} `json:"GetArenaList" jsonschema:"required"`
	}
	joinMessage struct {
		Join joinPayload `json:"Join" jsonschema:"required"`
	}
	startMessage struct {
		Start *struct{} `json:"Start" jsonschema:"required"`
	}
	turnMessage struct {
		Turn arena.Direction `json:"Turn" jsonschema:"required,enum=up,enum=down,enum=left,enum=right"`
	}
)

type joinPayload struct {
	Player struct {
		Name  string      `json:"name" jsonschema:"required"`
		Color arena.Color `json:"color" jsonschema:"required,enum=blue,enum=green,enum=orange,enum=purple,enum=red,enum=white"`
	} `json:"player" jsonschema:"required"`
	ArenaID *arena.ID `json:"arena_id"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Mapper:                     mapWireType,
	}
	message := func(title string, v any) *jsonschema.Schema {
		schema := reflector.Reflect(v)
		schema.Version = ""
		schema.Title = title
		return schema
	}

	inbound := &jsonschema.Schema{
		Title:       "Server messages",
		Description: "Messages received from the arena server.",
		OneOf: []*jsonschema.Schema{
			message(proto.TypeArenaList, new(arenaListMessage)),
			message(proto.TypeArenaJoined, new(arenaJoinedMessage)),
			message(proto.TypeArenaState, new(arenaStateMessage)),
			message(proto.TypeArenaStatePatch, new(arenaStatePatchMessage)),
		},
	}
	outbound := &jsonschema.Schema{
		Title:       "Client intents",
		Description: "Messages sent to the arena server.",
		OneOf: []*jsonschema.Schema{
			message(proto.TypeGetArenaList, new(getArenaListMessage)),
			message(proto.TypeJoin, new(joinMessage)),
			message(proto.TypeStart, new(startMessage)),
			message(proto.TypeTurn, new(turnMessage)),
		},
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Webtron Wire Protocol",
		Description: "Tagged JSON text frames exchanged over the arena websocket.",
		OneOf:       []*jsonschema.Schema{inbound, outbound},
	}
}

var (
	idType    = reflect.TypeOf(arena.ID{})
	pointType = reflect.TypeOf(arena.Point{})
)

// mapWireType describes types whose JSON form differs from their Go shape.
func mapWireType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case idType:
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	case pointType:
		return &jsonschema.Schema{
			Type:        "array",
			Description: "[x, y] in arena units, y growing upwards",
			Items:       &jsonschema.Schema{Type: "number"},
		}
	default:
		return nil
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
