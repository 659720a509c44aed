package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"webtron/client/internal/arena"
	"webtron/client/internal/patch"
)

// Older servers name ribbons "trails".
const (
	legacyAddTrail                      = "AddTrail"
	legacyUpdateTrailAppendPoint        = "UpdateTrailAppendPoint"
	legacyUpdateTrailReplaceLatestPoint = "UpdateTrailReplaceLatestPoint"
	legacyRemoveTrail                   = "RemoveTrail"
)

// DecodeOp converts one tagged operation. Unrecognised tags decode to
// patch.Unknown without error. A recognised tag with a malformed payload
// also yields patch.Unknown, together with the decode error.
func DecodeOp(raw json.RawMessage) (patch.Op, error) {
	tag, payload, err := splitTagged(raw)
	if err != nil {
		return patch.Unknown{}, err
	}
	op, err := decodeOpPayload(tag, payload)
	if err != nil {
		return patch.Unknown{Tag: tag}, fmt.Errorf("decode op %s: %w", tag, err)
	}
	return op, nil
}

func decodeOpPayload(tag string, payload json.RawMessage) (patch.Op, error) {
	switch patch.Kind(tag) {
	case patch.KindAddPlayer:
		var op patch.AddPlayer
		err := decodePair(payload, &op.ID, &op.Player)
		return op, err
	case patch.KindAddLightcycle:
		var op patch.AddLightcycle
		err := decodePair(payload, &op.ID, &op.Lightcycle)
		return op, err
	case patch.KindAddLightribbon, legacyAddTrail:
		var op patch.AddLightribbon
		err := decodePair(payload, &op.ID, &op.Lightribbon)
		return op, err
	case patch.KindStart:
		var op patch.Start
		err := json.Unmarshal(payload, &op.At)
		return op, err
	case patch.KindEnd:
		return patch.End{}, nil
	case patch.KindSetWinner:
		var op patch.SetWinner
		if isNull(payload) {
			return op, nil
		}
		var id arena.ID
		if err := json.Unmarshal(payload, &id); err != nil {
			return op, err
		}
		op.ID = &id
		return op, nil
	case patch.KindUpdateLightcyclePosition:
		var op patch.UpdateLightcyclePosition
		err := decodePair(payload, &op.ID, &op.Position)
		return op, err
	case patch.KindUpdateLightcycleDirection:
		var op patch.UpdateLightcycleDirection
		err := decodePair(payload, &op.ID, &op.Direction)
		return op, err
	case patch.KindUpdateLightcycleApplyDeath:
		var op patch.UpdateLightcycleApplyDeath
		err := json.Unmarshal(payload, &op.ID)
		return op, err
	case patch.KindUpdateLightribbonAppendPoint, legacyUpdateTrailAppendPoint:
		var op patch.UpdateLightribbonAppendPoint
		err := decodePair(payload, &op.ID, &op.Point)
		return op, err
	case patch.KindUpdateLightribbonReplaceLatestPoint, legacyUpdateTrailReplaceLatestPoint:
		var op patch.UpdateLightribbonReplaceLatestPoint
		err := decodePair(payload, &op.ID, &op.Point)
		return op, err
	case patch.KindRemovePlayer:
		var op patch.RemovePlayer
		err := json.Unmarshal(payload, &op.ID)
		return op, err
	case patch.KindRemoveLightcycle:
		var op patch.RemoveLightcycle
		err := json.Unmarshal(payload, &op.ID)
		return op, err
	case patch.KindRemoveLightribbon, legacyRemoveTrail:
		var op patch.RemoveLightribbon
		err := json.Unmarshal(payload, &op.ID)
		return op, err
	default:
		return patch.Unknown{Tag: tag}, nil
	}
}

// EncodeOp renders an operation in the server's wire shape.
func EncodeOp(op patch.Op) (json.RawMessage, error) {
	var value any
	switch v := op.(type) {
	case patch.AddPlayer:
		value = pair(v.Kind(), v.ID, v.Player)
	case patch.AddLightcycle:
		value = pair(v.Kind(), v.ID, v.Lightcycle)
	case patch.AddLightribbon:
		value = pair(v.Kind(), v.ID, v.Lightribbon)
	case patch.Start:
		value = map[patch.Kind]time.Time{v.Kind(): v.At}
	case patch.End:
		value = v.Kind()
	case patch.SetWinner:
		value = map[patch.Kind]*arena.ID{v.Kind(): v.ID}
	case patch.UpdateLightcyclePosition:
		value = pair(v.Kind(), v.ID, v.Position)
	case patch.UpdateLightcycleDirection:
		value = pair(v.Kind(), v.ID, v.Direction)
	case patch.UpdateLightcycleApplyDeath:
		value = map[patch.Kind]arena.ID{v.Kind(): v.ID}
	case patch.UpdateLightribbonAppendPoint:
		value = pair(v.Kind(), v.ID, v.Point)
	case patch.UpdateLightribbonReplaceLatestPoint:
		value = pair(v.Kind(), v.ID, v.Point)
	case patch.RemovePlayer:
		value = map[patch.Kind]arena.ID{v.Kind(): v.ID}
	case patch.RemoveLightcycle:
		value = map[patch.Kind]arena.ID{v.Kind(): v.ID}
	case patch.RemoveLightribbon:
		value = map[patch.Kind]arena.ID{v.Kind(): v.ID}
	case patch.Unknown:
		value = v.Tag
	default:
		return nil, fmt.Errorf("encode op: unsupported op %T", op)
	}
	return json.Marshal(value)
}

func pair(kind patch.Kind, id arena.ID, payload any) map[patch.Kind][2]any {
	return map[patch.Kind][2]any{kind: {id, payload}}
}
