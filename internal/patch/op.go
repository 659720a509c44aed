// Package patch folds server delta operations over an arena aggregate.
package patch

import (
	"time"

	"webtron/client/internal/arena"
)

// Kind identifies the type of a delta operation. Values match the wire tags.
type Kind string

const (
	KindAddPlayer                           Kind = "AddPlayer"
	KindAddLightcycle                       Kind = "AddLightcycle"
	KindAddLightribbon                      Kind = "AddLightribbon"
	KindStart                               Kind = "Start"
	KindEnd                                 Kind = "End"
	KindSetWinner                           Kind = "SetWinner"
	KindUpdateLightcyclePosition            Kind = "UpdateLightcyclePosition"
	KindUpdateLightcycleDirection           Kind = "UpdateLightcycleDirection"
	KindUpdateLightcycleApplyDeath          Kind = "UpdateLightcycleApplyDeath"
	KindUpdateLightribbonAppendPoint        Kind = "UpdateLightribbonAppendPoint"
	KindUpdateLightribbonReplaceLatestPoint Kind = "UpdateLightribbonReplaceLatestPoint"
	KindRemovePlayer                        Kind = "RemovePlayer"
	KindRemoveLightcycle                    Kind = "RemoveLightcycle"
	KindRemoveLightribbon                   Kind = "RemoveLightribbon"
	KindUnknown                             Kind = "Unknown"
)

// Op is one delta operation. The set of implementations is closed.
type Op interface {
	Kind() Kind
	isOp()
}

// AddPlayer inserts or overwrites players[ID].
type AddPlayer struct {
	ID     arena.ID
	Player arena.Player
}

// AddLightcycle inserts or overwrites lightcycles[ID].
type AddLightcycle struct {
	ID         arena.ID
	Lightcycle arena.Lightcycle
}

// AddLightribbon inserts or overwrites lightribbons[ID].
type AddLightribbon struct {
	ID          arena.ID
	Lightribbon arena.Lightribbon
}

// Start schedules the round to go live at At.
type Start struct {
	At time.Time
}

// End stops the round.
type End struct{}

// SetWinner records the round winner. A nil ID clears it.
type SetWinner struct {
	ID *arena.ID
}

type UpdateLightcyclePosition struct {
	ID       arena.ID
	Position arena.Point
}

type UpdateLightcycleDirection struct {
	ID        arena.ID
	Direction arena.Direction
}

// UpdateLightcycleApplyDeath marks the lightcycle dead and stops it.
type UpdateLightcycleApplyDeath struct {
	ID arena.ID
}

// UpdateLightribbonAppendPoint commits a new vertex to the ribbon.
type UpdateLightribbonAppendPoint struct {
	ID    arena.ID
	Point arena.Point
}

// UpdateLightribbonReplaceLatestPoint moves the live end of the ribbon.
type UpdateLightribbonReplaceLatestPoint struct {
	ID    arena.ID
	Point arena.Point
}

type RemovePlayer struct {
	ID arena.ID
}

type RemoveLightcycle struct {
	ID arena.ID
}

type RemoveLightribbon struct {
	ID arena.ID
}

// Unknown stands in for an operation whose tag was not recognised.
type Unknown struct {
	Tag string
}

func (AddPlayer) Kind() Kind                           { return KindAddPlayer }
func (AddLightcycle) Kind() Kind                       { return KindAddLightcycle }
func (AddLightribbon) Kind() Kind                      { return KindAddLightribbon }
func (Start) Kind() Kind                               { return KindStart }
func (End) Kind() Kind                                 { return KindEnd }
func (SetWinner) Kind() Kind                           { return KindSetWinner }
func (UpdateLightcyclePosition) Kind() Kind            { return KindUpdateLightcyclePosition }
func (UpdateLightcycleDirection) Kind() Kind           { return KindUpdateLightcycleDirection }
func (UpdateLightcycleApplyDeath) Kind() Kind          { return KindUpdateLightcycleApplyDeath }
func (UpdateLightribbonAppendPoint) Kind() Kind        { return KindUpdateLightribbonAppendPoint }
func (UpdateLightribbonReplaceLatestPoint) Kind() Kind { return KindUpdateLightribbonReplaceLatestPoint }
func (RemovePlayer) Kind() Kind                        { return KindRemovePlayer }
func (RemoveLightcycle) Kind() Kind                    { return KindRemoveLightcycle }
func (RemoveLightribbon) Kind() Kind                   { return KindRemoveLightribbon }
func (Unknown) Kind() Kind                             { return KindUnknown }

func (AddPlayer) isOp()                           {}
func (AddLightcycle) isOp()                       {}
func (AddLightribbon) isOp()                      {}
func (Start) isOp()                               {}
func (End) isOp()                                 {}
func (SetWinner) isOp()                           {}
func (UpdateLightcyclePosition) isOp()            {}
func (UpdateLightcycleDirection) isOp()           {}
func (UpdateLightcycleApplyDeath) isOp()          {}
func (UpdateLightribbonAppendPoint) isOp()        {}
func (UpdateLightribbonReplaceLatestPoint) isOp() {}
func (RemovePlayer) isOp()                        {}
func (RemoveLightcycle) isOp()                    {}
func (RemoveLightribbon) isOp()                   {}
func (Unknown) isOp()                             {}

// Target returns the entity id an operation addresses, if any.
func Target(op Op) (arena.ID, bool) {
	switch v := op.(type) {
	case AddPlayer:
		return v.ID, true
	case AddLightcycle:
		return v.ID, true
	case AddLightribbon:
		return v.ID, true
	case UpdateLightcyclePosition:
		return v.ID, true
	case UpdateLightcycleDirection:
		return v.ID, true
	case UpdateLightcycleApplyDeath:
		return v.ID, true
	case UpdateLightribbonAppendPoint:
		return v.ID, true
	case UpdateLightribbonReplaceLatestPoint:
		return v.ID, true
	case RemovePlayer:
		return v.ID, true
	case RemoveLightcycle:
		return v.ID, true
	case RemoveLightribbon:
		return v.ID, true
	case SetWinner:
		if v.ID != nil {
			return *v.ID, true
		}
	}
	return arena.ID{}, false
}
