package view

import (
	"github.com/gdamore/tcell/v2"

	"webtron/client/internal/arena"
	"webtron/client/internal/net/proto"
)

// Sender accepts intents produced by the keyboard.
type Sender interface {
	Send(proto.Outbound) error
}

// EventSource is the part of tcell.Screen the input loop reads from.
type EventSource interface {
	PollEvent() tcell.Event
	Sync()
}

// intentForKey maps a key press onto an intent. quit reports a request to
// leave the game.
func intentForKey(key tcell.Key, r rune) (msg proto.Outbound, quit bool) {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyUp:
		return proto.Turn{Direction: arena.DirectionUp}, false
	case tcell.KeyDown:
		return proto.Turn{Direction: arena.DirectionDown}, false
	case tcell.KeyLeft:
		return proto.Turn{Direction: arena.DirectionLeft}, false
	case tcell.KeyRight:
		return proto.Turn{Direction: arena.DirectionRight}, false
	case tcell.KeyRune:
	default:
		return nil, false
	}

	switch r {
	case 'q', 'Q':
		return nil, true
	case 'w', 'W':
		return proto.Turn{Direction: arena.DirectionUp}, false
	case 's', 'S':
		return proto.Turn{Direction: arena.DirectionDown}, false
	case 'a', 'A':
		return proto.Turn{Direction: arena.DirectionLeft}, false
	case 'd', 'D':
		return proto.Turn{Direction: arena.DirectionRight}, false
	case ' ':
		return proto.Start{}, false
	default:
		return nil, false
	}
}

// Listen forwards key presses to sender until the player quits or the screen
// is finalized. Send failures are left to the sender to report.
func Listen(events EventSource, sender Sender) {
	for {
		switch ev := events.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			events.Sync()
		case *tcell.EventKey:
			msg, quit := intentForKey(ev.Key(), ev.Rune())
			if quit {
				return
			}
			if msg != nil {
				sender.Send(msg)
			}
		}
	}
}
