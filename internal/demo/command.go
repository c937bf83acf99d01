package demo

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/esm/internal/esm"
)

// Event id layout. The top bit is never set, so every encoded command is a
// valid non-negative esm.EventID.
const (
	MaskCommand uint32 = 0x7F000000
	MaskTimerID uint32 = 0x007F0000
	MaskTimeout uint32 = 0x0000FFFF
	BitRepeat   uint32 = 0x00800000

	timerIDShift = 16
)

// Kind selects the machine operation a command event performs.
type Kind uint32

const (
	KindNextHandler Kind = 0x00000000
	KindSetTimer    Kind = 0x01000000
	KindKillTimer   Kind = 0x02000000
	KindSetGTimer   Kind = 0x03000000
	KindKillGTimer  Kind = 0x04000000
	KindPostMessage Kind = 0x05000000
)

func (k Kind) String() string {
	switch k {
	case KindNextHandler:
		return "next-handler"
	case KindSetTimer:
		return "set-timer"
	case KindKillTimer:
		return "kill-timer"
	case KindSetGTimer:
		return "set-gtimer"
	case KindKillGTimer:
		return "kill-gtimer"
	case KindPostMessage:
		return "post-msg-inner"
	default:
		return fmt.Sprintf("kind(0x%08X)", uint32(k))
	}
}

// Command is a decoded command event.
type Command struct {
	Kind    Kind
	TimerID esm.TimerID
	Timeout esm.Tick
	Repeat  bool
}

// Encode packs c into an event id. Fields that do not fit are truncated.
func (c Command) Encode() esm.EventID {
	bits := uint32(c.Kind) & MaskCommand
	bits |= (uint32(c.TimerID) << timerIDShift) & MaskTimerID
	bits |= uint32(c.Timeout) & MaskTimeout
	if c.Repeat {
		bits |= BitRepeat
	}
	return esm.EventID(bits)
}

// Decode unpacks an event id produced by Encode.
func Decode(id esm.EventID) Command {
	bits := uint32(id)
	return Command{
		Kind:    Kind(bits & MaskCommand),
		TimerID: esm.TimerID((bits & MaskTimerID) >> timerIDShift),
		Timeout: esm.Tick(bits & MaskTimeout),
		Repeat:  bits&BitRepeat != 0,
	}
}

// Console commands that are handled by the driver rather than encoded.
const (
	CommandPostOuter = "post-msg-outer"
	CommandExit      = "exit"
	CommandHelp      = "help"
)

// Spec describes one console command.
type Spec struct {
	Name        string
	Args        string
	Description string
	kind        Kind
	encodes     bool
}

// Commands lists the console commands in name order.
var Commands = []Spec{
	{Name: "exit", Args: "(no option)", Description: "Exit program."},
	{Name: "help", Args: "(no option)", Description: "Show help message."},
	{Name: "kill-gtimer", Args: "id", Description: "Kill global timer.", kind: KindKillGTimer, encodes: true},
	{Name: "kill-timer", Args: "id", Description: "Kill timer.", kind: KindKillTimer, encodes: true},
	{Name: "next-handler", Args: "(no option)", Description: "Set next event handler.", kind: KindNextHandler, encodes: true},
	{Name: "post-msg-inner", Args: "(no option)", Description: "Post message (from the main loop).", kind: KindPostMessage, encodes: true},
	{Name: "post-msg-outer", Args: "(no option)", Description: "Post message (from the console goroutine)."},
	{Name: "set-gtimer", Args: "id timeout-millis repeat-[off|on]", Description: "Start global timer.", kind: KindSetGTimer, encodes: true},
	{Name: "set-timer", Args: "id timeout-millis repeat-[off|on]", Description: "Start timer.", kind: KindSetTimer, encodes: true},
}

// Lookup returns the command named name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Commands {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Limits bounds the timer ids a command may address.
type Limits struct {
	MaxTimer       int
	MaxGlobalTimer int
}

var (
	// ErrUnknownCommand is returned for a command name not in Commands.
	ErrUnknownCommand = errors.New("command not found")

	// ErrNotEncodable is returned for driver commands that have no event
	// form (exit, help, post-msg-outer).
	ErrNotEncodable = errors.New("command is not an event")
)

// CommandError reports an invalid console command line.
type CommandError struct {
	Command string
	Message string
	Usage   bool
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// EncodeCommand parses console words into a command event.
func EncodeCommand(argv []string, limits Limits) (esm.EventID, error) {
	if len(argv) == 0 {
		return 0, ErrUnknownCommand
	}
	spec, ok := Lookup(argv[0])
	if !ok {
		return 0, fmt.Errorf("%s: %w", argv[0], ErrUnknownCommand)
	}
	if !spec.encodes {
		return 0, fmt.Errorf("%s: %w", argv[0], ErrNotEncodable)
	}

	usage := &CommandError{Command: spec.Name, Message: "usage: " + spec.Name + " " + spec.Args, Usage: true}
	c := Command{Kind: spec.kind}

	switch spec.kind {
	case KindNextHandler, KindPostMessage:
		if len(argv) != 1 {
			return 0, usage
		}

	case KindKillTimer, KindKillGTimer:
		if len(argv) != 2 {
			return 0, usage
		}
		id, err := parseTimerID(spec, argv[1], limitFor(spec.kind, limits))
		if err != nil {
			return 0, err
		}
		c.TimerID = id

	case KindSetTimer, KindSetGTimer:
		if len(argv) != 4 {
			return 0, usage
		}
		id, err := parseTimerID(spec, argv[1], limitFor(spec.kind, limits))
		if err != nil {
			return 0, err
		}
		timeout, err := parseTimeout(spec, argv[2])
		if err != nil {
			return 0, err
		}
		repeat, err := parseRepeat(spec, argv[3])
		if err != nil {
			return 0, err
		}
		c.TimerID, c.Timeout, c.Repeat = id, timeout, repeat
	}

	return c.Encode(), nil
}

func limitFor(k Kind, limits Limits) int {
	n := limits.MaxTimer
	if k == KindSetGTimer || k == KindKillGTimer {
		n = limits.MaxGlobalTimer
	}
	// The event layout has 7 bits for the id.
	if maxID := int(MaskTimerID >> timerIDShift); n > maxID+1 {
		n = maxID + 1
	}
	return n
}

func parseTimerID(spec Spec, s string, limit int) (esm.TimerID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n >= uint64(limit) {
		return 0, &CommandError{Command: spec.Name, Message: "invalid id: " + s}
	}
	return esm.TimerID(n), nil
}

func parseTimeout(spec Spec, s string) (esm.Tick, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n > uint64(MaskTimeout) {
		return 0, &CommandError{Command: spec.Name, Message: "invalid timeout value: " + s}
	}
	return esm.Tick(n), nil
}

func parseRepeat(spec Spec, s string) (bool, error) {
	switch s {
	case "repeat-off":
		return false, nil
	case "repeat-on":
		return true, nil
	default:
		return false, &CommandError{Command: spec.Name, Message: "invalid repeat switch: " + s}
	}
}
