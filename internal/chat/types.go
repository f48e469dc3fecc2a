package chat

import "strings"

// WelcomeMessage is the first line every accepted connection receives.
const WelcomeMessage = "Welcome to the chat server!"

// UnnamedUser stands in for the display name of a connection that closed
// before sending one.
const UnnamedUser = "unknown"

const exitCommand = "exit"

// State is a session's position in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateJoining
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrConnClosed    = errorString("connection closed")
	ErrSendQueueFull = errorString("send queue full")
)

type errorString string

func (e errorString) Error() string { return string(e) }

func joinedLine(name string) string { return name + " has joined the chat." }

func leftLine(name string) string { return name + " has left the chat." }

func chatLine(name, text string) string { return name + ": " + text }

func isExit(line string) bool { return strings.EqualFold(line, exitCommand) }
