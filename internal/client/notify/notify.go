// Package notify is the user-visible message surface. The sync core
// only ever needs a fire-and-forget function of (message, kind); what
// renders it is up to the caller.
package notify

import "github.com/rs/zerolog"

type Kind int

const (
	Info Kind = iota
	Success
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Func shows one message to the user.
type Func func(message string, kind Kind)

// Discard drops every message.
func Discard(string, Kind) {}

// Logger routes messages to a zerolog logger, which is all a headless
// client needs.
func Logger(logger zerolog.Logger) Func {
	return func(message string, kind Kind) {
		switch kind {
		case Error:
			logger.Error().Msg(message)
		case Success:
			logger.Info().Msg(message)
		default:
			logger.Info().Msg(message)
		}
	}
}
