package protocol

import "errors"

var (

	// An envelope was empty or whitespace only.
	ErrEmptyMessage = errors.New("empty message")

	// An envelope carried no command.
	ErrMissingCommand = errors.New("missing command")

	// A command that requires a payload arrived without one.
	ErrMissingPayload = errors.New("missing payload")
)
