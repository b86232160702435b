package server

import "errors"

var (

	// The daemon could not be started or failed while serving.
	ErrServer = errors.New("server error")
)
