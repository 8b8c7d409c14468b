package graph

import "errors"

// Failure kinds. The public fetch methods never return these; they are used to
// classify the failure that was replaced by a sentinel value in logs.
var (
	ErrRequest = errors.New("graph request error")
	ErrStatus  = errors.New("graph response status error")
	ErrDecode  = errors.New("graph response decode error")
)
