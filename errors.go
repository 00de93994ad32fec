package midifile

import "errors"

// Errors reported by the decoder and by track-indexed File operations.
// Decode errors are final for that input: retrying the same bytes fails the
// same way, and no partial File is ever returned.
var (
	ErrHeader        = errors.New("invalid MThd header")
	ErrTrackHeader   = errors.New("invalid MTrk header")
	ErrFormat        = errors.New("unsupported format")
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	ErrVarLen        = errors.New("invalid variable-length quantity")
	ErrStatus        = errors.New("invalid status byte")
	ErrRunningStatus = errors.New("data byte without prior status byte")
	ErrTrackRange    = errors.New("track index out of range")
)

// StopIteration can be returned from an event callback to end iteration
// without failure.
var StopIteration = errors.New("ForEachEvent: StopIteration")
