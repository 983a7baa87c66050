package jp2

import (
	"errors"
	"fmt"
)

// Status is the terminal state of a decode session
type Status int

const (
	StatusOK Status = iota
	StatusStreamCreateFailed
	StatusDecoderSetupFailed
	StatusHeaderReadFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusStreamCreateFailed:
		return "STREAM_CREATE_FAILED"
	case StatusDecoderSetupFailed:
		return "DECODER_SETUP_FAILED"
	case StatusHeaderReadFailed:
		return "HEADER_READ_FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	ErrNotJP2         = errors.New("jp2: not a JP2 file")
	ErrStreamCreate   = errors.New("jp2: stream creation failed")
	ErrDecoderSetup   = errors.New("jp2: decoder setup failed")
	ErrHeaderRead     = errors.New("jp2: header read failed")
	ErrTileDecode     = errors.New("jp2: tile decode failed")
	ErrSessionNotOpen = errors.New("jp2: session not open")
	ErrBadReduction   = errors.New("jp2: negative reduction")
)

func (s Status) sentinel() error {
	switch s {
	case StatusStreamCreateFailed:
		return ErrStreamCreate
	case StatusDecoderSetupFailed:
		return ErrDecoderSetup
	case StatusHeaderReadFailed:
		return ErrHeaderRead
	default:
		return nil
	}
}

// SessionError is returned when a session fails during setup. The resources
// acquired before the failing stage have already been released.
type SessionError struct {
	Status Status
	Path   string
	Err    error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Status.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Status.sentinel(), e.Err)
}

func (e *SessionError) Unwrap() []error {
	errs := []error{e.Status.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// TileError reports a failed tile decode
type TileError struct {
	TileIndex int
	Err       error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("%s: tile %d: %v", ErrTileDecode, e.TileIndex, e.Err)
}

func (e *TileError) Unwrap() []error {
	return []error{ErrTileDecode, e.Err}
}
