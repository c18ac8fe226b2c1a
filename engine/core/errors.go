package core

import (
	"errors"
)

var (
	ErrUnknown           = errors.New("unknown")
	ErrInvalidAsset      = errors.New("invalid asset")
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNoHumanoid        = errors.New("asset has no humanoid bones")
	ErrUnsupportedAudio  = errors.New("unsupported audio format")
	ErrLoadSuperseded    = errors.New("load superseded by a newer request")
	ErrManagerClosed     = errors.New("manager already closed")
)
