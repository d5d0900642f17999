package matrix

import "errors"

var (
	ErrUnknownBackend  = errors.New("matrix: unknown solver backend")
	ErrIndexOutOfRange = errors.New("matrix: index out of range")
	ErrSingular        = errors.New("matrix: singular system")
)
