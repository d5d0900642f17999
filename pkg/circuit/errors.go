package circuit

import "errors"

var (
	ErrNoGround      = errors.New("circuit: no element connects to ground")
	ErrUnknownSource = errors.New("circuit: unknown independent source")
	ErrNotBuilt      = errors.New("circuit: matrix not created")
)
