package netlist

import "errors"

// ErrSyntax marks malformed netlist input. Errors carry the offending line.
var ErrSyntax = errors.New("netlist: syntax error")
