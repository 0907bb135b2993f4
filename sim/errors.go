package sim

import "errors"

// Validation errors returned by mutating operations. All are local and
// recoverable; a rejected call leaves engine state untouched.
var (
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrInvalidInstrumentIndex = errors.New("invalid instrument index")
	ErrOrderNotFound          = errors.New("order not found")
	ErrPositionNotFound       = errors.New("position not found")
	ErrInvalidArgument        = errors.New("invalid argument")
)
