package engine

import (
	"errors"
	"fmt"
)

// ErrFailed signals a domain wipeout during propagation or decision
// application. It is the normal "this subtree is infeasible" verdict and
// is consumed by the search driver; callers only ever observe it through
// a false result of Solve or a failed Restore.
var ErrFailed = errors.New("engine: failed")

// ErrContract marks caller misuse (out-of-range index, unknown variable
// name, malformed snapshot). Errors wrapping ErrContract indicate a bug
// in the calling code, not an infeasible model; recovering from them is
// the caller's choice.
var ErrContract = errors.New("engine: contract violation")

// ErrUnknownVariable is returned when loading a snapshot that names a
// variable the assignment does not hold. It wraps ErrContract.
var ErrUnknownVariable = fmt.Errorf("%w: unknown variable in snapshot", ErrContract)
