package datasource

import (
	"errors"
	"fmt"
)

// Kind classifies a DataSource failure. The retrieval engine dispatches
// its one-shot flat-projection retry on KindProjection; everything else
// is terminal for the run.
type Kind int

const (
	// KindNetwork covers transport failures: dial errors, timeouts,
	// dropped connections.
	KindNetwork Kind = iota
	// KindProjection means the backend rejected the requested shape,
	// typically a join the access policy does not allow.
	KindProjection
	// KindNotFound means the relation itself does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindProjection:
		return "projection"
	case KindNotFound:
		return "not_found"
	default:
		return "network"
	}
}

type Error struct {
	Kind  Kind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("datasource %s %s: %s: %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsProjection(err error) bool { return hasKind(err, KindProjection) }
func IsNetwork(err error) bool    { return hasKind(err, KindNetwork) }
func IsNotFound(err error) bool   { return hasKind(err, KindNotFound) }

func hasKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
