package warehouse

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
)

// classify maps raw driver errors onto the DataSource taxonomy. The
// retrieval engine keys its one-shot flat-projection retry off
// KindProjection, so binder and permission failures must land there and
// nowhere else. Anything unrecognized is presumed transient.
func classify(op, table string, err error) error {
	if err == nil {
		return nil
	}

	kind := datasource.KindNetwork
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = datasource.KindNotFound
	case strings.Contains(msg, "binder error"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "denied"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "unknown column"):
		kind = datasource.KindProjection
	case strings.Contains(msg, "catalog error"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "no such table"):
		kind = datasource.KindNotFound
	}

	return &datasource.Error{Kind: kind, Op: op, Table: table, Err: err}
}
