package postgres

import (
	"fmt"

	domerr "github.com/inferia-ai/inferia/pkg/domain/errors"
)

// requested row is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return domerr.ErrMissing
}

// a row with same identity exists already.
type Duplication struct {
	Table    string
	Identity string
}

var _ error = Duplication{}

func (d Duplication) Error() string {
	return fmt.Sprintf("%s exists in %s already", d.Identity, d.Table)
}

func (d Duplication) Unwrap() error {
	return domerr.ErrConflict
}
