package admin

import "github.com/pkg/errors"

var (
	ErrUnknownTable  = errors.New("admin: unknown table kind")
	ErrTableNotFound = errors.New("admin: table not found on page")
	ErrUnknownColumn = errors.New("admin: unknown sort column")
	ErrNoSelection   = errors.New("admin: no items selected")
	ErrDeclined      = errors.New("admin: action not confirmed")
	ErrRejected      = errors.New("admin: action rejected by server")
)
