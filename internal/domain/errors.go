package domain

import "errors"

var (
	ErrEmptyQuery   = errors.New("missing 'query' in request body")
	ErrQueryTooLong = errors.New("query too long")
)
