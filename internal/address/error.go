package address

import "errors"

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrUnauthenticated = errors.New("unauthenticated")
)
