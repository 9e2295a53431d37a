package payment

import "errors"

var (
	ErrUnsupportedProvider  = errors.New("unsupported payment provider")
	ErrGatewayConfigMissing = errors.New("payment gateway configuration missing")
	ErrInvalidSignature     = errors.New("invalid gateway signature")
)
