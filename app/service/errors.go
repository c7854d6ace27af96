package service

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrTokenNotFound    = errors.New("recurring token not found")
	ErrInvalidSignature = errors.New("invalid hmac signature")
	ErrSignatureCheck   = errors.New("hmac validation error")
)
