package auth

import "errors"

var (
	// ErrInvalidToken covers a bad signature, wrong issuer, wrong kind or a
	// malformed credential.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken means the signature and issuer checked out but the
	// token is past its expiration.
	ErrExpiredToken = errors.New("token has expired")

	// ErrUnauthenticated means no usable credential was presented, or the
	// credential was valid but its subject no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")
)
