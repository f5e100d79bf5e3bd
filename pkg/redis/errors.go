package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned when no connection URL is
	// configured.
	ErrEmptyConnectionURL = errors.New("redis connection URL is empty")

	// ErrFailedToParseConfig is returned when the connection URL cannot
	// be parsed.
	ErrFailedToParseConfig = errors.New("failed to parse redis config")

	// ErrFailedToConnect is returned when the client cannot be
	// established after all retry attempts.
	ErrFailedToConnect = errors.New("failed to connect to redis")

	// ErrHealthcheckFailed is returned when a ping against an open
	// client fails.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
