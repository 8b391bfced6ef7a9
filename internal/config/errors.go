package config

import "errors"

var (
	// ErrMissingDatabaseURL is returned when the postgres driver has no DSN.
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres store")
	// ErrMissingRedisURL is returned when the redis driver has no URL.
	ErrMissingRedisURL = errors.New("REDIS_URL is required for the redis store")
	// ErrUnknownDriver is returned for an unsupported store driver.
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrInvalid wraps any other out-of-range setting.
	ErrInvalid = errors.New("invalid configuration")
)
