package config

import "errors"

var (
	ErrEmptyDatabasePath = errors.New("config: database path is empty")
	ErrUnknownDriver     = errors.New("config: unknown database driver")
	ErrInvalidCap        = errors.New("config: cap must be positive")
	ErrInvalidDuration   = errors.New("config: invalid duration")
)
