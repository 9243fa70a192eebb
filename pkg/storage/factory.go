package storage

import (
	"fmt"

	"webscope/pkg/config"
	wserrors "webscope/pkg/errors"
)

// NewStore returns a concrete Store based on database configuration.
// Type "none" disables the event log (nil Store, nil error).
func NewStore(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	case "mysql":
		return NewMySQLStore(cfg.Path)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", wserrors.ErrUnsupportedDatabase, cfg.Type)
	}
}
