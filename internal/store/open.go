package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Open returns the backend selected by driver. Only one backend is active
// per deployment.
func Open(ctx context.Context, driver, dbPath, usersFile string) (Repo, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		r, err := OpenSQLite(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverFile:
		r, err := OpenFile(usersFile)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want %s or %s)", driver, DriverSQLite, DriverFile)
	}
}
