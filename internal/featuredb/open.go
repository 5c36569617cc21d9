package featuredb

import (
	"fmt"

	"go.uber.org/zap"
)

// Driver names accepted by Open.
const (
	DriverText   = "text"
	DriverSQLite = "sqlite"
)

// Open returns a Store for the named driver: "text" (default) or "sqlite".
func Open(driver, path string, logger *zap.Logger) (Store, error) {
	switch driver {
	case "", DriverText:
		return NewTextStore(path, logger), nil
	case DriverSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("featuredb: unknown driver %q", driver)
	}
}
