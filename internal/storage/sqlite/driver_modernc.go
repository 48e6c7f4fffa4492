//go:build !cgo_sqlite

package sqlite

import _ "modernc.org/sqlite"

// driverName is the pure Go driver, used unless built with -tags cgo_sqlite.
const driverName = "sqlite"
