//go:build cgo && sqlite3_cgo

package db

import _ "github.com/mattn/go-sqlite3"

// -tags sqlite3_cgo swaps the wasm driver for the cgo one
const (
	driverID   = "mattn/go-sqlite3"
	driverName = "sqlite3"
)
