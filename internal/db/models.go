// Package db provides SQLite storage for looked-up word definitions.
package db

import "time"

// Definition is a cached lookup result.
type Definition struct {
	Word      string
	Text      string
	CreatedAt time.Time
}
