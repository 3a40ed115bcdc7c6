// Package ports defines interfaces (contracts) between layers.
// Implementations live in adapters/.
package ports

import "time"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}
