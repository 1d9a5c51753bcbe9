package ids

import "github.com/segmentio/ksuid"

// New returns a time-sortable, globally unique identifier.
func New() string {
	return ksuid.New().String()
}

