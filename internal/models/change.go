package models

import "time"

// Change notifies subscribers that a collection was written.
type Change struct {
	Collection Collection `json:"collection"`
	At         time.Time  `json:"at"`
}
