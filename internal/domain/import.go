package domain

import "time"

// Import records one CSV file that was turned into queued messages.
type Import struct {
	ID         string
	FileName   string
	Checksum   string
	TotalCount int
	ErrorCount int
	CreatedAt  time.Time
}
