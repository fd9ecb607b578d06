package domain

import "time"

// Rating represents a single user's rating for a movie. At most one exists per (MovieID, OwnerID).
type Rating struct {
	ID        int64
	MovieID   int64
	OwnerID   string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
