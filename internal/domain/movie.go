package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID          int64
	Title       string
	ReleaseDate time.Time
	Genres      []string
	CreatedAt   time.Time
}
