package domain

// Genre groups movies. Names are unique regardless of case.
type Genre struct {
	ID   int64
	Name string
}

// GenreCount is a genre annotated with the number of movies attached to it.
type GenreCount struct {
	Genre
	Count int64
}
