package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

// catalogFile is the TOML layout accepted by "catalog import":
//
//	[[genre]]
//	name = "Drama"
//
//	[[movie]]
//	title = "Arrival"
//	release_date = 2016-11-11
//	genres = ["Drama", "Sci-Fi"]
//	created_at = 2024-01-02T03:04:05Z
type catalogFile struct {
	Genres []genreEntry `toml:"genre"`
	Movies []movieEntry `toml:"movie"`
}

type genreEntry struct {
	Name string `toml:"name"`
}

type movieEntry struct {
	Title       string         `toml:"title"`
	ReleaseDate toml.LocalDate `toml:"release_date"`
	Genres      []string       `toml:"genres"`
	CreatedAt   *time.Time     `toml:"created_at"`
}

func parseCatalogFile(r io.Reader) (catalogFile, error) {
	var file catalogFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return catalogFile{}, fmt.Errorf("parse catalog file: %w", err)
	}
	return file, nil
}

func (m movieEntry) input() catalog.MovieInput {
	in := catalog.MovieInput{
		Title:  m.Title,
		Genres: m.Genres,
	}
	if m.ReleaseDate != (toml.LocalDate{}) {
		in.ReleaseDate = m.ReleaseDate.String()
	}
	if m.CreatedAt != nil {
		in.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	return in
}

type catalogWriter interface {
	CreateGenre(ctx context.Context, in catalog.GenreInput) (domain.Genre, error)
	CreateMovie(ctx context.Context, in catalog.MovieInput) (domain.Movie, error)
}

type importSummary struct {
	Genres int
	Movies int
}

// importCatalog writes genres before movies and stops at the first failure.
func importCatalog(ctx context.Context, w catalogWriter, file catalogFile) (importSummary, error) {
	var summary importSummary
	for i, g := range file.Genres {
		if _, err := w.CreateGenre(ctx, catalog.GenreInput{Name: g.Name}); err != nil {
			return summary, fmt.Errorf("genre #%d %q: %w", i+1, g.Name, err)
		}
		summary.Genres++
	}
	for i, m := range file.Movies {
		if _, err := w.CreateMovie(ctx, m.input()); err != nil {
			return summary, fmt.Errorf("movie #%d %q: %w", i+1, m.Title, err)
		}
		summary.Movies++
	}
	return summary, nil
}
