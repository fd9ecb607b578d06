package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

// GenresRepository provides persistence helpers for genres.
type GenresRepository struct {
	pool *pgxpool.Pool
}

// Ensure returns the genre whose name matches case-insensitively, creating it when absent.
// The stored spelling of an existing genre is kept.
func (r *GenresRepository) Ensure(ctx context.Context, name string) (domain.Genre, error) {
	return ensureGenre(ctx, r.pool, name)
}

func ensureGenre(ctx context.Context, q querier, name string) (domain.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Genre{}, fmt.Errorf("genre name cannot be empty")
	}
	const query = `
        INSERT INTO genres (name)
        VALUES ($1)
        ON CONFLICT ((lower(name))) DO UPDATE SET name = genres.name
        RETURNING id, name
    `
	var g domain.Genre
	if err := q.QueryRow(ctx, query, name).Scan(&g.ID, &g.Name); err != nil {
		return domain.Genre{}, fmt.Errorf("ensure genre %q: %w", name, err)
	}
	return g, nil
}

// GetByName fetches a genre by case-insensitive exact name.
func (r *GenresRepository) GetByName(ctx context.Context, name string) (domain.Genre, error) {
	const query = `SELECT id, name FROM genres WHERE lower(name) = lower($1)`
	var g domain.Genre
	err := r.pool.QueryRow(ctx, query, name).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Genre{}, ErrNotFound
		}
		return domain.Genre{}, err
	}
	return g, nil
}

// ListWithCounts returns every genre with its movie count, most populated first.
func (r *GenresRepository) ListWithCounts(ctx context.Context) ([]domain.GenreCount, error) {
	const query = `
        SELECT g.id, g.name, COUNT(mg.movie_id)::int8 AS count
        FROM genres g
        LEFT JOIN movie_genres mg ON mg.genre_id = g.id
        GROUP BY g.id, g.name
        ORDER BY count DESC, g.id ASC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.GenreCount, 0)
	for rows.Next() {
		var gc domain.GenreCount
		if err := rows.Scan(&gc.ID, &gc.Name, &gc.Count); err != nil {
			return nil, err
		}
		results = append(results, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
