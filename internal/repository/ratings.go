package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

// RatingsRepository provides helpers for movie ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	MovieID int64
	OwnerID string
	Value   int
}

const ratingColumns = `id, movie_id, owner_id, value, created_at, updated_at`

// Upsert records the owner's rating for a movie in a single statement and indicates
// whether a row was created. A missing movie yields ErrNotFound.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO ratings (movie_id, owner_id, value)
        SELECT m.id, $2, $3 FROM movies m WHERE m.id = $1
        ON CONFLICT (movie_id, owner_id)
        DO UPDATE SET value = EXCLUDED.value, updated_at = now()
        RETURNING %s, (xmax = 0) AS inserted
    `, ratingColumns)

	var rating domain.Rating
	var inserted bool
	err := r.pool.QueryRow(ctx, query, params.MovieID, params.OwnerID, params.Value).Scan(
		&rating.ID,
		&rating.MovieID,
		&rating.OwnerID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
			return domain.Rating{}, false, ErrNotFound
		}
		return domain.Rating{}, false, err
	}

	return rating, inserted, nil
}

// Get retrieves a rating for a specific owner/movie combination.
func (r *RatingsRepository) Get(ctx context.Context, movieID int64, ownerID string) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE movie_id = $1 AND owner_id = $2`, ratingColumns)
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, movieID, ownerID).Scan(
		&rating.ID,
		&rating.MovieID,
		&rating.OwnerID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// CountForMovie returns how many owners have rated the movie.
func (r *RatingsRepository) CountForMovie(ctx context.Context, movieID int64) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE movie_id = $1`, movieID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return count, nil
}
