package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/pagination"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    m.id,
    m.title,
    m.release_date,
    COALESCE((
        SELECT array_agg(g.name ORDER BY g.name)
        FROM movie_genres mg
        JOIN genres g ON g.id = mg.genre_id
        WHERE mg.movie_id = m.id
    ), '{}') AS genres,
    m.created_at
`

// MovieOrder selects the sort applied by List.
type MovieOrder int

const (
	// OrderByID sorts by identity ascending.
	OrderByID MovieOrder = iota
	// OrderByReleaseDateDesc sorts newest release first.
	OrderByReleaseDateDesc
	// OrderByCreatedAtDesc sorts most recently inserted first.
	OrderByCreatedAtDesc
)

func (o MovieOrder) clause() string {
	switch o {
	case OrderByReleaseDateDesc:
		return "m.release_date DESC, m.id DESC"
	case OrderByCreatedAtDesc:
		return "m.created_at DESC, m.id DESC"
	default:
		return "m.id ASC"
	}
}

// MovieCreateParams bundles the fields required to create a movie.
type MovieCreateParams struct {
	Title       string
	ReleaseDate time.Time
	Genres      []string
	// CreatedAt overrides the insertion timestamp; zero means now.
	CreatedAt time.Time
}

// MovieListFilters narrows and orders a movie listing.
type MovieListFilters struct {
	GenreID       *int64
	ReleasedSince *time.Time
	Order         MovieOrder
	PerPage       int
}

// Create inserts a new movie with its genre associations and returns the stored entity.
// Genres are matched case-insensitively and created when missing.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("begin create movie: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var createdAt *time.Time
	if !params.CreatedAt.IsZero() {
		createdAt = &params.CreatedAt
	}

	var id int64
	err = tx.QueryRow(ctx, `
        INSERT INTO movies (title, release_date, created_at)
        VALUES ($1, $2, COALESCE($3, now()))
        RETURNING id
    `, params.Title, params.ReleaseDate, createdAt).Scan(&id)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("insert movie: %w", err)
	}

	for _, name := range params.Genres {
		if strings.TrimSpace(name) == "" {
			continue
		}
		genre, err := ensureGenre(ctx, tx, name)
		if err != nil {
			return domain.Movie{}, err
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, id, genre.ID); err != nil {
			return domain.Movie{}, fmt.Errorf("link genre %q: %w", genre.Name, err)
		}
	}

	movie, err := scanMovie(tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM movies m WHERE m.id = $1`, movieColumns), id))
	if err != nil {
		return domain.Movie{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Movie{}, fmt.Errorf("commit create movie: %w", err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies m WHERE m.id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// List returns the requested page of movies matching filters. Page selectors outside the
// result set fail with pagination.ErrInvalidPage.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters, page pagination.Request) (pagination.Page[domain.Movie], error) {
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = pagination.PageSize
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.GenreID != nil {
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM movie_genres f WHERE f.movie_id = m.id AND f.genre_id = %s)", arg(*filters.GenreID)))
	}
	if filters.ReleasedSince != nil {
		where = append(where, fmt.Sprintf("m.release_date >= %s::date", arg(*filters.ReleasedSince)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM movies m"+whereClause, args...).Scan(&total); err != nil {
		return pagination.Page[domain.Movie]{}, fmt.Errorf("count movies: %w", err)
	}

	window, err := pagination.Resolve(page, total, perPage)
	if err != nil {
		return pagination.Page[domain.Movie]{}, err
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies m")
	queryBuilder.WriteString(whereClause)
	queryBuilder.WriteString(" ORDER BY ")
	queryBuilder.WriteString(filters.Order.clause())
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", window.Limit, window.Offset))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return pagination.Page[domain.Movie]{}, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0, window.Limit)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return pagination.Page[domain.Movie]{}, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Movie]{}, err
	}

	return pagination.NewPage(window, total, items), nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.ReleaseDate,
		&movie.Genres,
		&movie.CreatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
