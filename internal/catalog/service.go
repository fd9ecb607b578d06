// Package catalog implements the movie catalog operations: listings, detail lookups,
// genre browsing and rating submission. Each operation takes parsed inputs and returns a
// structured result for the transport layer to render.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-catalog/internal/config"
	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/logging"
	"github.com/Clark-Hu/movie-catalog/internal/metrics"
	"github.com/Clark-Hu/movie-catalog/internal/pagination"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
)

var (
	// ErrNotFound covers unknown movies, unknown genres and out-of-range pages.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUnauthenticated is returned when a write is attempted without a user.
	ErrUnauthenticated = errors.New("catalog: authentication required")
)

// MovieStore is the movie persistence the service relies on.
type MovieStore interface {
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	GetByID(ctx context.Context, id int64) (domain.Movie, error)
	List(ctx context.Context, filters repository.MovieListFilters, page pagination.Request) (pagination.Page[domain.Movie], error)
}

// GenreStore is the genre persistence the service relies on.
type GenreStore interface {
	Ensure(ctx context.Context, name string) (domain.Genre, error)
	GetByName(ctx context.Context, name string) (domain.Genre, error)
	ListWithCounts(ctx context.Context) ([]domain.GenreCount, error)
}

// RatingStore is the rating persistence the service relies on.
type RatingStore interface {
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error)
	Get(ctx context.Context, movieID int64, ownerID string) (domain.Rating, error)
}

// Options tunes a Service.
type Options struct {
	// RecentReleaseWindowDays defaults to config.DefaultRecentReleaseWindowDays.
	RecentReleaseWindowDays int
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Service answers catalog queries.
type Service struct {
	movies  MovieStore
	genres  GenreStore
	ratings RatingStore

	windowDays int
	now        func() time.Time
	logger     zerolog.Logger
}

// New builds a Service over the given stores.
func New(movies MovieStore, genres GenreStore, ratings RatingStore, opts Options) *Service {
	if opts.RecentReleaseWindowDays <= 0 {
		opts.RecentReleaseWindowDays = config.DefaultRecentReleaseWindowDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		movies:     movies,
		genres:     genres,
		ratings:    ratings,
		windowDays: opts.RecentReleaseWindowDays,
		now:        opts.Now,
		logger:     logging.Component(opts.Logger, "catalog"),
	}
}

// NewFromRepository wires a Service to the Postgres repositories.
func NewFromRepository(repo *repository.Repository, opts Options) *Service {
	return New(repo.Movies, repo.Genres, repo.Ratings, opts)
}

// MoviePage is one page of a movie listing.
type MoviePage = pagination.Page[domain.Movie]

// MovieDetail is a movie plus the caller's own rating, when one exists.
type MovieDetail struct {
	Movie      domain.Movie
	UserRating *int
}

// GenreListing is a page of a genre's movies plus the name as the caller typed it.
type GenreListing struct {
	Genre  domain.Genre
	Browse string
	Page   MoviePage
}

// ListMovies returns every movie ordered by id.
func (s *Service) ListMovies(ctx context.Context, page pagination.Request) (MoviePage, error) {
	return s.list(ctx, repository.MovieListFilters{Order: repository.OrderByID}, page)
}

// MovieDetail returns the movie and, for an authenticated principal, their rating of it.
func (s *Service) MovieDetail(ctx context.Context, id int64, p domain.Principal) (MovieDetail, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return MovieDetail{}, notFound(err, "movie %d", id)
	}

	detail := MovieDetail{Movie: movie}
	if !p.Authenticated() {
		return detail, nil
	}
	rating, err := s.ratings.Get(ctx, movie.ID, p.Subject)
	switch {
	case err == nil:
		value := rating.Value
		detail.UserRating = &value
	case errors.Is(err, repository.ErrNotFound):
	default:
		return MovieDetail{}, fmt.Errorf("load user rating: %w", err)
	}
	return detail, nil
}

// ListGenres returns all genres with their movie counts, most populated first.
func (s *Service) ListGenres(ctx context.Context) ([]domain.GenreCount, error) {
	genres, err := s.genres.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// MoviesByGenre returns the movies of the genre whose name matches case-insensitively.
func (s *Service) MoviesByGenre(ctx context.Context, name string, page pagination.Request) (GenreListing, error) {
	genre, err := s.genres.GetByName(ctx, name)
	if err != nil {
		return GenreListing{}, notFound(err, "genre %q", name)
	}
	movies, err := s.list(ctx, repository.MovieListFilters{GenreID: &genre.ID, Order: repository.OrderByID}, page)
	if err != nil {
		return GenreListing{}, err
	}
	return GenreListing{Genre: genre, Browse: name, Page: movies}, nil
}

// RecentReleases returns movies released inside the trailing window, newest first.
func (s *Service) RecentReleases(ctx context.Context, page pagination.Request) (MoviePage, error) {
	since := s.ReleaseCutoff()
	return s.list(ctx, repository.MovieListFilters{ReleasedSince: &since, Order: repository.OrderByReleaseDateDesc}, page)
}

// ReleaseCutoff is the earliest release date included in RecentReleases.
func (s *Service) ReleaseCutoff() time.Time {
	now := s.now().UTC().AddDate(0, 0, -s.windowDays)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// RecentlyAdded returns every movie, most recently inserted first.
func (s *Service) RecentlyAdded(ctx context.Context, page pagination.Request) (MoviePage, error) {
	return s.list(ctx, repository.MovieListFilters{Order: repository.OrderByCreatedAtDesc}, page)
}

// RateMovie records p's rating of a movie, replacing any earlier value. rawValue is the
// submitted form value and must parse as an integer.
func (s *Service) RateMovie(ctx context.Context, p domain.Principal, movieID int64, rawValue string) (domain.Rating, bool, error) {
	if !p.Authenticated() {
		return domain.Rating{}, false, ErrUnauthenticated
	}
	value, err := ParseRatingValue(rawValue)
	if err != nil {
		return domain.Rating{}, false, err
	}

	rating, created, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
		MovieID: movieID,
		OwnerID: p.Subject,
		Value:   value,
	})
	if err != nil {
		return domain.Rating{}, false, notFound(err, "movie %d", movieID)
	}

	metrics.RecordRating(created)
	s.logger.Debug().
		Int64("movie_id", movieID).
		Str("owner", p.Subject).
		Int("value", value).
		Bool("created", created).
		Msg("rating stored")
	return rating, created, nil
}

func (s *Service) list(ctx context.Context, filters repository.MovieListFilters, page pagination.Request) (MoviePage, error) {
	result, err := s.movies.List(ctx, filters, page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPage) {
			return MoviePage{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return MoviePage{}, fmt.Errorf("list movies: %w", err)
	}
	return result, nil
}

// notFound translates repository.ErrNotFound into ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
