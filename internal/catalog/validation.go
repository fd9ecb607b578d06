package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
)

// ReleaseDateLayout is the accepted release date format.
const ReleaseDateLayout = "2006-01-02"

// ValidationError reports invalid input, one message per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ParseRatingValue parses a submitted rating. Surrounding whitespace and a leading sign are
// accepted; no range is imposed beyond what the database integer column holds.
func ParseRatingValue(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fieldError("rating", "is required")
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fieldError("rating", "must be an integer")
	}
	return int(value), nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

func validateStruct(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must match layout " + fe.Param()
	default:
		return "is invalid"
	}
}

// GenreInput is the payload for creating a genre.
type GenreInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// MovieInput is the payload for creating a movie.
type MovieInput struct {
	Title       string   `json:"title" validate:"required,max=500"`
	ReleaseDate string   `json:"release_date" validate:"required,datetime=2006-01-02"`
	Genres      []string `json:"genres" validate:"dive,required,max=100"`
	// CreatedAt optionally backdates the insertion timestamp (RFC 3339); used by imports.
	CreatedAt string `json:"created_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (in *MovieInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.ReleaseDate = strings.TrimSpace(in.ReleaseDate)
	in.CreatedAt = strings.TrimSpace(in.CreatedAt)
	genres := make([]string, 0, len(in.Genres))
	for _, g := range in.Genres {
		genres = append(genres, strings.TrimSpace(g))
	}
	in.Genres = genres
}

// CreateGenre validates in and stores the genre, reusing a case-insensitive match.
func (s *Service) CreateGenre(ctx context.Context, in GenreInput) (domain.Genre, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return domain.Genre{}, err
	}
	genre, err := s.genres.Ensure(ctx, in.Name)
	if err != nil {
		return domain.Genre{}, fmt.Errorf("create genre: %w", err)
	}
	return genre, nil
}

// CreateMovie validates in and stores the movie with its genres.
func (s *Service) CreateMovie(ctx context.Context, in MovieInput) (domain.Movie, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return domain.Movie{}, err
	}

	releaseDate, err := time.Parse(ReleaseDateLayout, in.ReleaseDate)
	if err != nil {
		return domain.Movie{}, fieldError("release_date", "must follow YYYY-MM-DD format")
	}
	params := repository.MovieCreateParams{
		Title:       in.Title,
		ReleaseDate: releaseDate,
		Genres:      in.Genres,
	}
	if in.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, in.CreatedAt)
		if err != nil {
			return domain.Movie{}, fieldError("created_at", "must be an RFC 3339 timestamp")
		}
		params.CreatedAt = createdAt
	}

	movie, err := s.movies.Create(ctx, params)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("create movie: %w", err)
	}
	s.logger.Info().Int64("movie_id", movie.ID).Str("title", movie.Title).Msg("movie created")
	return movie, nil
}
