package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/pagination"
)

const (
	labelRecentReleases = "Recent releases"
	labelRecentlyAdded  = "New additions"
)

type movieResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ReleaseDate string    `json:"release_date"`
	Genres      []string  `json:"genres"`
	CreatedAt   time.Time `json:"created_at"`
}

type movieDetailResponse struct {
	Movie      movieResponse `json:"movie"`
	UserRating *int          `json:"user_rating,omitempty"`
}

type pageInfoResponse struct {
	Number       int   `json:"number"`
	NumPages     int   `json:"num_pages"`
	PerPage      int   `json:"per_page"`
	Total        int64 `json:"total"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	NextPage     *int  `json:"next_page,omitempty"`
	PreviousPage *int  `json:"previous_page,omitempty"`
}

type movieListResponse struct {
	Items []movieResponse  `json:"items"`
	Page  pageInfoResponse `json:"page"`
	Label string           `json:"label,omitempty"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.ListMovies(r.Context(), page)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "list movies")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieListResponse(result, ""))
}

func (s *Server) handleRecentReleases(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.RecentReleases(r.Context(), page)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "list recent releases")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieListResponse(result, labelRecentReleases))
}

func (s *Server) handleRecentlyAdded(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.RecentlyAdded(r.Context(), page)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "list recently added movies")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieListResponse(result, labelRecentlyAdded))
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieIDParam(w, r)
	if !ok {
		return
	}
	detail, err := s.catalog.MovieDetail(r.Context(), id, auth.FromContext(r.Context()))
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "load movie")
		return
	}
	s.respondJSON(w, http.StatusOK, movieDetailResponse{
		Movie:      toMovieResponse(detail.Movie),
		UserRating: detail.UserRating,
	})
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	id, ok := s.movieIDParam(w, r)
	if !ok {
		return
	}
	principal := auth.FromContext(r.Context())
	_, _, err := s.catalog.RateMovie(r.Context(), principal, id, r.PostFormValue("rating"))
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		http.Redirect(w, r, auth.LoginRedirect(s.cfg.LoginURL, r.URL.RequestURI()), http.StatusFound)
		return
	case err != nil:
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "process rating")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/movies/%d", id), http.StatusFound)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req catalog.MovieInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	movie, err := s.catalog.CreateMovie(r.Context(), req)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusUnprocessableEntity, "create movie")
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/movies/%d", movie.ID))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

// pageParam parses the page query parameter; malformed values answer 404.
func (s *Server) pageParam(w http.ResponseWriter, r *http.Request) (pagination.Request, bool) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		s.respondNotFound(w)
		return pagination.Request{}, false
	}
	return page, true
}

func (s *Server) movieIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.respondNotFound(w)
		return 0, false
	}
	return id, true
}

func toMovieResponse(movie domain.Movie) movieResponse {
	genres := movie.Genres
	if genres == nil {
		genres = []string{}
	}
	return movieResponse{
		ID:          movie.ID,
		Title:       movie.Title,
		ReleaseDate: movie.ReleaseDate.Format(catalog.ReleaseDateLayout),
		Genres:      genres,
		CreatedAt:   movie.CreatedAt,
	}
}

func toMovieListResponse(page catalog.MoviePage, label string) movieListResponse {
	items := make([]movieResponse, 0, len(page.Items))
	for _, movie := range page.Items {
		items = append(items, toMovieResponse(movie))
	}
	return movieListResponse{
		Items: items,
		Page:  toPageInfo(page),
		Label: label,
	}
}

func toPageInfo(page catalog.MoviePage) pageInfoResponse {
	info := pageInfoResponse{
		Number:      page.Number,
		NumPages:    page.NumPages,
		PerPage:     page.PerPage,
		Total:       page.Total,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
	}
	if info.HasNext {
		next := page.NextNumber()
		info.NextPage = &next
	}
	if info.HasPrevious {
		prev := page.PreviousNumber()
		info.PreviousPage = &prev
	}
	return info
}
