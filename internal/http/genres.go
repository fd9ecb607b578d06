package httpserver

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-catalog/internal/catalog"
)

type genreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type genreCountResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type genreListResponse struct {
	Items []genreCountResponse `json:"items"`
}

type genreMoviesResponse struct {
	Genre  genreResponse    `json:"genre"`
	Browse string           `json:"browse"`
	Items  []movieResponse  `json:"items"`
	Page   pageInfoResponse `json:"page"`
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.catalog.ListGenres(r.Context())
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "list genres")
		return
	}
	items := make([]genreCountResponse, 0, len(genres))
	for _, g := range genres {
		items = append(items, genreCountResponse{ID: g.ID, Name: g.Name, Count: g.Count})
	}
	s.respondJSON(w, http.StatusOK, genreListResponse{Items: items})
}

func (s *Server) handleMoviesByGenre(w http.ResponseWriter, r *http.Request) {
	name, ok := genreParam(r)
	if !ok || name == "" {
		s.respondNotFound(w)
		return
	}
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}

	listing, err := s.catalog.MoviesByGenre(r.Context(), name, page)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusBadRequest, "list genre movies")
		return
	}
	list := toMovieListResponse(listing.Page, "")
	s.respondJSON(w, http.StatusOK, genreMoviesResponse{
		Genre:  genreResponse{ID: listing.Genre.ID, Name: listing.Genre.Name},
		Browse: listing.Browse,
		Items:  list.Items,
		Page:   list.Page,
	})
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req catalog.GenreInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	genre, err := s.catalog.CreateGenre(r.Context(), req)
	if err != nil {
		s.respondCatalogError(w, r, err, http.StatusUnprocessableEntity, "create genre")
		return
	}
	s.respondJSON(w, http.StatusCreated, genreResponse{ID: genre.ID, Name: genre.Name})
}

// genreParam returns the genre path segment decoded exactly once. chi matches against
// RawPath when the request carries one, leaving the segment still escaped.
func genreParam(r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "genre")
	if r.URL.RawPath == "" {
		return raw, true
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	return name, true
}
