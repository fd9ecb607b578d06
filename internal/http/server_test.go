package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
	"github.com/Clark-Hu/movie-catalog/internal/catalog"
	"github.com/Clark-Hu/movie-catalog/internal/config"
	"github.com/Clark-Hu/movie-catalog/internal/domain"
	"github.com/Clark-Hu/movie-catalog/internal/pagination"
	"github.com/Clark-Hu/movie-catalog/internal/pgtest"
	"github.com/Clark-Hu/movie-catalog/internal/repository"
)

const (
	testAdminToken = "secret"
	testLoginURL   = "/accounts/login/"
)

var testNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

type testServer struct {
	srv    *Server
	repo   *repository.Repository
	tokens *auth.Tokens
}

func buildTestServer(tb testing.TB, overrides ...func(*config.Config)) *testServer {
	tb.Helper()
	cfg := config.Config{
		Port:             "0",
		AuthToken:        testAdminToken,
		LoginURL:         testLoginURL,
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	for _, override := range overrides {
		override(&cfg)
	}

	db := pgtest.Start(tb, "movies_test_handlers")
	repo := repository.NewWithPool(db.Pool)
	svc := catalog.NewFromRepository(repo, catalog.Options{
		Now:    func() time.Time { return testNow },
		Logger: zerolog.Nop(),
	})
	tokens, err := auth.NewTokens("test-signing-secret", time.Hour)
	if err != nil {
		tb.Fatalf("tokens: %v", err)
	}
	return &testServer{
		srv:    New(cfg, nil, svc, tokens, zerolog.Nop()),
		repo:   repo,
		tokens: tokens,
	}
}

func (ts *testServer) createMovie(tb testing.TB, title string, release time.Time, genres ...string) domain.Movie {
	tb.Helper()
	movie, err := ts.repo.Movies.Create(context.Background(), repository.MovieCreateParams{
		Title:       title,
		ReleaseDate: release,
		Genres:      genres,
	})
	if err != nil {
		tb.Fatalf("create movie %q: %v", title, err)
	}
	return movie
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) userToken(tb testing.TB, subject string) string {
	tb.Helper()
	token, err := ts.tokens.Issue(subject)
	if err != nil {
		tb.Fatalf("issue token: %v", err)
	}
	return token
}

func ratingRequest(movieID int64, value, token string) *http.Request {
	form := url.Values{}
	if value != "" {
		form.Set("rating", value)
	}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/movies/%d/rating", movieID), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody[T any](tb testing.TB, rec *httptest.ResponseRecorder) T {
	tb.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		tb.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func responseTitles(items []movieResponse) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHealthzWithoutStore(t *testing.T) {
	srv := New(config.Config{}, nil, nil, nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestListMoviesPagination(t *testing.T) {
	ts := buildTestServer(t)

	rec := ts.get("/movies")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty catalog: expected 200, got %d", rec.Code)
	}
	empty := decodeBody[movieListResponse](t, rec)
	if len(empty.Items) != 0 || empty.Page.Number != 1 || empty.Page.NumPages != 1 {
		t.Fatalf("empty catalog page = %+v", empty.Page)
	}

	for i := 1; i <= pagination.PageSize+2; i++ {
		ts.createMovie(t, fmt.Sprintf("Movie %02d", i), day(2000, time.January, 1))
	}

	first := decodeBody[movieListResponse](t, ts.get("/movies"))
	if len(first.Items) != pagination.PageSize {
		t.Fatalf("first page has %d items", len(first.Items))
	}
	if first.Items[0].Title != "Movie 01" || !first.Page.HasNext || first.Page.NextPage == nil || *first.Page.NextPage != 2 {
		t.Fatalf("first page = %v / %+v", first.Items[0].Title, first.Page)
	}

	last := decodeBody[movieListResponse](t, ts.get("/movies?page=last"))
	if got := responseTitles(last.Items); len(got) != 2 || got[0] != "Movie 25" || got[1] != "Movie 26" {
		t.Fatalf("last page titles = %v", got)
	}
	if last.Page.Number != 2 || last.Page.HasNext || !last.Page.HasPrevious {
		t.Fatalf("last page info = %+v", last.Page)
	}

	for _, page := range []string{"0", "3", "abc", "-1"} {
		if rec := ts.get("/movies?page=" + page); rec.Code != http.StatusNotFound {
			t.Fatalf("page=%s: expected 404, got %d", page, rec.Code)
		}
	}
}

func TestMovieDetail(t *testing.T) {
	ts := buildTestServer(t)
	movie := ts.createMovie(t, "Alien", day(1979, time.May, 25), "Horror", "Sci-Fi")

	rec := ts.get(fmt.Sprintf("/movies/%d", movie.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "user_rating") {
		t.Fatalf("anonymous detail should omit user_rating: %s", rec.Body.String())
	}
	detail := decodeBody[movieDetailResponse](t, rec)
	if detail.Movie.Title != "Alien" || detail.Movie.ReleaseDate != "1979-05-25" || len(detail.Movie.Genres) != 2 {
		t.Fatalf("detail = %+v", detail.Movie)
	}

	for _, path := range []string{"/movies/abc", fmt.Sprintf("/movies/%d", movie.ID+100)} {
		if rec := ts.get(path); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestSubmitRatingRequiresLogin(t *testing.T) {
	ts := buildTestServer(t)
	movie := ts.createMovie(t, "Heat", day(1995, time.December, 15))

	rec := ts.do(ratingRequest(movie.ID, "4", ""))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	want := auth.LoginRedirect(testLoginURL, fmt.Sprintf("/movies/%d/rating", movie.ID))
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}

	count, err := ts.repo.Ratings.CountForMovie(context.Background(), movie.ID)
	if err != nil {
		t.Fatalf("count ratings: %v", err)
	}
	if count != 0 {
		t.Fatalf("anonymous submission stored %d ratings", count)
	}
}

func TestSubmitRatingValidation(t *testing.T) {
	ts := buildTestServer(t)
	movie := ts.createMovie(t, "Heat", day(1995, time.December, 15))
	token := ts.userToken(t, "alice")

	for _, value := range []string{"", "abc", "4.5"} {
		rec := ts.do(ratingRequest(movie.ID, value, token))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("rating=%q: expected 400, got %d", value, rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.Code != "VALIDATION_ERROR" {
			t.Fatalf("rating=%q: code = %s", value, body.Code)
		}
	}

	if rec := ts.do(ratingRequest(movie.ID+100, "4", token)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown movie: expected 404, got %d", rec.Code)
	}
}

func TestSubmitRatingUpsertVisibleInDetail(t *testing.T) {
	ts := buildTestServer(t)
	movie := ts.createMovie(t, "Heat", day(1995, time.December, 15))
	token := ts.userToken(t, "alice")
	detailPath := fmt.Sprintf("/movies/%d", movie.ID)

	for _, value := range []string{"3", " 5 "} {
		rec := ts.do(ratingRequest(movie.ID, value, token))
		if rec.Code != http.StatusFound {
			t.Fatalf("rating=%q: expected 302, got %d: %s", value, rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Location"); got != detailPath {
			t.Fatalf("Location = %q, want %q", got, detailPath)
		}
	}

	count, err := ts.repo.Ratings.CountForMovie(context.Background(), movie.ID)
	if err != nil {
		t.Fatalf("count ratings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one rating row, got %d", count)
	}

	req := httptest.NewRequest(http.MethodGet, detailPath, nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	detail := decodeBody[movieDetailResponse](t, ts.do(req))
	if detail.UserRating == nil || *detail.UserRating != 5 {
		t.Fatalf("user_rating = %v, want 5", detail.UserRating)
	}

	other := httptest.NewRequest(http.MethodGet, detailPath, nil)
	other.Header.Set("Authorization", "Bearer "+ts.userToken(t, "bob"))
	if got := decodeBody[movieDetailResponse](t, ts.do(other)); got.UserRating != nil {
		t.Fatalf("bob should see no rating, got %d", *got.UserRating)
	}
}

func TestGenres(t *testing.T) {
	ts := buildTestServer(t)
	ts.createMovie(t, "Heat", day(1995, time.December, 15), "Crime", "Action")
	ts.createMovie(t, "Drive", day(2011, time.September, 16), "Crime")
	if _, err := ts.repo.Genres.Ensure(context.Background(), "Western"); err != nil {
		t.Fatalf("ensure genre: %v", err)
	}

	list := decodeBody[genreListResponse](t, ts.get("/genres"))
	if len(list.Items) != 3 {
		t.Fatalf("expected 3 genres, got %+v", list.Items)
	}
	if list.Items[0].Name != "Crime" || list.Items[0].Count != 2 || list.Items[2].Name != "Western" || list.Items[2].Count != 0 {
		t.Fatalf("genre counts = %+v", list.Items)
	}

	rec := ts.get("/genres/cRiMe")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	byGenre := decodeBody[genreMoviesResponse](t, rec)
	if byGenre.Browse != "cRiMe" || byGenre.Genre.Name != "Crime" {
		t.Fatalf("browse = %q genre = %q", byGenre.Browse, byGenre.Genre.Name)
	}
	if got := responseTitles(byGenre.Items); len(got) != 2 || got[0] != "Heat" || got[1] != "Drive" {
		t.Fatalf("genre titles = %v", got)
	}

	if rec := ts.get("/genres/Musical"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown genre: expected 404, got %d", rec.Code)
	}
	if rec := ts.get("/genres/Crime?page=2"); rec.Code != http.StatusNotFound {
		t.Fatalf("out of range page: expected 404, got %d", rec.Code)
	}
}

func TestRecentListings(t *testing.T) {
	ts := buildTestServer(t)
	ts.createMovie(t, "A", day(2017, time.March, 1))
	ts.createMovie(t, "B", day(2024, time.June, 1))
	ts.createMovie(t, "Old", day(1990, time.January, 1))

	releases := decodeBody[movieListResponse](t, ts.get("/recent-releases"))
	if got := responseTitles(releases.Items); len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Fatalf("recent releases = %v", got)
	}
	if releases.Label != labelRecentReleases {
		t.Fatalf("label = %q", releases.Label)
	}

	added := decodeBody[movieListResponse](t, ts.get("/recently-added"))
	if got := responseTitles(added.Items); len(got) != 3 || got[0] != "Old" || got[1] != "B" || got[2] != "A" {
		t.Fatalf("recently added = %v", got)
	}
	if added.Label != labelRecentlyAdded {
		t.Fatalf("label = %q", added.Label)
	}
}

func TestAdminCreate(t *testing.T) {
	ts := buildTestServer(t)

	post := func(path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return ts.do(req)
	}

	if rec := post("/genres", `{"name":"Drama"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}
	if rec := post("/genres", `{"name":"Drama"}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: expected 401, got %d", rec.Code)
	}
	if rec := post("/genres", `{"name":"Drama"}`, testAdminToken); rec.Code != http.StatusCreated {
		t.Fatalf("create genre: expected 201, got %d", rec.Code)
	}

	rec := post("/movies", `{"title":"Arrival","release_date":"2016-11-11","genres":["drama","Sci-Fi"]}`, testAdminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create movie: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[movieResponse](t, rec)
	if rec.Header().Get("Location") != fmt.Sprintf("/movies/%d", created.ID) {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	if len(created.Genres) != 2 || created.Genres[0] != "Drama" {
		t.Fatalf("genres = %v", created.Genres)
	}

	invalid := []string{
		`{"title":"","release_date":"2016-11-11"}`,
		`{"title":"Arrival","release_date":"11/11/2016"}`,
		``,
	}
	for _, body := range invalid {
		if rec := post("/movies", body, testAdminToken); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("body %q: expected 422, got %d", body, rec.Code)
		}
	}
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	srv := New(config.Config{}, nil, nil, nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/genres", bytes.NewBufferString(`{"name":"Drama"}`))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMoviesByGenreDecodesPathOnce(t *testing.T) {
	ts := buildTestServer(t)
	for _, name := range []string{"100%", "a%20b", "Sci Fi", "AC/DC"} {
		if _, err := ts.repo.Genres.Ensure(context.Background(), name); err != nil {
			t.Fatalf("ensure genre %q: %v", name, err)
		}
	}

	tests := []struct {
		path string
		want string
	}{
		{"/genres/100%25", "100%"},
		{"/genres/a%2520b", "a%20b"},
		{"/genres/Sci%20Fi", "Sci Fi"},
		{"/genres/sci%20fi", "sci fi"},
		{"/genres/AC%2FDC", "AC/DC"},
	}
	for _, tt := range tests {
		rec := ts.get(tt.path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tt.path, rec.Code, rec.Body.String())
		}
		if got := decodeBody[genreMoviesResponse](t, rec).Browse; got != tt.want {
			t.Fatalf("%s: browse = %q, want %q", tt.path, got, tt.want)
		}
	}

	if rec := ts.get("/genres/a%20b"); rec.Code != http.StatusNotFound {
		t.Fatalf("a%%20b must not match genre a%%20b, got %d", rec.Code)
	}
}

func TestSubmitRatingRateLimited(t *testing.T) {
	ts := buildTestServer(t, func(cfg *config.Config) { cfg.RatingRateLimit = 2 })
	movie := ts.createMovie(t, "Heat", day(1995, time.December, 15))
	token := ts.userToken(t, "alice")

	for i := 0; i < 2; i++ {
		if rec := ts.do(ratingRequest(movie.ID, "4", token)); rec.Code != http.StatusFound {
			t.Fatalf("request %d: expected 302, got %d", i+1, rec.Code)
		}
	}

	rec := ts.do(ratingRequest(movie.ID, "4", token))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.Code != "RATE_LIMITED" {
		t.Fatalf("code = %s, want RATE_LIMITED", body.Code)
	}

	other := ratingRequest(movie.ID, "4", token)
	other.RemoteAddr = "198.51.100.7:4000"
	if rec := ts.do(other); rec.Code != http.StatusFound {
		t.Fatalf("another client IP: expected 302, got %d", rec.Code)
	}
}

func TestSubmitRatingUnlimitedWhenDisabled(t *testing.T) {
	ts := buildTestServer(t, func(cfg *config.Config) { cfg.RatingRateLimit = 0 })
	movie := ts.createMovie(t, "Heat", day(1995, time.December, 15))
	token := ts.userToken(t, "alice")

	for i := 0; i < 40; i++ {
		if rec := ts.do(ratingRequest(movie.ID, fmt.Sprint(i), token)); rec.Code != http.StatusFound {
			t.Fatalf("request %d: expected 302, got %d", i+1, rec.Code)
		}
	}
}
