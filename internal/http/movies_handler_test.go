package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/config"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/fixture"
	"github.com/Clark-Hu/cinemaddict/internal/logger"
)

var testNow = time.Date(2024, time.February, 14, 20, 0, 0, 0, time.UTC)

func testConfig() config.Server {
	return config.Server{
		Port:             "0",
		AuthToken:        "secret",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
}

func seedCatalog() *fixture.Catalog {
	movies := []domain.Movie{
		{ID: "0", Title: "The Dance of Life", TotalRating: 8.3, Runtime: 115},
		{ID: "1", Title: "Sagebrush Trail", TotalRating: 3.2, Runtime: 54},
	}
	comments := []domain.Comment{
		{ID: "41", MovieID: "0", Author: "Ilya", Text: "masterpiece", Emotion: domain.EmotionSmile, Date: testNow.Add(-time.Hour)},
	}
	n := 100
	return fixture.New(movies, comments, func() string {
		n++
		return fmt.Sprintf("%d", n)
	})
}

func buildFixtureServer(tb testing.TB) (*Server, *fixture.Catalog) {
	tb.Helper()
	cat := seedCatalog()
	srv := New(testConfig(), cat, cat, cat, logger.Discard())
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	srv.now = func() time.Time { return testNow }
	return srv, cat
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRoutesRequireAuthorization(t *testing.T) {
	srv, _ := buildFixtureServer(t)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"unknown scheme", "Token secret", http.StatusUnauthorized},
		{"bearer", "Bearer secret", http.StatusOK},
		{"basic", "Basic secret", http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/movies", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d", rec.Code, c.want)
			}
		})
	}
}

func TestHealthzIsPublic(t *testing.T) {
	srv, _ := buildFixtureServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleListMovies(t *testing.T) {
	srv, _ := buildFixtureServer(t)
	rec := serve(srv, http.MethodGet, "/movies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []catalog.MovieDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d movies, want 2", len(got))
	}
	if got[0].FilmInfo.Title != "The Dance of Life" || len(got[0].Comments) != 1 {
		t.Fatalf("unexpected first movie: %+v", got[0])
	}
	if got[1].Comments == nil {
		t.Fatalf("comments must encode as an empty list")
	}
}

func TestHandlePersistMovie(t *testing.T) {
	srv, _ := buildFixtureServer(t)

	movie := domain.Movie{ID: "1", Title: "Sagebrush Trail", IsFavorite: true, PersonalRating: 9}
	payload, _ := json.Marshal(catalog.ToMovieDTO(movie))
	rec := serve(srv, http.MethodPut, "/movies/1", string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got catalog.MovieDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ID != "1" || !got.UserDetails.Favorite || got.UserDetails.PersonalRating != 9 {
		t.Fatalf("unexpected persisted movie: %+v", got)
	}
}

func TestHandlePersistMovie_UnknownIDIsCreated(t *testing.T) {
	srv, _ := buildFixtureServer(t)

	movie := domain.Movie{ID: "local-1", Title: "Offline Addition"}
	payload, _ := json.Marshal(catalog.ToMovieDTO(movie))
	rec := serve(srv, http.MethodPut, "/movies/local-1", string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got catalog.MovieDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ID != "101" {
		t.Fatalf("id = %q, want catalog-issued 101", got.ID)
	}
}

func TestHandlePersistMovie_Validation(t *testing.T) {
	srv, _ := buildFixtureServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed", "invalid json", http.StatusUnprocessableEntity},
		{"empty", "", http.StatusUnprocessableEntity},
		{"unknown field", `{"bogus":true}`, http.StatusBadRequest},
		{"missing title", `{"film_info":{"title":""}}`, http.StatusUnprocessableEntity},
		{"rating too high", `{"film_info":{"title":"x"},"user_details":{"personal_rating":10}}`, http.StatusUnprocessableEntity},
		{"wrong type", `{"film_info":{"title":"x","runtime":"long"}}`, http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := serve(srv, http.MethodPut, "/movies/1", c.body)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, c.want, rec.Body.String())
			}
		})
	}
}

func TestHandleComments(t *testing.T) {
	srv, cat := buildFixtureServer(t)

	rec := serve(srv, http.MethodGet, "/movies/0/comments", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var listed []catalog.CommentDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "41" {
		t.Fatalf("listed = %+v", listed)
	}

	rec = serve(srv, http.MethodPost, "/movies/0/comments", `{"comment":"  so good  ","emotion":"smile","date":"0001-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created catalog.CommentDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID != "101" || created.Comment != "so good" || !created.Date.Equal(testNow) {
		t.Fatalf("created = %+v", created)
	}

	movies, _ := cat.List(context.Background())
	if !movies[0].HasComment("101") {
		t.Fatalf("movie does not reference new comment: %v", movies[0].Comments)
	}

	rec = serve(srv, http.MethodDelete, "/comments/101", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = serve(srv, http.MethodDelete, "/comments/101", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleCreateComment_Validation(t *testing.T) {
	srv, _ := buildFixtureServer(t)

	cases := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"blank text", "/movies/0/comments", `{"comment":"   ","emotion":"smile","date":"2024-01-01T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"bad emotion", "/movies/0/comments", `{"comment":"hi","emotion":"happy","date":"2024-01-01T00:00:00Z"}`, http.StatusUnprocessableEntity},
		{"too long", "/movies/0/comments", fmt.Sprintf(`{"comment":%q,"emotion":"smile","date":"2024-01-01T00:00:00Z"}`, strings.Repeat("a", maxCommentLength+1)), http.StatusUnprocessableEntity},
		{"unknown movie", "/movies/nope/comments", `{"comment":"hi","emotion":"smile","date":"2024-01-01T00:00:00Z"}`, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := serve(srv, http.MethodPost, c.target, c.body)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, c.want, rec.Body.String())
			}
		})
	}
}

func TestHandleListComments_UnknownMovie(t *testing.T) {
	srv, _ := buildFixtureServer(t)
	rec := serve(srv, http.MethodGet, "/movies/nope/comments", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestVerifyAuthorization(t *testing.T) {
	srv := &Server{cfg: config.Server{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Basic secret", true},
		{"Bearer other", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyAuthorization(c.header) != c.allowed {
			t.Fatalf("verifyAuthorization(%q) expected %v", c.header, c.allowed)
		}
	}

	empty := &Server{cfg: config.Server{}}
	if empty.verifyAuthorization("Bearer ") {
		t.Fatalf("an unset token must reject every request")
	}
}

// The catalog client and the server agree on the wire format end to end.
func TestClientContract(t *testing.T) {
	srv, _ := buildFixtureServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := catalog.NewHTTPClient(ts.URL, "Bearer secret", 2*time.Second, logger.Discard())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	movies, err := client.FetchMovies(ctx)
	if err != nil {
		t.Fatalf("fetch movies: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("got %d movies", len(movies))
	}

	local := domain.Movie{ID: "local-7", Title: "Created Offline", Comments: []string{}}
	saved, err := client.PersistMovie(ctx, local)
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if saved.ID == local.ID || saved.Title != local.Title {
		t.Fatalf("saved = %+v", saved)
	}

	comment, err := client.CreateComment(ctx, saved.ID, domain.Comment{ID: "local-8", Text: "hello", Emotion: domain.EmotionPuke, Date: testNow})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.ID == "local-8" || comment.MovieID != saved.ID {
		t.Fatalf("comment = %+v", comment)
	}

	if err := client.DeleteComment(ctx, comment.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := client.DeleteComment(ctx, comment.ID); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("second delete = %v, want validation error", err)
	}

	_, err = client.CreateComment(ctx, saved.ID, domain.Comment{Text: "hello", Emotion: "joy", Date: testNow})
	if !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("invalid emotion = %v, want validation error", err)
	}

	bad, err := catalog.NewHTTPClient(ts.URL, "Bearer wrong", 2*time.Second, logger.Discard())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := bad.FetchMovies(ctx); !errors.Is(err, catalog.ErrAuth) {
		t.Fatalf("wrong token = %v, want auth error", err)
	}
}

func BenchmarkHandleListMovies(b *testing.B) {
	srv, _ := buildFixtureServer(b)
	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.Header.Set("Authorization", "Bearer secret")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func BenchmarkHandleCreateComment(b *testing.B) {
	srv, _ := buildFixtureServer(b)
	payload := []byte(`{"comment":"bench","emotion":"smile","date":"2024-01-01T00:00:00Z"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/movies/0/comments", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
