package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, "dXNlcjpwYXNz", 2*time.Second, logger.Discard())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client, srv
}

func TestFetchMoviesDecodesWireFormat(t *testing.T) {
	released := time.Date(1955, time.May, 1, 0, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies" {
			t.Errorf("path = %s, want /movies", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Basic dXNlcjpwYXNz" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]MovieDTO{{
			ID:       "0",
			Comments: []string{"41", "42"},
			FilmInfo: FilmInfoDTO{
				Title:   "The Man with the Golden Arm",
				Runtime: 119,
				Genre:   []string{"Drama"},
				Release: ReleaseDTO{Date: released, ReleaseCountry: "USA"},
			},
			UserDetails: UserDetailsDTO{Watchlist: true, PersonalRating: 7},
		}})
	})

	movies, err := client.FetchMovies(context.Background())
	if err != nil {
		t.Fatalf("FetchMovies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("got %d movies, want 1", len(movies))
	}
	m := movies[0]
	if m.Title != "The Man with the Golden Arm" || !m.IsWatchlist || m.PersonalRating != 7 {
		t.Fatalf("unexpected movie: %+v", m)
	}
	if !m.ReleaseDate.Equal(released) || m.ReleaseCountry != "USA" {
		t.Fatalf("release not mapped: %+v", m)
	}
	if len(m.Comments) != 2 {
		t.Fatalf("comments = %v", m.Comments)
	}
}

func TestFetchCommentsAttachesMovieID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies/7/comments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]CommentDTO{{ID: "c1", Author: "Ilya", Comment: "great", Emotion: "smile"}})
	})

	comments, err := client.FetchComments(context.Background(), "7")
	if err != nil {
		t.Fatalf("FetchComments: %v", err)
	}
	if len(comments) != 1 || comments[0].MovieID != "7" || comments[0].Text != "great" {
		t.Fatalf("unexpected comments: %+v", comments)
	}
}

func TestPersistMovieReturnsCanonical(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/movies/local-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in MovieDTO
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		in.ID = "srv-42"
		_ = json.NewEncoder(w).Encode(in)
	})

	got, err := client.PersistMovie(context.Background(), domain.Movie{ID: "local-1", Title: "Sagebrush Trail", IsFavorite: true})
	if err != nil {
		t.Fatalf("PersistMovie: %v", err)
	}
	if got.ID != "srv-42" || !got.IsFavorite || got.Title != "Sagebrush Trail" {
		t.Fatalf("unexpected canonical movie: %+v", got)
	}
}

func TestCreateCommentOmitsLocalID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in CommentDTO
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.ID != "" {
			t.Errorf("local id leaked to catalog: %q", in.ID)
		}
		in.ID = "c-100"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	})

	got, err := client.CreateComment(context.Background(), "3", domain.Comment{ID: "local-x", Text: "ok", Emotion: domain.EmotionPuke})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if got.ID != "c-100" || got.MovieID != "3" {
		t.Fatalf("unexpected comment: %+v", got)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusNotFound, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusServiceUnavailable, ErrServer},
		{http.StatusRequestTimeout, ErrServer},
		{http.StatusTooManyRequests, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			err := client.DeleteComment(context.Background(), "c1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("DeleteComment error = %v, want %v", err, tt.want)
			}
			var catalogErr *Error
			if !errors.As(err, &catalogErr) || catalogErr.Status != tt.status {
				t.Fatalf("expected *Error with status %d, got %v", tt.status, err)
			}
			if got, want := IsTransient(err), tt.want == ErrServer; got != want {
				t.Fatalf("IsTransient(%d) = %v, want %v", tt.status, got, want)
			}
		})
	}
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.FetchMovies(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if !IsTransient(err) {
		t.Fatalf("network error should be transient")
	}
}

func TestCallerCancellationIsNotNetworkError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchMovies(ctx)
	if errors.Is(err, ErrNetwork) {
		t.Fatalf("cancelled request classified as network error: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	cases := map[string]string{
		"abc":          "Basic abc",
		" Basic abc ":  "Basic abc",
		"Bearer token": "Bearer token",
	}
	for in, want := range cases {
		if got := authorizationHeader(in); got != want {
			t.Fatalf("authorizationHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewHTTPClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTPClient("/relative", "x", time.Second, nil); err == nil {
		t.Fatalf("expected error for relative url")
	}
}
