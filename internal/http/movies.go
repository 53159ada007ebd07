package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
	"github.com/Clark-Hu/cinemaddict/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.movies.List(r.Context())
	if err != nil {
		s.logger.Error("list movies failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}

	items := make([]catalog.MovieDTO, 0, len(movies))
	for _, movie := range movies {
		items = append(items, catalog.ToMovieDTO(movie))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handlePersistMovie(w http.ResponseWriter, r *http.Request) {
	movieID := strings.TrimSpace(chi.URLParam(r, "movieID"))
	if movieID == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "missing movie id")
		return
	}

	var req catalog.MovieDTO
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	movie := catalog.MovieFromDTO(req)
	movie.ID = movieID
	if err := validateMovie(movie); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	stored, created, err := s.movies.Persist(r.Context(), movie)
	if err != nil {
		s.logger.Error("persist movie failed", "movie", movieID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to persist movie")
		return
	}
	if created {
		s.logger.Info("movie created", "sent_id", movieID, "id", stored.ID)
	}
	s.respondJSON(w, http.StatusOK, catalog.ToMovieDTO(stored))
}

func validateMovie(m domain.Movie) error {
	switch {
	case strings.TrimSpace(m.Title) == "":
		return errors.New("film_info.title is required")
	case m.PersonalRating < 0 || m.PersonalRating > domain.MaxPersonalRating:
		return fmt.Errorf("user_details.personal_rating must be between 0 and %d", domain.MaxPersonalRating)
	case m.TotalRating < 0 || m.TotalRating > 10:
		return errors.New("film_info.total_rating must be between 0 and 10")
	case m.AgeRating < 0:
		return errors.New("film_info.age_rating must be non-negative")
	case m.Runtime < 0:
		return errors.New("film_info.runtime must be non-negative")
	}
	return nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) respondNotFound(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, repository.ErrNotFound) {
		return false
	}
	s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	return true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.verifyAuthorization(r.Header.Get("Authorization")) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifyAuthorization accepts the shared token under either the Bearer or the Basic scheme.
func (s *Server) verifyAuthorization(header string) bool {
	if header == "" || s.cfg.AuthToken == "" {
		return false
	}
	var token string
	switch {
	case strings.HasPrefix(header, "Bearer "):
		token = strings.TrimPrefix(header, "Bearer ")
	case strings.HasPrefix(header, "Basic "):
		token = strings.TrimPrefix(header, "Basic ")
	default:
		return false
	}
	token = strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}
