package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

const maxCommentLength = 2000

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")
	comments, err := s.comments.ListByMovie(r.Context(), movieID)
	if err != nil {
		if s.respondNotFound(w, err) {
			return
		}
		s.logger.Error("list comments failed", "movie", movieID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list comments")
		return
	}

	items := make([]catalog.CommentDTO, 0, len(comments))
	for _, c := range comments {
		items = append(items, catalog.ToCommentDTO(c))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	var req catalog.CommentDTO
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	comment := catalog.CommentFromDTO(movieID, req)
	comment.ID = ""
	comment.Text = strings.TrimSpace(comment.Text)
	comment.Author = strings.TrimSpace(comment.Author)
	if comment.Date.IsZero() {
		comment.Date = s.now().UTC()
	}
	if err := validateComment(comment); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	created, err := s.comments.Create(r.Context(), comment)
	if err != nil {
		if s.respondNotFound(w, err) {
			return
		}
		s.logger.Error("create comment failed", "movie", movieID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create comment")
		return
	}
	s.respondJSON(w, http.StatusCreated, catalog.ToCommentDTO(created))
}

func validateComment(c domain.Comment) error {
	switch {
	case c.Text == "":
		return errors.New("comment is required")
	case len(c.Text) > maxCommentLength:
		return errors.New("comment is too long")
	case !c.Emotion.Valid():
		return errors.New("emotion must be one of smile, sleeping, puke, angry")
	}
	return nil
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")
	if err := s.comments.Delete(r.Context(), commentID); err != nil {
		if s.respondNotFound(w, err) {
			return
		}
		s.logger.Error("delete comment failed", "comment", commentID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
