package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Namespace partitions the local cache; ids are unique within a namespace only.
type Namespace string

const (
	NamespaceMovies   Namespace = "movies"
	NamespaceComments Namespace = "comments"
)

// OpKind is the mutation a pending operation replays.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// LocalIDPrefix marks ids issued on the client for entities the catalog has not seen yet.
const LocalIDPrefix = "local-"

// IsLocalID reports whether id was issued client-side.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// PendingOperation is a mutation recorded locally and awaiting replay against the catalog.
// Seq is assigned by the store and defines replay order.
type PendingOperation struct {
	Seq       int64           `json:"seq"`
	Kind      OpKind          `json:"kind"`
	Namespace Namespace       `json:"namespace"`
	TargetID  string          `json:"targetId"`
	ParentID  string          `json:"parentId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	QueuedAt  time.Time       `json:"queuedAt"`
}

func (op PendingOperation) String() string {
	return fmt.Sprintf("#%d %s %s/%s", op.Seq, op.Kind, op.Namespace, op.TargetID)
}

// NewMovieOperation snapshots movie as an upsert. Locally issued ids replay as creates.
func NewMovieOperation(movie Movie, at time.Time) (PendingOperation, error) {
	payload, err := json.Marshal(movie)
	if err != nil {
		return PendingOperation{}, fmt.Errorf("snapshot movie %s: %w", movie.ID, err)
	}
	kind := OpUpdate
	if IsLocalID(movie.ID) {
		kind = OpCreate
	}
	return PendingOperation{
		Kind:      kind,
		Namespace: NamespaceMovies,
		TargetID:  movie.ID,
		Payload:   payload,
		QueuedAt:  at.UTC(),
	}, nil
}

// NewCommentCreate snapshots a comment created while the catalog was unreachable.
func NewCommentCreate(comment Comment, at time.Time) (PendingOperation, error) {
	payload, err := json.Marshal(comment)
	if err != nil {
		return PendingOperation{}, fmt.Errorf("snapshot comment %s: %w", comment.ID, err)
	}
	return PendingOperation{
		Kind:      OpCreate,
		Namespace: NamespaceComments,
		TargetID:  comment.ID,
		ParentID:  comment.MovieID,
		Payload:   payload,
		QueuedAt:  at.UTC(),
	}, nil
}

// NewCommentDelete records a comment removal.
func NewCommentDelete(commentID, movieID string, at time.Time) PendingOperation {
	return PendingOperation{
		Kind:      OpDelete,
		Namespace: NamespaceComments,
		TargetID:  commentID,
		ParentID:  movieID,
		QueuedAt:  at.UTC(),
	}
}

// Movie decodes the payload of a movie operation.
func (op PendingOperation) Movie() (Movie, error) {
	var m Movie
	if err := json.Unmarshal(op.Payload, &m); err != nil {
		return Movie{}, fmt.Errorf("decode movie payload %s: %w", op, err)
	}
	return m, nil
}

// Comment decodes the payload of a comment operation.
func (op PendingOperation) Comment() (Comment, error) {
	var c Comment
	if err := json.Unmarshal(op.Payload, &c); err != nil {
		return Comment{}, fmt.Errorf("decode comment payload %s: %w", op, err)
	}
	return c, nil
}
