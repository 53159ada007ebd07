package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

const maxErrorBody = 4 << 10

// Client defines the contract for talking to the remote catalog service.
type Client interface {
	FetchMovies(ctx context.Context) ([]domain.Movie, error)
	FetchComments(ctx context.Context, movieID string) ([]domain.Comment, error)
	PersistMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error)
	CreateComment(ctx context.Context, movieID string, comment domain.Comment) (domain.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	Ping(ctx context.Context) error
}

// HTTPClient implements Client over HTTP. It never retries.
type HTTPClient struct {
	baseURL       *url.URL
	authorization string
	client        *http.Client
	logger        *slog.Logger
}

// NewHTTPClient constructs a catalog client. auth is sent verbatim as the Authorization
// header when it carries a scheme, and as Basic credentials otherwise.
func NewHTTPClient(baseURL, auth string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse catalog url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL:       parsed,
		authorization: authorizationHeader(auth),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger.With("component", "catalog"),
	}, nil
}

func authorizationHeader(auth string) string {
	auth = strings.TrimSpace(auth)
	if strings.HasPrefix(auth, "Basic ") || strings.HasPrefix(auth, "Bearer ") {
		return auth
	}
	return "Basic " + auth
}

// FetchMovies lists every movie in the catalog.
func (c *HTTPClient) FetchMovies(ctx context.Context) ([]domain.Movie, error) {
	var payload []MovieDTO
	if err := c.do(ctx, "fetch movies", http.MethodGet, "/movies", nil, &payload); err != nil {
		return nil, err
	}
	movies := make([]domain.Movie, 0, len(payload))
	for _, dto := range payload {
		movies = append(movies, MovieFromDTO(dto))
	}
	return movies, nil
}

// FetchComments lists the comments filed under a movie.
func (c *HTTPClient) FetchComments(ctx context.Context, movieID string) ([]domain.Comment, error) {
	var payload []CommentDTO
	path := "/movies/" + url.PathEscape(movieID) + "/comments"
	if err := c.do(ctx, "fetch comments", http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(payload))
	for _, dto := range payload {
		comments = append(comments, CommentFromDTO(movieID, dto))
	}
	return comments, nil
}

// PersistMovie creates or updates a movie and returns the catalog's canonical form,
// which may carry a different id than the one sent.
func (c *HTTPClient) PersistMovie(ctx context.Context, movie domain.Movie) (domain.Movie, error) {
	var payload MovieDTO
	path := "/movies/" + url.PathEscape(movie.ID)
	if err := c.do(ctx, "persist movie", http.MethodPut, path, ToMovieDTO(movie), &payload); err != nil {
		return domain.Movie{}, err
	}
	return MovieFromDTO(payload), nil
}

// CreateComment files a new comment; the catalog assigns its id.
func (c *HTTPClient) CreateComment(ctx context.Context, movieID string, comment domain.Comment) (domain.Comment, error) {
	body := ToCommentDTO(comment)
	body.ID = ""
	var payload CommentDTO
	path := "/movies/" + url.PathEscape(movieID) + "/comments"
	if err := c.do(ctx, "create comment", http.MethodPost, path, body, &payload); err != nil {
		return domain.Comment{}, err
	}
	return CommentFromDTO(movieID, payload), nil
}

// DeleteComment removes a comment.
func (c *HTTPClient) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, "delete comment", http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil)
}

// Ping checks that the catalog answers at all. Used for connectivity probing.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/healthz", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	endpoint := c.baseURL.String() + path

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Err: classifyTransport(ctx, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("unexpected catalog status",
			"op", op, "status", resp.StatusCode, "body", strings.TrimSpace(string(detail)))
		return &Error{Op: op, Status: resp.StatusCode, Err: classifyStatus(resp.StatusCode)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A body cut off mid-stream is a connectivity failure, not a bad payload.
		if ctx.Err() == nil && isTruncation(err) {
			return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: decode response: %v", ErrServer, err)}
	}
	return nil
}

func isTruncation(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
