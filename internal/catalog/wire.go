package catalog

import (
	"time"

	"github.com/Clark-Hu/cinemaddict/internal/domain"
)

// MovieDTO is the catalog's wire representation of a movie.
type MovieDTO struct {
	ID          string         `json:"id"`
	Comments    []string       `json:"comments"`
	FilmInfo    FilmInfoDTO    `json:"film_info"`
	UserDetails UserDetailsDTO `json:"user_details"`
}

// FilmInfoDTO holds the descriptive part of a movie.
type FilmInfoDTO struct {
	Title            string     `json:"title"`
	AlternativeTitle string     `json:"alternative_title"`
	TotalRating      float64    `json:"total_rating"`
	Poster           string     `json:"poster"`
	AgeRating        int        `json:"age_rating"`
	Director         string     `json:"director"`
	Writers          []string   `json:"writers"`
	Actors           []string   `json:"actors"`
	Release          ReleaseDTO `json:"release"`
	Runtime          int        `json:"runtime"`
	Genre            []string   `json:"genre"`
	Description      string     `json:"description"`
}

// ReleaseDTO is the nested release block of FilmInfoDTO.
type ReleaseDTO struct {
	Date           time.Time `json:"date"`
	ReleaseCountry string    `json:"release_country"`
}

// UserDetailsDTO holds the user's state for a movie.
type UserDetailsDTO struct {
	PersonalRating int        `json:"personal_rating"`
	Watchlist      bool       `json:"watchlist"`
	AlreadyWatched bool       `json:"already_watched"`
	WatchingDate   *time.Time `json:"watching_date"`
	Favorite       bool       `json:"favorite"`
}

// CommentDTO is the catalog's wire representation of a comment.
type CommentDTO struct {
	ID      string    `json:"id,omitempty"`
	Author  string    `json:"author,omitempty"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
	Emotion string    `json:"emotion"`
}

// ToMovieDTO converts a domain movie for the wire.
func ToMovieDTO(m domain.Movie) MovieDTO {
	comments := m.Comments
	if comments == nil {
		comments = []string{}
	}
	return MovieDTO{
		ID:       m.ID,
		Comments: comments,
		FilmInfo: FilmInfoDTO{
			Title:            m.Title,
			AlternativeTitle: m.AlternativeTitle,
			TotalRating:      m.TotalRating,
			Poster:           m.Poster,
			AgeRating:        m.AgeRating,
			Director:         m.Director,
			Writers:          m.Writers,
			Actors:           m.Actors,
			Release: ReleaseDTO{
				Date:           m.ReleaseDate,
				ReleaseCountry: m.ReleaseCountry,
			},
			Runtime:     m.Runtime,
			Genre:       m.Genres,
			Description: m.Description,
		},
		UserDetails: UserDetailsDTO{
			PersonalRating: m.PersonalRating,
			Watchlist:      m.IsWatchlist,
			AlreadyWatched: m.IsWatched,
			WatchingDate:   m.WatchingDate,
			Favorite:       m.IsFavorite,
		},
	}
}

// MovieFromDTO converts a wire movie into the domain model.
func MovieFromDTO(dto MovieDTO) domain.Movie {
	comments := dto.Comments
	if comments == nil {
		comments = []string{}
	}
	return domain.Movie{
		ID:               dto.ID,
		Title:            dto.FilmInfo.Title,
		AlternativeTitle: dto.FilmInfo.AlternativeTitle,
		Poster:           dto.FilmInfo.Poster,
		Description:      dto.FilmInfo.Description,
		TotalRating:      dto.FilmInfo.TotalRating,
		AgeRating:        dto.FilmInfo.AgeRating,
		Director:         dto.FilmInfo.Director,
		Writers:          dto.FilmInfo.Writers,
		Actors:           dto.FilmInfo.Actors,
		ReleaseDate:      dto.FilmInfo.Release.Date,
		ReleaseCountry:   dto.FilmInfo.Release.ReleaseCountry,
		Runtime:          dto.FilmInfo.Runtime,
		Genres:           dto.FilmInfo.Genre,
		Comments:         comments,
		IsWatchlist:      dto.UserDetails.Watchlist,
		IsWatched:        dto.UserDetails.AlreadyWatched,
		IsFavorite:       dto.UserDetails.Favorite,
		WatchingDate:     dto.UserDetails.WatchingDate,
		PersonalRating:   dto.UserDetails.PersonalRating,
	}
}

// ToCommentDTO converts a domain comment for the wire.
func ToCommentDTO(c domain.Comment) CommentDTO {
	return CommentDTO{
		ID:      c.ID,
		Author:  c.Author,
		Comment: c.Text,
		Date:    c.Date,
		Emotion: string(c.Emotion),
	}
}

// CommentFromDTO converts a wire comment; the movie id comes from the request path.
func CommentFromDTO(movieID string, dto CommentDTO) domain.Comment {
	return domain.Comment{
		ID:      dto.ID,
		MovieID: movieID,
		Author:  dto.Author,
		Text:    dto.Comment,
		Emotion: domain.Emotion(dto.Emotion),
		Date:    dto.Date,
	}
}
