package domain

import "time"

// Emotion is the emoji tag attached to a comment.
type Emotion string

const (
	EmotionSmile    Emotion = "smile"
	EmotionSleeping Emotion = "sleeping"
	EmotionPuke     Emotion = "puke"
	EmotionAngry    Emotion = "angry"
)

// Valid reports whether e is one of the emotions the catalog accepts.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionSmile, EmotionSleeping, EmotionPuke, EmotionAngry:
		return true
	}
	return false
}

// Comment is a user comment filed under a movie. Comments are never edited.
type Comment struct {
	ID      string    `json:"id"`
	MovieID string    `json:"movieId"`
	Author  string    `json:"author"`
	Text    string    `json:"comment"`
	Emotion Emotion   `json:"emotion"`
	Date    time.Time `json:"date"`
}
