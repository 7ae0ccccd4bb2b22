package domain

import "time"

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

type User struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chatId"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registered reports whether the user completed registration by sharing a phone number.
func (u User) Registered() bool {
	return u.Phone != ""
}

// GenerationMeta is the free-form metadata recorded with a reservation.
type GenerationMeta struct {
	Prompt     string `json:"prompt"`
	Language   string `json:"language"`
	TemplateID int    `json:"templateId"`
	PageCount  int    `json:"pageCount"`
	WithImages bool   `json:"withImages"`
	OutputFile string `json:"outputFile,omitempty"`
}

type Generation struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Status    GenerationStatus `json:"status"`
	Meta      GenerationMeta   `json:"meta"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type Slide struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
	// BodyHTML is derived from Summary and Bullets by escaping; provider
	// output never reaches the renderer unescaped.
	BodyHTML string `json:"bodyHtml"`
	// Image is a data URI when inlining succeeded, otherwise the raw URL.
	Image string `json:"image,omitempty"`
}

type Deck struct {
	Topic       string    `json:"topic"`
	Language    string    `json:"language"`
	TemplateID  int       `json:"templateId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Slides      []Slide   `json:"slides"`
}
