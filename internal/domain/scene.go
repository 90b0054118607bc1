package domain

import "time"

// Scene is the project entity that receives generated artifacts.
type Scene struct {
	ID           string
	ProjectID    string
	OwnerID      string
	Sequence     int
	Title        string
	Narration    string
	VisualPrompt string
	ImageURL     string
	AudioURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
