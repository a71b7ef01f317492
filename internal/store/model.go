package store

import (
	"encoding/json"
	"time"
)

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the local identity record created on first Google sign-in.
// Profile fields are first-write-wins: repeat logins never overwrite them.
type User struct {
	Model
	ID       string
	GoogleID string
	Email    string
	Name     string
	Avatar   string
}

// Project is a canvas of frames owned by a single user. UserID is set at
// creation and never reassigned.
type Project struct {
	Model
	ID     string
	UserID string
	Name   string
	Frames json.RawMessage
}

func (p Project) OwnerID() string { return p.UserID }

// Snippet is a styled code fragment inside a project.
type Snippet struct {
	Model
	ID        string
	UserID    string
	ProjectID string
	Title     string
	Code      string
	Language  string
	Position  json.RawMessage
	Size      json.RawMessage
	Style     json.RawMessage
}

func (s Snippet) OwnerID() string { return s.UserID }

// Export records a rendered PNG; the bytes themselves live in blob storage
// under BlobKey. SnippetID is empty for ad-hoc renders.
type Export struct {
	ID        string
	UserID    string
	SnippetID string
	BlobKey   string
	Format    string
	CreatedAt time.Time
}

func (e Export) OwnerID() string { return e.UserID }
