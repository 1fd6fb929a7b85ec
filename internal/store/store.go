package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// User is an account as persisted. PasswordHash is the bcrypt hash; it is
// stripped before anything is sent to a client.
type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
}

// ResultRecord is one submitted-test result. Records are append-only: they
// are never updated or deleted, and resubmitting a test creates a new one.
type ResultRecord struct {
	ID             int       `json:"id"`
	UserID         int       `json:"userId"`
	TestID         int       `json:"testId"`
	TestName       string    `json:"testName"`
	SectionTitle   string    `json:"sectionTitle"`
	TestType       string    `json:"testType"` // "practice" or "final"
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type UserStore interface {
	// Create assigns a fresh ID and persists the user. ErrExists when the
	// email is already registered.
	Create(ctx context.Context, u User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int) (User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

type HistoryStore interface {
	// Append assigns a fresh ID and persists the record.
	Append(ctx context.Context, r ResultRecord) (ResultRecord, error)
	ListByUser(ctx context.Context, userID int) ([]ResultRecord, error)
}
