// Package store provides SubmissionStore implementations over SQLite, MySQL,
// and an in-memory map used in tests.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// intakeDetails is the JSON document persisted alongside the scalar intake
// columns; the nested sections have no natural relational shape.
type intakeDetails struct {
	PhoneDaytime     string                `json:"phoneDaytime,omitempty"`
	PhoneEvening     string                `json:"phoneEvening,omitempty"`
	DateOfBirth      string                `json:"dateOfBirth,omitempty"`
	Pronouns         string                `json:"pronouns,omitempty"`
	Address          core.Address          `json:"address"`
	EmergencyContact core.EmergencyContact `json:"emergencyContact"`
	HowDidYouHear    core.HowDidYouHear    `json:"howDidYouHear"`
	ReasonForVisit   core.ReasonForVisit   `json:"reasonForVisit"`
	Conditions       map[string][]string   `json:"conditions,omitempty"`
	ConditionNotes   map[string]string     `json:"conditionNotes,omitempty"`
}

// SQLiteStore is a SQLite implementation of the SubmissionStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed initializes) a SQLite submission store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS contact_submissions (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			message TEXT,
			subscribe_newsletter BOOLEAN NOT NULL DEFAULT 0,
			submitted_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS intake_submissions (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			details TEXT NOT NULL,
			submitted_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			email TEXT PRIMARY KEY,
			is_subscribed BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			unsubscribed_at TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// SaveContact stores a contact form submission
func (s *SQLiteStore) SaveContact(ctx context.Context, sub *core.ContactSubmission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_submissions
			(id, first_name, last_name, email, phone, message, subscribe_newsletter, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.FirstName, sub.LastName, sub.Email, sub.Phone, sub.Message,
		sub.SubscribeToNewsletter, sub.SubmittedAt.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert contact submission: %w", err)
	}
	return nil
}

// SaveIntake stores an intake form submission
func (s *SQLiteStore) SaveIntake(ctx context.Context, sub *core.IntakeSubmission) error {
	details, err := json.Marshal(intakeDetails{
		PhoneDaytime:     sub.PhoneDaytime,
		PhoneEvening:     sub.PhoneEvening,
		DateOfBirth:      sub.DateOfBirth,
		Pronouns:         sub.Pronouns,
		Address:          sub.Address,
		EmergencyContact: sub.EmergencyContact,
		HowDidYouHear:    sub.HowDidYouHear,
		ReasonForVisit:   sub.ReasonForVisit,
		Conditions:       sub.Conditions,
		ConditionNotes:   sub.ConditionNotes,
	})
	if err != nil {
		return fmt.Errorf("failed to encode intake details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intake_submissions (id, first_name, last_name, email, details, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.FirstName, sub.LastName, sub.Email, string(details),
		sub.SubmittedAt.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert intake submission: %w", err)
	}
	return nil
}

// UpsertSubscriber marks an email as subscribed, creating the record if needed
func (s *SQLiteStore) UpsertSubscriber(ctx context.Context, email string) (bool, error) {
	now := time.Now().Format(time.RFC3339)

	var subscribed bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_subscribed FROM subscribers WHERE email = ?`, email).Scan(&subscribed)

	if err == sql.ErrNoRows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO subscribers (email, is_subscribed, created_at, updated_at)
			VALUES (?, 1, ?, ?)
		`, email, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert subscriber: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query subscriber: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE subscribers SET is_subscribed = 1, updated_at = ? WHERE email = ?
	`, now, email)
	if err != nil {
		return false, fmt.Errorf("failed to update subscriber: %w", err)
	}
	return false, nil
}

// Unsubscribe marks an email as unsubscribed
func (s *SQLiteStore) Unsubscribe(ctx context.Context, email string) (bool, error) {
	now := time.Now().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET is_subscribed = 0, unsubscribed_at = ?, updated_at = ?
		WHERE email = ?
	`, now, now, email)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to read rows affected for unsubscribe", zap.Error(err))
		return true, nil
	}
	return rows > 0, nil
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
