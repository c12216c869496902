package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lsmadison/clinic-forms/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the SubmissionStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore opens (and if needed initializes) a MySQL submission store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS contact_submissions (
			id VARCHAR(64) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(64),
			message TEXT,
			subscribe_newsletter BOOLEAN NOT NULL DEFAULT FALSE,
			submitted_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS intake_submissions (
			id VARCHAR(64) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			details JSON NOT NULL,
			submitted_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			email VARCHAR(255) PRIMARY KEY,
			is_subscribed BOOLEAN NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			unsubscribed_at DATETIME
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// SaveContact stores a contact form submission
func (s *MySQLStore) SaveContact(ctx context.Context, sub *core.ContactSubmission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_submissions
			(id, first_name, last_name, email, phone, message, subscribe_newsletter, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.FirstName, sub.LastName, sub.Email, sub.Phone, sub.Message,
		sub.SubscribeToNewsletter, sub.SubmittedAt)

	if err != nil {
		return fmt.Errorf("failed to insert contact submission: %w", err)
	}
	return nil
}

// SaveIntake stores an intake form submission
func (s *MySQLStore) SaveIntake(ctx context.Context, sub *core.IntakeSubmission) error {
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
	`, sub.ID, sub.FirstName, sub.LastName, sub.Email, string(details), sub.SubmittedAt)

	if err != nil {
		return fmt.Errorf("failed to insert intake submission: %w", err)
	}
	return nil
}

// UpsertSubscriber marks an email as subscribed, creating the record if needed
func (s *MySQLStore) UpsertSubscriber(ctx context.Context, email string) (bool, error) {
	now := time.Now()

	var subscribed bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_subscribed FROM subscribers WHERE email = ?`, email).Scan(&subscribed)

	if err == sql.ErrNoRows {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO subscribers (email, is_subscribed, created_at, updated_at)
			VALUES (?, TRUE, ?, ?)
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
		UPDATE subscribers SET is_subscribed = TRUE, updated_at = ? WHERE email = ?
	`, now, email)
	if err != nil {
		return false, fmt.Errorf("failed to update subscriber: %w", err)
	}
	return false, nil
}

// Unsubscribe marks an email as unsubscribed
func (s *MySQLStore) Unsubscribe(ctx context.Context, email string) (bool, error) {
	now := time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET is_subscribed = FALSE, unsubscribed_at = ?, updated_at = ?
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
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL connection", zap.Error(err))
	}
}
