package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// SQLStore implements UserStore and HistoryStore over database/sql. The same
// statements run on both sqlite and postgres; IDs are assigned max+1 to keep
// parity with the jsonfile backend.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, u User) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(email)=lower($1)`, u.Email).Scan(&exists)
	if err == nil {
		return User{}, ErrExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0)+1 FROM users`).Scan(&u.ID); err != nil {
		return User{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, mobile) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Mobile)
	if err != nil {
		return User{}, err
	}
	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, mobile FROM users WHERE lower(email)=lower($1)`,
		strings.TrimSpace(email))
	return scanUser(row)
}

func (s *SQLStore) GetByID(ctx context.Context, id int) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, mobile FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *SQLStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$1 WHERE lower(email)=lower($2)`, passwordHash, email)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, r ResultRecord) (ResultRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ResultRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0)+1 FROM test_history`).Scan(&r.ID); err != nil {
		return ResultRecord{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO test_history
		   (id, user_id, test_id, test_name, section_title, test_type, score, correct_count, total_questions, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.UserID, r.TestID, r.TestName, r.SectionTitle, r.TestType,
		r.Score, r.CorrectCount, r.TotalQuestions, r.SubmittedAt.Unix())
	if err != nil {
		return ResultRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return ResultRecord{}, err
	}
	return r, nil
}

func (s *SQLStore) ListByUser(ctx context.Context, userID int) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, test_id, test_name, section_title, test_type, score, correct_count, total_questions, submitted_at
		   FROM test_history WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ResultRecord{}
	for rows.Next() {
		var r ResultRecord
		var submitted int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.TestID, &r.TestName, &r.SectionTitle, &r.TestType,
			&r.Score, &r.CorrectCount, &r.TotalQuestions, &submitted); err != nil {
			return nil, err
		}
		r.SubmittedAt = unixTime(submitted)
		out = append(out, r)
	}
	return out, rows.Err()
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Mobile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
