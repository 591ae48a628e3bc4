package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appdb "github.com/codr1/seitai-booking/internal/db"
)

var (
	ErrDuplicateEmail = errors.New("email is already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// User is a customer account. The first-time flag steers which menu the
// booking flow offers; it flips off after the first visit is booked.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	IsFirstTime  bool       `json:"isFirstTime"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	PasswordHash string     `json:"-"`
}

// UserStore persists customer accounts.
type UserStore interface {
	Create(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	SetFirstTime(ctx context.Context, id string, firstTime bool) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// SQLiteUserStore keeps accounts in the application database.
type SQLiteUserStore struct {
	db *appdb.DB
}

func NewSQLiteUserStore(db *appdb.DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

func (s *SQLiteUserStore) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, phone, is_first_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, normalizeEmail(u.Email), u.PasswordHash, u.Name, u.Phone, u.IsFirstTime,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteUserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getBy(ctx, "email = ?", normalizeEmail(email))
}

func (s *SQLiteUserStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getBy(ctx, "id = ?", id)
}

func (s *SQLiteUserStore) getBy(ctx context.Context, where string, arg any) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, COALESCE(phone, ''), is_first_time, created_at, last_login_at
		FROM users WHERE `+where, arg)

	var (
		u         User
		createdAt string
		lastLogin sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.IsFirstTime, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}

	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = ts
	}
	if lastLogin.Valid {
		if ts, err := time.Parse(time.RFC3339, lastLogin.String); err == nil {
			u.LastLoginAt = &ts
		}
	}
	return u, nil
}

func (s *SQLiteUserStore) SetFirstTime(ctx context.Context, id string, firstTime bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET is_first_time = ? WHERE id = ?`, firstTime, id)
	if err != nil {
		return fmt.Errorf("update first-time flag: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteUserStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// MemoryUserStore backs tests.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User // by id
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]User)}
}

func (s *MemoryUserStore) Create(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == normalizeEmail(u.Email) {
			return ErrDuplicateEmail
		}
	}
	u.Email = normalizeEmail(u.Email)
	s.users[u.ID] = u
	return nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == normalizeEmail(email) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryUserStore) SetFirstTime(ctx context.Context, id string, firstTime bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsFirstTime = firstTime
	s.users[id] = u
	return nil
}

func (s *MemoryUserStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = &at
	s.users[id] = u
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
