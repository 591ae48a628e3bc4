package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codr1/seitai-booking/internal/clock"
	appdb "github.com/codr1/seitai-booking/internal/db"
)

const bookingColumns = `id, date, start_minute, duration_minutes, service_id,
	customer_name, customer_phone, notes, is_first_time, created_at`

// SQLiteStore persists bookings in the application database. Rows are
// returned in creation order so conflict reporting stays stable.
type SQLiteStore struct {
	db *appdb.DB
}

func NewSQLiteStore(db *appdb.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE date = ? ORDER BY created_at, id`, bookingColumns)
	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("%w: list by date: %v", ErrStorage, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings ORDER BY date, start_minute`, bookingColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list all: %v", ErrStorage, err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// SearchByPhone matches on digits only, so the stored national format and
// whatever the caller typed compare the same.
func (s *SQLiteStore) SearchByPhone(ctx context.Context, phone string) ([]Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings ORDER BY date, start_minute`, bookingColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search by phone: %v", ErrStorage, err)
	}
	defer rows.Close()

	all, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	var out []Booking
	for _, b := range all {
		if phoneMatches(b.CustomerPhone, phone) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *SQLiteStore) Append(ctx context.Context, b Booking) error {
	return insertBooking(ctx, s.db, b)
}

// AppendChecked runs the same-date overlap check and the insert in one
// transaction, so two processes sharing the database file cannot both pass
// the check. Within one process the workflow's per-date lock already
// serializes callers.
func (s *SQLiteStore) AppendChecked(ctx context.Context, b Booking) error {
	candidate, err := b.Interval()
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM bookings WHERE date = ? ORDER BY created_at, id`, bookingColumns)
		rows, err := tx.QueryContext(ctx, query, b.Date)
		if err != nil {
			return fmt.Errorf("%w: list by date: %v", ErrStorage, err)
		}
		existing, err := scanBookings(rows)
		rows.Close()
		if err != nil {
			return err
		}

		if conflict, found := clock.FindConflict(candidate, Intervals(existing)); found {
			return ConflictError{Existing: conflict}
		}
		return insertBooking(ctx, tx, b)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBooking(ctx context.Context, ex execer, b Booking) error {
	startMinute, err := clock.ParseTime(b.StartTime)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO bookings (id, date, start_minute, duration_minutes, service_id,
			customer_name, customer_phone, notes, is_first_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Date, startMinute, b.Duration, b.ServiceID,
		b.CustomerName, b.CustomerPhone, b.Notes, b.IsFirstTime,
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: append: %v", ErrStorage, err)
	}
	return nil
}

func scanBookings(rows *sql.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		var (
			b           Booking
			startMinute int
			createdAt   string
		)
		if err := rows.Scan(&b.ID, &b.Date, &startMinute, &b.Duration, &b.ServiceID,
			&b.CustomerName, &b.CustomerPhone, &b.Notes, &b.IsFirstTime, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan booking: %v", ErrStorage, err)
		}
		b.StartTime = clock.FormatTime(startMinute)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			b.CreatedAt = ts
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate bookings: %v", ErrStorage, err)
	}
	return out, nil
}
