package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/seitai-booking/internal/booking"
	"github.com/codr1/seitai-booking/internal/catalog"
	"github.com/codr1/seitai-booking/internal/clock"
	"github.com/codr1/seitai-booking/internal/email"
)

const daySheetJobTimeout = time.Minute

// RegisterDaySheetJob schedules the daily email carrying the next day's
// sheet, sent the evening before. sendAt is a local wall-clock time in
// "HH:MM" form.
func RegisterDaySheetJob(store booking.Store, services *catalog.Catalog, sender email.Sender, recipient, sendAt string) error {
	if store == nil {
		return fmt.Errorf("day sheet job requires a booking store")
	}
	if recipient == "" {
		return fmt.Errorf("day sheet job requires a recipient")
	}

	minute, err := clock.ParseTime(sendAt)
	if err != nil {
		return fmt.Errorf("day sheet send time %q: %w", sendAt, err)
	}
	cronExpr := fmt.Sprintf("%d %d * * *", minute%60, minute/60)

	jobName := "daily_day_sheet"
	jobLogger := log.With().
		Str("component", "day_sheet_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err = AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), daySheetJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if sender == nil {
			jobLogger.Debug().Msg("Day sheet skipped: email client not configured")
			return
		}

		// The sheet goes out the evening before, covering the next day.
		date := time.Now().AddDate(0, 0, 1).Format(booking.DateLayout)
		bookings, err := store.ListByDate(ctx, date)
		if err != nil {
			jobLogger.Error().Err(err).Str("date", date).Msg("Failed to load bookings for day sheet")
			return
		}
		sortByStart(bookings)

		subject, body := email.BuildDaySheet(date, bookings, services)
		if err := sender.Send(ctx, recipient, subject, body); err != nil {
			jobLogger.Error().Err(err).Str("date", date).Msg("Failed to send day sheet")
			return
		}
		jobLogger.Info().Str("date", date).Int("bookings", len(bookings)).Msg("Day sheet sent")
	})
	return err
}

// sortByStart orders a day's bookings by start time. ListByDate returns
// creation order, which is what conflict checks want but not the front desk.
func sortByStart(bookings []booking.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].StartTime < bookings[j].StartTime
	})
}
