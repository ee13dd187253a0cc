package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/events"
	"carenest-server/internal/models"
	"carenest-server/internal/services"
)

// Reminder publishes an appointment.reminder event for every active
// appointment scheduled for the next day.
type Reminder struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewReminder(db *gorm.DB, publisher events.Publisher, log *zap.Logger) *Reminder {
	return &Reminder{db: db, publisher: publisher, log: log, now: time.Now}
}

func (r *Reminder) Run(ctx context.Context) error {
	_, err := r.Remind(ctx)
	return err
}

// Remind returns the number of reminders published. All reminders go out
// in one batch; a failed publish is logged and reported as zero sent.
func (r *Reminder) Remind(ctx context.Context) (int, error) {
	now := r.now()
	tomorrow := now.AddDate(0, 0, 1).Format(models.DateLayout)

	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("date = ? AND status IN ?", tomorrow, []models.AppointmentStatus{models.StatusBooked, models.StatusConfirmed}).
		Order("time ASC").
		Find(&appts).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load appointments for %s: %w", tomorrow, err)
	}

	batch := make([]events.AppointmentEvent, len(appts))
	for i := range appts {
		batch[i] = services.EventFor(events.AppointmentReminder, &appts[i], now)
	}
	sent := len(batch)
	if sent == 0 {
		return 0, nil
	}
	if err := r.publisher.Publish(ctx, batch...); err != nil {
		r.log.Warn("failed to publish reminders", zap.String("date", tomorrow), zap.Int("count", len(batch)), zap.Error(err))
		sent = 0
	}

	r.log.Info("Appointment reminders sent", zap.String("date", tomorrow), zap.Int("count", sent))
	return sent, nil
}
