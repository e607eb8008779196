package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"healthassist/pkg"
)

const insertAlert = `INSERT INTO alert_events
    (user_id, alert_id, severity, symptoms, ai_assessment, user_location, success, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (alert_id) DO NOTHING`

// Event is the NOTIFY payload published for every mirrored alert.
type Event struct {
	UserID   string    `json:"user_id"`
	AlertID  string    `json:"alert_id"`
	Severity string    `json:"severity"`
	Success  bool      `json:"success"`
	At       time.Time `json:"at"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Mirror copies alert attempts into Postgres and announces them on a
// LISTEN/NOTIFY channel so a dashboard can follow along.
type Mirror struct {
	DB      execer
	Channel string
}

// NewMirror returns a Mirror that notifies on channel after each insert.
func NewMirror(db *sql.DB, channel string) *Mirror {
	return &Mirror{DB: db, Channel: channel}
}

// Record inserts the alert and notifies listeners. Re-recording the same
// alert id is a no-op insert but still notifies.
func (m *Mirror) Record(ctx context.Context, userID string, rec pkg.AlertRecord) error {
	_, err := m.DB.ExecContext(ctx, insertAlert,
		userID, rec.AlertID, rec.Severity, rec.Symptoms, rec.AIAssessment,
		rec.UserLocation, rec.Success, rec.Message, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	payload, err := json.Marshal(Event{
		UserID:   userID,
		AlertID:  rec.AlertID,
		Severity: rec.Severity,
		Success:  rec.Success,
		At:       rec.Timestamp,
	})
	if err != nil {
		return err
	}
	if _, err := m.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", m.Channel, string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", m.Channel, err)
	}
	return nil
}

// Listen subscribes to the channel on a dedicated connection and yields
// events until ctx is cancelled. The returned channel is closed on exit.
func Listen(ctx context.Context, dsn, channel string, log zerolog.Logger) (<-chan Event, error) {
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("alert listener connection event")
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// nil after a reconnect
				if n == nil {
					continue
				}
				ev, err := decodeEvent(n.Extra)
				if err != nil {
					log.Warn().Err(err).Str("payload", n.Extra).Msg("dropping malformed alert event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					log.Warn().Err(err).Msg("alert listener ping failed")
				}
			}
		}
	}()
	return out, nil
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.AlertID == "" {
		return Event{}, fmt.Errorf("alert event without alert_id")
	}
	return ev, nil
}
