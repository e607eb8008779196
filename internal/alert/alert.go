// Package alert decides when a chat turn warrants notifying the user's
// emergency contacts and delivers the emails.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"healthassist/internal/metrics"
	"healthassist/pkg"
)

const (
	msgNoConsent  = "User has not given consent for emergency alerts"
	msgNoContacts = "No emergency contact emails configured"
	msgFailed     = "Failed to send emergency alerts"
)

// ShouldTrigger reports whether the assessment calls for an alert. Both
// checks are exact string matches.
func ShouldTrigger(riskLevel, urgency string) bool {
	return riskLevel == pkg.RiskCritical || urgency == pkg.UrgencyCallEmergency
}

// Contacts looks up who may be alerted for a user.
type Contacts interface {
	HasEmergencyConsent(username string) bool
	EmergencyContacts(username string) pkg.EmergencyContacts
}

// History records every alert attempt.
type History interface {
	Save(userID string, data pkg.AlertData, success bool, message string) (pkg.AlertRecord, error)
}

// Recorder mirrors stored attempts to an external sink.
type Recorder interface {
	Record(ctx context.Context, userID string, rec pkg.AlertRecord) error
}

// Outcome is the aggregate result of one dispatch.
type Outcome struct {
	Sent    bool   `json:"success"`
	Message string `json:"message"`
}

type Dispatcher struct {
	contacts Contacts
	history  History
	mailer   Mailer
	log      zerolog.Logger

	// Mirror is optional.
	Mirror Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewDispatcher wires the contact lookup, alert history and mailer.
func NewDispatcher(contacts Contacts, history History, mailer Mailer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{contacts: contacts, history: history, mailer: mailer, log: log}
}

func (d *Dispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Dispatch emails every consenting contact that has an address, doctor
// first. Success means at least one email went out; individual failures are
// only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, data pkg.AlertData) Outcome {
	out := d.send(ctx, userID, data)
	if out.Sent {
		metrics.EmergencyAlerts.WithLabelValues(metrics.OutcomeSent).Inc()
	} else {
		metrics.EmergencyAlerts.WithLabelValues(metrics.OutcomeFailed).Inc()
	}
	d.record(ctx, userID, data, out)
	return out
}

func (d *Dispatcher) send(ctx context.Context, userID string, data pkg.AlertData) Outcome {
	if !d.contacts.HasEmergencyConsent(userID) {
		return Outcome{Message: msgNoConsent}
	}
	recipients := recipients(d.contacts.EmergencyContacts(userID))
	if len(recipients) == 0 {
		return Outcome{Message: msgNoContacts}
	}

	at := d.now()
	sent := 0
	for _, to := range recipients {
		email, err := render(to, userID, data, at)
		if err == nil {
			err = d.mailer.Send(ctx, email)
		}
		if err != nil {
			d.log.Error().Err(err).Str("user_id", userID).Str("to", to.Email).Msg("emergency alert email failed")
			continue
		}
		d.log.Info().Str("user_id", userID).Str("to", to.Email).Msg("emergency alert sent")
		sent++
	}
	if sent == 0 {
		return Outcome{Message: msgFailed}
	}
	return Outcome{Sent: true, Message: fmt.Sprintf("Emergency alert sent to %d contact(s)", sent)}
}

func (d *Dispatcher) record(ctx context.Context, userID string, data pkg.AlertData, out Outcome) {
	rec, err := d.history.Save(userID, data, out.Sent, out.Message)
	if err != nil {
		d.log.Error().Err(err).Str("user_id", userID).Msg("saving alert history failed")
		return
	}
	if d.Mirror == nil {
		return
	}
	if err := d.Mirror.Record(ctx, userID, rec); err != nil {
		d.log.Warn().Err(err).Str("user_id", userID).Msg("mirroring alert failed")
	}
}

func recipients(c pkg.EmergencyContacts) []recipient {
	var out []recipient
	if c.Doctor.Email != "" {
		out = append(out, recipient{Name: nameOr(c.Doctor.Name, "Doctor"), Email: c.Doctor.Email, Doctor: true})
	}
	for _, lo := range c.LovedOnes {
		if lo.Email != "" {
			out = append(out, recipient{Name: nameOr(lo.Name, "Emergency Contact"), Email: lo.Email})
		}
	}
	return out
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
