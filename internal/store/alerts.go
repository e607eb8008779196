package store

import (
	"path/filepath"
	"time"

	"healthassist/pkg"
)

const locationNotProvided = "Not provided"

// AlertStore records every emergency alert attempt in
// emergency_alerts_history/<user>.json.
type AlertStore struct {
	dir   string
	Clock Clock
}

// NewAlertStore returns the store rooted at root/emergency_alerts_history.
func NewAlertStore(root string) *AlertStore {
	return &AlertStore{dir: filepath.Join(root, AlertsDir)}
}

// Save records one alert attempt. A blank location is stored as not provided.
func (s *AlertStore) Save(userID string, data pkg.AlertData, success bool, message string) (pkg.AlertRecord, error) {
	now := s.Clock.now()
	all := s.History(userID, 0)
	loc := data.UserLocation
	if loc == "" {
		loc = locationNotProvided
	}
	rec := pkg.AlertRecord{
		AlertID:      now.Format(idLayout),
		Timestamp:    now,
		Date:         now.Format(dateLayout),
		Severity:     data.Severity,
		Symptoms:     data.Symptoms,
		AIAssessment: data.AIAssessment,
		UserLocation: loc,
		Success:      success,
		Message:      message,
	}
	all = append(all, rec)
	if err := writeJSON(userFile(s.dir, userID), all); err != nil {
		return pkg.AlertRecord{}, err
	}
	return rec, nil
}

// History returns the alerts from the last days days, or all of them when
// days <= 0.
func (s *AlertStore) History(userID string, days int) []pkg.AlertRecord {
	var all []pkg.AlertRecord
	if !readJSON(userFile(s.dir, userID), &all) {
		return []pkg.AlertRecord{}
	}
	return within(all, days, s.Clock.now(), alertTime)
}

// Summary counts outcomes over the window and lists the latest alerts.
func (s *AlertStore) Summary(userID string, days int) pkg.AlertSummary {
	all := s.History(userID, days)
	sum := pkg.AlertSummary{
		TotalAlerts:   len(all),
		RecentAlerts:  []pkg.AlertRecord{},
		DaysMonitored: days,
	}
	if len(all) == 0 {
		return sum
	}
	for _, a := range all {
		if a.Success {
			sum.SuccessfulAlerts++
		} else {
			sum.FailedAlerts++
		}
	}
	latest := all[len(all)-1]
	sum.LatestAlert = &latest
	sum.RecentAlerts = newest(all, 10, alertTime)
	return sum
}

func alertTime(a pkg.AlertRecord) time.Time { return a.Timestamp }
