package store

import (
	"path/filepath"
	"time"

	"healthassist/pkg"
)

// RiskStore keeps per-turn risk assessments in risk_assessments/<user>.json.
type RiskStore struct {
	dir   string
	Clock Clock
}

// NewRiskStore returns the store rooted at root/risk_assessments.
func NewRiskStore(root string) *RiskStore {
	return &RiskStore{dir: filepath.Join(root, RiskDir)}
}

// Save appends one assessment to the user's history.
func (s *RiskStore) Save(userID string, in pkg.RiskInput) (pkg.RiskAssessment, error) {
	now := s.Clock.now()
	all := s.History(userID, 0)
	a := pkg.RiskAssessment{
		AssessmentID:       now.Format(idLayout),
		Timestamp:          now,
		Date:               now.Format(dateLayout),
		RiskLevel:          in.RiskLevel,
		Urgency:            in.Urgency,
		UserMessage:        in.UserMessage,
		AIResponse:         in.AIResponse,
		EmergencyAlertSent: in.EmergencyAlertSent,
	}
	all = append(all, a)
	if err := writeJSON(userFile(s.dir, userID), all); err != nil {
		return pkg.RiskAssessment{}, err
	}
	return a, nil
}

// History returns the assessments from the last days days, or all of them
// when days <= 0.
func (s *RiskStore) History(userID string, days int) []pkg.RiskAssessment {
	var all []pkg.RiskAssessment
	if !readJSON(userFile(s.dir, userID), &all) {
		return []pkg.RiskAssessment{}
	}
	return within(all, days, s.Clock.now(), riskTime)
}

// Summary counts assessments by level over the window and lists the five
// most recent high or critical events.
func (s *RiskStore) Summary(userID string, days int) pkg.RiskSummary {
	all := s.History(userID, days)
	sum := pkg.RiskSummary{
		TotalAssessments: len(all),
		HighRiskEvents:   []pkg.RiskAssessment{},
		DaysMonitored:    days,
	}
	if len(all) == 0 {
		return sum
	}

	var severe []pkg.RiskAssessment
	for _, a := range all {
		switch a.RiskLevel {
		case pkg.RiskLow:
			sum.LowRiskCount++
		case pkg.RiskMedium:
			sum.MediumRiskCount++
		case pkg.RiskHigh:
			sum.HighRiskCount++
			severe = append(severe, a)
		case pkg.RiskCritical:
			sum.CriticalRiskCount++
			severe = append(severe, a)
		}
	}
	latest := all[len(all)-1]
	sum.LatestAssessment = &latest
	sum.HighRiskEvents = newest(severe, 5, riskTime)
	return sum
}

func riskTime(a pkg.RiskAssessment) time.Time { return a.Timestamp }
