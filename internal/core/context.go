package core

import (
	"strings"

	"healthassist/internal/store"
	"healthassist/pkg"
)

// trackingWindowDays is how far back the tracking summary looks.
const trackingWindowDays = 7

// Assembler builds the per-user context block handed to the orchestrator.
type Assembler struct {
	Facts    *store.FactStore
	Users    *store.UserStore
	Tracking *store.TrackingStore
}

// Build returns the facts, profile and recent tracking sections joined by a
// blank line. Empty sections are left out; the result is "" when the user
// has nothing on file.
func (a *Assembler) Build(userID string) string {
	var sections []string
	if facts := a.Facts.Text(userID); facts != "" {
		sections = append(sections, "Long-term facts about the user:\n"+facts)
	}
	if profile := profileSummary(a.Users.Profile(userID)); profile != "" {
		sections = append(sections, profile)
	}
	if tracking := a.Tracking.Summary(userID, trackingWindowDays); tracking != "" {
		sections = append(sections, tracking)
	}
	return strings.Join(sections, "\n\n")
}

func profileSummary(p pkg.Profile) string {
	md := p.MedicalData
	var lines []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			lines = append(lines, "- "+label+": "+strings.Join(values, ", "))
		}
	}
	add("Allergies", md.Allergies)
	add("Chronic Conditions", md.Conditions)
	add("Medications to Avoid", md.MedicationsToAvoid)
	if md.BloodGroup != "" {
		lines = append(lines, "- Blood Group: "+md.BloodGroup)
	}
	add("Ongoing Issues", md.OngoingIssues)
	if len(lines) == 0 {
		return ""
	}
	return "User Medical Profile:\n" + strings.Join(lines, "\n")
}
