package pkg

import "time"

// MessageRole describes who authored a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one persisted turn of a conversation thread.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

// Risk levels the orchestrator may assign to a medical query.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Urgency values the orchestrator may recommend.
const (
	UrgencyMonitor        = "monitor"
	UrgencyScheduleVisit  = "schedule_visit"
	UrgencySeekUrgentCare = "seek_urgent_care"
	UrgencyCallEmergency  = "call_emergency"
)

// ChatResult is the structured answer produced by the orchestrator for a
// single turn. Fact, RiskLevel and Urgency are empty when not applicable.
type ChatResult struct {
	Response  string `json:"response"`
	Fact      string `json:"fact,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
	Urgency   string `json:"urgency,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Location string `json:"location,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response           string  `json:"response"`
	RiskLevel          *string `json:"risk_level"`
	Urgency            *string `json:"urgency"`
	EmergencyAlertSent bool    `json:"emergency_alert_sent"`
	ThreadID           string  `json:"thread_id"`
}

// User is a registered account as stored in users.json.
type User struct {
	UserID       string    `json:"user_id"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Profile      Profile   `json:"profile"`
}

// Profile holds the onboarding data collected for a user.
type Profile struct {
	OnboardingComplete bool              `json:"onboarding_complete"`
	MedicalData        MedicalData       `json:"medical_data"`
	EmergencyContacts  EmergencyContacts `json:"emergency_contacts"`
	Preferences        Preferences       `json:"preferences"`
	UpdatedAt          *time.Time        `json:"updated_at,omitempty"`
}

type MedicalData struct {
	Allergies          []string `json:"allergies"`
	Conditions         []string `json:"conditions"`
	MedicationsToAvoid []string `json:"medications_to_avoid"`
	BloodGroup         string   `json:"blood_group"`
	OngoingIssues      []string `json:"ongoing_issues"`
}

// Contact is a person who may receive an emergency alert.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

type EmergencyContacts struct {
	Doctor       Contact   `json:"doctor"`
	LovedOnes    []Contact `json:"loved_ones"`
	ConsentGiven bool      `json:"consent_given"`
}

type Preferences struct {
	Language   string `json:"language"`
	OutputMode string `json:"output_mode"`
}

// ProfileUpdate is the body of POST /onboarding/profile. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Allergies          []string  `json:"allergies,omitempty"`
	Conditions         []string  `json:"conditions,omitempty"`
	MedicationsToAvoid []string  `json:"medications_to_avoid,omitempty"`
	BloodGroup         *string   `json:"blood_group,omitempty"`
	OngoingIssues      []string  `json:"ongoing_issues,omitempty"`
	Doctor             *Contact  `json:"doctor,omitempty"`
	LovedOnes          []Contact `json:"loved_ones,omitempty"`
	ConsentGiven       *bool     `json:"consent_given,omitempty"`
	Language           *string   `json:"language,omitempty"`
	OutputMode         *string   `json:"output_mode,omitempty"`
	MarkComplete       bool      `json:"mark_complete,omitempty"`
}

// Session is a bearer-token login as stored in sessions.json.
type Session struct {
	Username  string    `json:"username"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TrackingInput is the user-supplied part of a daily tracking entry.
type TrackingInput struct {
	Mood        string   `json:"mood,omitempty"`
	Symptoms    []string `json:"symptoms,omitempty"`
	Energy      string   `json:"energy,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// TrackingEntry is one stored daily check-in.
type TrackingEntry struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	TrackingInput
}

// RiskInput carries the outcome of one assessed chat turn.
type RiskInput struct {
	RiskLevel          string
	Urgency            string
	UserMessage        string
	AIResponse         string
	EmergencyAlertSent bool
}

// RiskAssessment is one stored risk record.
type RiskAssessment struct {
	AssessmentID       string    `json:"assessment_id"`
	Timestamp          time.Time `json:"timestamp"`
	Date               string    `json:"date"`
	RiskLevel          string    `json:"risk_level"`
	Urgency            string    `json:"urgency"`
	UserMessage        string    `json:"user_message"`
	AIResponse         string    `json:"ai_response"`
	EmergencyAlertSent bool      `json:"emergency_alert_sent"`
}

type RiskSummary struct {
	TotalAssessments  int              `json:"total_assessments"`
	HighRiskCount     int              `json:"high_risk_count"`
	MediumRiskCount   int              `json:"medium_risk_count"`
	LowRiskCount      int              `json:"low_risk_count"`
	CriticalRiskCount int              `json:"critical_risk_count"`
	LatestAssessment  *RiskAssessment  `json:"latest_assessment"`
	HighRiskEvents    []RiskAssessment `json:"high_risk_events"`
	DaysMonitored     int              `json:"days_monitored"`
}

// AlertData describes the situation that triggered an emergency alert.
type AlertData struct {
	Severity     string `json:"severity"`
	Symptoms     string `json:"symptoms"`
	AIAssessment string `json:"ai_assessment"`
	UserLocation string `json:"user_location"`
}

// AlertRecord is one stored alert attempt, successful or not.
type AlertRecord struct {
	AlertID      string    `json:"alert_id"`
	Timestamp    time.Time `json:"timestamp"`
	Date         string    `json:"date"`
	Severity     string    `json:"severity"`
	Symptoms     string    `json:"symptoms"`
	AIAssessment string    `json:"ai_assessment"`
	UserLocation string    `json:"user_location"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
}

type AlertSummary struct {
	TotalAlerts      int           `json:"total_alerts"`
	SuccessfulAlerts int           `json:"successful_alerts"`
	FailedAlerts     int           `json:"failed_alerts"`
	LatestAlert      *AlertRecord  `json:"latest_alert"`
	RecentAlerts     []AlertRecord `json:"recent_alerts"`
	DaysMonitored    int           `json:"days_monitored"`
}

// ThreadMeta summarises one conversation thread for the history sidebar.
type ThreadMeta struct {
	ThreadID     string    `json:"thread_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	LastMessage  string    `json:"last_message"`
	MessageCount int       `json:"message_count"`
}

// UserMemory describes one user's memory file.
type UserMemory struct {
	UserID      string    `json:"user_id"`
	LastUpdated time.Time `json:"last_updated"`
	Preview     string    `json:"preview"`
}
