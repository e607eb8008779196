package alert

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"healthassist/pkg"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/alert.txt.tmpl"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/alert.html.tmpl"))
)

const (
	senderName        = "ZionX Health Alert"
	noLocation        = "Not provided"
	timestampLayout   = "2006-01-02 15:04:05"
	defaultSeverity   = "high"
	defaultSymptoms   = "Not specified"
	defaultAssessment = "User requires immediate medical attention"
)

// recipient is one contact with an address, tagged by role.
type recipient struct {
	Name   string
	Email  string
	Doctor bool
}

// Email is a rendered alert ready for delivery.
type Email struct {
	ToName  string
	To      string
	Subject string
	Text    string
	HTML    string
}

type emailView struct {
	ContactName string
	User        string
	Timestamp   string
	Severity    string
	Symptoms    string
	Assessment  string
	Location    string
	HasLocation bool
	Doctor      bool
}

func subject(user string) string {
	return fmt.Sprintf("⚠️ URGENT: Health Alert for %s", user)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// render builds the plain and HTML alternatives for one recipient. The HTML
// template escapes user-supplied text.
func render(to recipient, user string, data pkg.AlertData, at time.Time) (Email, error) {
	loc := orDefault(data.UserLocation, noLocation)
	view := emailView{
		ContactName: to.Name,
		User:        user,
		Timestamp:   at.Format(timestampLayout),
		Severity:    strings.ToUpper(orDefault(data.Severity, defaultSeverity)),
		Symptoms:    orDefault(data.Symptoms, defaultSymptoms),
		Assessment:  orDefault(data.AIAssessment, defaultAssessment),
		Location:    loc,
		HasLocation: loc != noLocation,
		Doctor:      to.Doctor,
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, view); err != nil {
		return Email{}, fmt.Errorf("render alert text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return Email{}, fmt.Errorf("render alert html: %w", err)
	}
	return Email{
		ToName:  to.Name,
		To:      to.Email,
		Subject: subject(user),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
