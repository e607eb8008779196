package store

import (
	"errors"
	"path/filepath"

	"healthassist/pkg"
)

var (
	ErrUserExists = errors.New("username already exists")
	ErrNotFound   = errors.New("user not found")
)

// UserStore is the users.json credential file, keyed by username.
type UserStore struct {
	path  string
	Clock Clock
}

// NewUserStore returns the store backed by root/users.json.
func NewUserStore(root string) *UserStore {
	return &UserStore{path: filepath.Join(root, UsersFile)}
}

func (s *UserStore) load() map[string]*pkg.User {
	return readMap[pkg.User](s.path)
}

// Get returns the stored record, including the password hash.
func (s *UserStore) Get(username string) (*pkg.User, bool) {
	u, ok := s.load()[username]
	return u, ok
}

// Create adds a new user. An existing username is never overwritten.
func (s *UserStore) Create(username, passwordHash, email string) (*pkg.User, error) {
	users := s.load()
	if _, ok := users[username]; ok {
		return nil, ErrUserExists
	}
	u := &pkg.User{
		UserID:       username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    s.Clock.now(),
	}
	users[username] = u
	if err := writeJSON(s.path, users); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile merges the present fields of up into the user's profile.
func (s *UserStore) UpdateProfile(username string, up pkg.ProfileUpdate) (*pkg.Profile, error) {
	users := s.load()
	u, ok := users[username]
	if !ok {
		return nil, ErrNotFound
	}
	applyProfileUpdate(&u.Profile, up)
	now := s.Clock.now()
	u.Profile.UpdatedAt = &now
	if err := writeJSON(s.path, users); err != nil {
		return nil, err
	}
	return &u.Profile, nil
}

// Profile returns the onboarding profile, zero-valued for unknown users.
func (s *UserStore) Profile(username string) pkg.Profile {
	if u, ok := s.Get(username); ok {
		return u.Profile
	}
	return pkg.Profile{}
}

// EmergencyContacts returns the user's doctor and loved ones.
func (s *UserStore) EmergencyContacts(username string) pkg.EmergencyContacts {
	return s.Profile(username).EmergencyContacts
}

// HasEmergencyConsent reports whether the user agreed to alert notifications.
func (s *UserStore) HasEmergencyConsent(username string) bool {
	return s.Profile(username).EmergencyContacts.ConsentGiven
}

func applyProfileUpdate(p *pkg.Profile, up pkg.ProfileUpdate) {
	md := &p.MedicalData
	if up.Allergies != nil {
		md.Allergies = up.Allergies
	}
	if up.Conditions != nil {
		md.Conditions = up.Conditions
	}
	if up.MedicationsToAvoid != nil {
		md.MedicationsToAvoid = up.MedicationsToAvoid
	}
	if up.BloodGroup != nil {
		md.BloodGroup = *up.BloodGroup
	}
	if up.OngoingIssues != nil {
		md.OngoingIssues = up.OngoingIssues
	}

	ec := &p.EmergencyContacts
	if up.Doctor != nil {
		ec.Doctor = *up.Doctor
	}
	if up.LovedOnes != nil {
		ec.LovedOnes = up.LovedOnes
	}
	if up.ConsentGiven != nil {
		ec.ConsentGiven = *up.ConsentGiven
	}

	if up.Language != nil {
		p.Preferences.Language = *up.Language
	}
	if up.OutputMode != nil {
		p.Preferences.OutputMode = *up.OutputMode
	}
	if up.MarkComplete {
		p.OnboardingComplete = true
	}
}
