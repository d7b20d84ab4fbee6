// Package domain defines the persistence models for accounts, profiles,
// couples, and pairing invitations. These types are mapped with GORM and
// validated at construction time so services never persist malformed rows.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Roles a profile can take. A couple always has exactly one of each.
const (
	RoleHusband = "husband"
	RoleWife    = "wife"
)

// Notification frequencies. The empty value disables reminders.
const (
	FrequencyNone       = ""
	FrequencyOnce       = "once"
	FrequencyTwice      = "twice"
	FrequencyThreeTimes = "three_times"
)

const (
	// MaxDisplayNameRunes bounds Profile.DisplayName.
	MaxDisplayNameRunes = 80
	// MinPasswordRunes is the shortest password accepted at signup.
	MinPasswordRunes = 8
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrInvalidSchedule    = errors.New("invalid notification schedule")
	ErrIncompatibleRoles  = errors.New("incompatible roles")
)

// Account is the authentication identity behind a profile.
type Account struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount validates the email and wraps an already hashed password.
func NewAccount(email, passwordHash string) (*Account, error) {
	email = NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	return &Account{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}, nil
}

// ClockTimes is a list of "HH:MM" reminder times stored as a JSON array.
type ClockTimes []string

// Value implements driver.Valuer.
func (c ClockTimes) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(c))
	return string(b), err
}

// Scan implements sql.Scanner.
func (c *ClockTimes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("clock times: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*c = out
	return nil
}

// Profile is one person's application identity. Role is fixed at creation.
type Profile struct {
	ID                    string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	AuthID                string     `json:"auth_id"                gorm:"type:char(36);not null;uniqueIndex:ux_profiles_auth"`
	DisplayName           string     `json:"display_name"           gorm:"type:varchar(255);not null"`
	Role                  string     `json:"role"                   gorm:"type:varchar(16);not null;check:role IN ('husband','wife')"`
	NotificationFrequency string     `json:"notification_frequency" gorm:"type:varchar(16);not null;default:''"`
	NotificationTimes     ClockTimes `json:"notification_times"     gorm:"type:text;not null;default:'[]'"`
	Timezone              string     `json:"timezone"               gorm:"type:varchar(64);not null;default:'UTC'"`
	Locale                string     `json:"locale"                 gorm:"type:varchar(16);not null;default:'en'"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	Account Account `json:"-" gorm:"foreignKey:AuthID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// ValidRole reports whether r is one of the two supported roles.
func ValidRole(r string) bool { return r == RoleHusband || r == RoleWife }

// ValidateDisplayName trims the name and enforces 1..MaxDisplayNameRunes.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxDisplayNameRunes {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

// LoadTimezone resolves an IANA zone name. Empty means UTC.
func LoadTimezone(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// NewProfile validates inputs and returns a profile without a reminder schedule.
func NewProfile(authID, displayName, role, timezone string) (*Profile, error) {
	name, err := ValidateDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	tz := strings.TrimSpace(timezone)
	if _, err := LoadTimezone(tz); err != nil {
		return nil, err
	}
	if tz == "" {
		tz = "UTC"
	}
	return &Profile{
		ID:                uuid.NewString(),
		AuthID:            authID,
		DisplayName:       name,
		Role:              role,
		NotificationTimes: ClockTimes{},
		Timezone:          tz,
		Locale:            "en",
	}, nil
}

// Location returns the profile's time zone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	loc, err := LoadTimezone(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today is the calendar date in the profile's zone, formatted as YYYY-MM-DD.
func (p *Profile) Today(now time.Time) string {
	return DateAt(now, p.Location())
}

// SetSchedule replaces the reminder schedule after validating that the number
// of times matches the frequency and that each time is a valid HH:MM.
func (p *Profile) SetSchedule(frequency string, times []string) error {
	want, ok := frequencySlots[frequency]
	if !ok || len(times) != want {
		return ErrInvalidSchedule
	}
	out := make(ClockTimes, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if _, err := time.Parse("15:04", t); err != nil || len(t) != 5 {
			return ErrInvalidSchedule
		}
		out = append(out, t)
	}
	p.NotificationFrequency = frequency
	p.NotificationTimes = out
	return nil
}

var frequencySlots = map[string]int{
	FrequencyNone:       0,
	FrequencyOnce:       1,
	FrequencyTwice:      2,
	FrequencyThreeTimes: 3,
}

// Couple is an active or historical pairing. Each role has its own slot, so
// the two members always have different roles. The partial unique indexes
// keep at most one active couple per husband and per wife.
type Couple struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	HusbandID     string     `json:"husband_id"     gorm:"type:char(36);not null;index;uniqueIndex:ux_couples_active_husband,where:is_active = true"`
	WifeID        string     `json:"wife_id"        gorm:"type:char(36);not null;index;uniqueIndex:ux_couples_active_wife,where:is_active = true"`
	IsActive      bool       `json:"is_active"      gorm:"not null;default:true"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// TableName returns the database table name for Couple.
func (Couple) TableName() string { return "couples" }

// NewCouple places a and b into the slots matching their roles.
func NewCouple(a, b *Profile) (*Couple, error) {
	if a == nil || b == nil || a.ID == b.ID || a.Role == b.Role {
		return nil, ErrIncompatibleRoles
	}
	c := &Couple{ID: uuid.NewString(), IsActive: true}
	switch a.Role {
	case RoleHusband:
		c.HusbandID, c.WifeID = a.ID, b.ID
	case RoleWife:
		c.HusbandID, c.WifeID = b.ID, a.ID
	default:
		return nil, ErrInvalidRole
	}
	if !ValidRole(b.Role) {
		return nil, ErrInvalidRole
	}
	return c, nil
}

// Has reports whether profileID is a member of the couple.
func (c *Couple) Has(profileID string) bool {
	return profileID != "" && (c.HusbandID == profileID || c.WifeID == profileID)
}

// PartnerOf returns the other member's id, or false if profileID is not a member.
func (c *Couple) PartnerOf(profileID string) (string, bool) {
	switch profileID {
	case "":
		return "", false
	case c.HusbandID:
		return c.WifeID, true
	case c.WifeID:
		return c.HusbandID, true
	}
	return "", false
}

// InvitationTokenLength is the number of url-safe characters in a token.
const InvitationTokenLength = 32

// Invitation is a single-use pairing offer.
type Invitation struct {
	ID        string     `json:"id"                gorm:"type:char(36);primaryKey"`
	SenderID  string     `json:"sender_id"         gorm:"type:char(36);not null;index"`
	Token     string     `json:"token"             gorm:"type:varchar(64);not null;uniqueIndex:ux_invitations_token"`
	ExpiresAt time.Time  `json:"expires_at"        gorm:"not null"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	UsedBy    *string    `json:"used_by,omitempty" gorm:"type:char(36)"`
	CreatedAt time.Time  `json:"created_at"`

	Sender Profile `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Invitation.
func (Invitation) TableName() string { return "invitations" }

// NewInvitation builds an unused invitation expiring ttl after now.
func NewInvitation(senderID, token string, now time.Time, ttl time.Duration) *Invitation {
	return &Invitation{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Expired reports whether now is strictly after the expiry.
func (i *Invitation) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }

// Link renders the shareable invitation URL.
func (i *Invitation) Link(origin string) string {
	return strings.TrimRight(origin, "/") + "/invite/" + i.Token
}
