package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxOliveBranchRunes bounds the text of an olive branch.
const MaxOliveBranchRunes = 2000

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
	ErrEmptyQuote     = errors.New("quote is empty")
)

// OliveBranchMessage is a reconciliation note from one partner to the other.
// AudioKey points at an archived voice clip when the text was dictated.
type OliveBranchMessage struct {
	ID          string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	CoupleID    string    `json:"couple_id"           gorm:"type:char(36);not null;index:idx_olive_couple_created,priority:1"`
	SenderID    string    `json:"sender_id"           gorm:"type:char(36);not null"`
	RecipientID string    `json:"recipient_id"        gorm:"type:char(36);not null;index"`
	Message     string    `json:"message"             gorm:"type:text;not null"`
	AudioKey    *string   `json:"audio_key,omitempty" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"          gorm:"index:idx_olive_couple_created,priority:2"`

	Couple Couple `json:"-" gorm:"foreignKey:CoupleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for OliveBranchMessage.
func (OliveBranchMessage) TableName() string { return "olive_branch_messages" }

// ValidateMessage trims text and rejects empty or oversized input.
func ValidateMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxOliveBranchRunes {
		return "", ErrMessageTooLong
	}
	return text, nil
}

// NewOliveBranch addresses a message from senderID to the other member of c.
// The caller is responsible for checking that c is the sender's active couple.
func NewOliveBranch(c *Couple, senderID, text string, audioKey *string) (*OliveBranchMessage, error) {
	text, err := ValidateMessage(text)
	if err != nil {
		return nil, err
	}
	recipient, ok := c.PartnerOf(senderID)
	if !ok {
		return nil, ErrIncompatibleRoles
	}
	if audioKey != nil && strings.TrimSpace(*audioKey) == "" {
		audioKey = nil
	}
	return &OliveBranchMessage{
		ID:          uuid.NewString(),
		CoupleID:    c.ID,
		SenderID:    senderID,
		RecipientID: recipient,
		Message:     text,
		AudioKey:    audioKey,
	}, nil
}

// Quote is a global inspirational quote.
type Quote struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Message   string    `json:"message"    gorm:"type:text;not null;uniqueIndex:ux_quotes_message"`
	Source    string    `json:"source"     gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Quote.
func (Quote) TableName() string { return "quotes" }

// NewQuote trims both fields and requires a message.
func NewQuote(message, source string) (*Quote, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyQuote
	}
	return &Quote{ID: uuid.NewString(), Message: message, Source: strings.TrimSpace(source)}, nil
}
