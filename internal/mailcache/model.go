package mailcache

import (
	"time"

	"github.com/teemow/inboxpilot/internal/mailbox"
)

type messageRecord struct {
	ID         string    `gorm:"primaryKey;type:varchar(255)"`
	ThreadID   string    `gorm:"type:varchar(255)"`
	Subject    string    `gorm:"not null;default:''"`
	From       string    `gorm:"column:sender"`
	Snippet    string    `gorm:"not null;default:''"`
	Body       string    `gorm:"not null;default:''"`
	HTML       string    `gorm:"column:html"`
	ReceivedAt time.Time `gorm:"index"`
	LabelIDs   []string  `gorm:"serializer:json"`
	UpdatedAt  time.Time
}

func (messageRecord) TableName() string {
	return "messages"
}

type metaRecord struct {
	Name  string `gorm:"primaryKey;type:varchar(64)"`
	Value time.Time
}

func (metaRecord) TableName() string {
	return "snapshot_meta"
}

const metaLastRefresh = "last_refresh"

func fromMessage(m mailbox.Message) messageRecord {
	return messageRecord{
		ID:         m.ID,
		ThreadID:   m.ThreadID,
		Subject:    m.Subject,
		From:       m.From,
		Snippet:    m.Snippet,
		Body:       m.Body,
		HTML:       m.HTML,
		ReceivedAt: m.ReceivedAt.UTC(),
		LabelIDs:   m.LabelIDs,
	}
}

func (r messageRecord) toMessage() mailbox.Message {
	return mailbox.Message{
		ID:         r.ID,
		ThreadID:   r.ThreadID,
		Subject:    r.Subject,
		From:       r.From,
		Snippet:    r.Snippet,
		Body:       r.Body,
		HTML:       r.HTML,
		ReceivedAt: r.ReceivedAt.UTC(),
		LabelIDs:   r.LabelIDs,
	}
}
