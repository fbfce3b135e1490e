package types

import (
	"time"

	"github.com/google/uuid"
)

// ContentPost is a piece of content the creator published on a platform.
// It is the fallback evidence for probabilistic attribution when no
// click candidate clears the confidence floor.
type ContentPost struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Platform    Platform  `gorm:"size:20;not null" json:"platform"`
	ContentType string    `gorm:"size:40" json:"content_type,omitempty"`
	Niche       string    `gorm:"size:60" json:"niche,omitempty"`
	Title       string    `gorm:"size:300" json:"title,omitempty"`
	PostedAt    time.Time `gorm:"not null;index" json:"posted_at"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ContentPost) TableName() string { return "content_post" }
