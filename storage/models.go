package storage

import (
	"time"
)

// Subscription routes messages from a source chat (optionally a topic) to a destination chat
type Subscription struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement"`
	SourceID      string    `gorm:"column:source_id;type:varchar(64);not null;index:idx_subscriptions_source"`
	DestinationID string    `gorm:"column:destination_id;type:varchar(64);not null"`
	UserIDCreated string    `gorm:"column:user_id_created;type:varchar(32);not null;index:idx_subscriptions_owner"`
	CreatedDate   time.Time `gorm:"column:created_date;autoCreateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
