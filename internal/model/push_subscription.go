package model

import "time"

// PushSubscription holds the information for a browser push subscription
// and the tables whose release it wants to hear about.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey;size:512"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	TableIDs  []string  `gorm:"serializer:json"`
	CreatedAt time.Time `gorm:"not null"`
}

// Watches reports whether the subscription asked for the given table.
func (s PushSubscription) Watches(tableID string) bool {
	for _, id := range s.TableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}
