package models

import "time"

// Notification represents an in-app message targeted to a specific user.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every model managed by the migrations, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Course{},
		&Module{},
		&Lesson{},
		&Enrollment{},
		&CompletedLesson{},
		&CouponCode{},
		&CouponUsage{},
		&Payment{},
		&Notification{},
	}
}
