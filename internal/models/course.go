package models

import (
	"time"

	"gorm.io/gorm"
)

// Course is a purchasable unit of content.
type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"not null;default:0" json:"price"`
	Currency    string         `gorm:"size:8;not null;default:EGP" json:"currency"`
	Published   bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Modules     []Module       `json:"modules,omitempty"`
}

// IsFree reports whether enrolling requires no payment.
func (c Course) IsFree() bool {
	return c.Price == 0
}

// Module groups lessons inside a course.
type Module struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lessons   []Lesson  `json:"lessons,omitempty"`
}

// Lesson is the smallest completable piece of a course.
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ModuleID  uint           `gorm:"index;not null" json:"module_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Published bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Module    Module         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
