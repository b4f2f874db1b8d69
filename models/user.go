package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string    `gorm:"size:150;not null" json:"full_name"`
	Email    string    `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password string    `gorm:"type:text;not null" json:"-"`
	Role     UserRole  `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	// Grade level 1-12; 0 means not set on the profile yet.
	Grade     int       `gorm:"default:0" json:"grade"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
