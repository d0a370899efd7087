package user

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleLearner Role = "learner"
)

// User is a learner (or admin) account. Learners own conversations; admins
// additionally manage accounts.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(10);not null;default:'learner'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
