package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Member struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberNumber string       `gorm:"not null;uniqueIndex" json:"member_number"`
	FullName     string       `gorm:"not null" json:"full_name"`
	Phone        string       `gorm:"not null" json:"phone"`
	Email        string       `json:"email,omitempty"`
	Residence    string       `json:"residence,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
