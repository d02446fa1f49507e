package models

import "time"

// AuditLog records a mutating action for compliance review
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     *uint     `json:"user_id,omitempty" gorm:"index"`
	Action     string    `json:"action" gorm:"not null"`
	EntityType string    `json:"entity_type" gorm:"not null;index"`
	EntityID   uint      `json:"entity_id" gorm:"not null"`
	Changes    string    `json:"changes,omitempty" gorm:"type:text"` // JSON diff of fields
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
