package domain

import "time"

// User is the durable tenant application account a phone identity is allowed
// to act as. This subsystem does not own its lifecycle; it reads the gating
// fields and back-fills denormalized link fields.
type User struct {
	ID                  string
	TenantID            string
	Email               string
	Phone               string
	PhoneNormalized     string
	DisplayName         string
	PhoneIdentityID     string // back-reference to the phone identity; empty until linked
	ApprovalStatus      ApprovalStatus
	Status              Status
	ChatbotAccessStatus ChatbotAccessStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

type ChatbotAccessStatus string

const (
	ChatbotAccessApproved ChatbotAccessStatus = "approved"
	ChatbotAccessPending  ChatbotAccessStatus = "pending"
	ChatbotAccessRevoked  ChatbotAccessStatus = "revoked"
)
