package domain

import "time"

type RequestKind string

const (
	KindOnDuty   RequestKind = "OnDuty"
	KindGatePass RequestKind = "GatePass"
	KindLeave    RequestKind = "Leave"
)

// KnownKind reports whether k is one of the supported request kinds.
func KnownKind(k RequestKind) bool {
	switch k {
	case KindOnDuty, KindGatePass, KindLeave:
		return true
	}
	return false
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
)

type UserRole string

const (
	RoleStudent        UserRole = "student"
	RoleDepartmentHead UserRole = "department_head"
)

type User struct {
	ID           string    `json:"id"`
	Roll         string    `json:"roll"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	PhotoKey     string    `json:"photoKey,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TimeWindow is the validity window of a gate pass.
type TimeWindow struct {
	ExitTime   string `json:"exitTime"`
	ReturnTime string `json:"returnTime"`
}

// Request is a student-submitted on-duty, gate-pass, or leave application.
// Window is non-nil exactly when Kind is KindGatePass. Reason is the full
// justification text and is never serialized to clients; Summary is the
// condensed form that appears on the rendered document.
type Request struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"ownerId"`
	Kind      RequestKind   `json:"kind"`
	Date      string        `json:"date"` // YYYY-MM-DD
	Window    *TimeWindow   `json:"window,omitempty"`
	Reason    string        `json:"-"`
	Summary   string        `json:"summary"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
