package store

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"campuspass/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Roll         string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	PhotoKey     string
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// RequestModel persists one pass request. ExitTime/ReturnTime are nullable
// and set only for gate passes, so a presence check on the column is
// meaningful (never a defaulted empty string).
type RequestModel struct {
	ID         string         `gorm:"primaryKey"`
	OwnerID    string         `gorm:"not null;index"`
	Kind       string         `gorm:"not null"`
	Date       datatypes.Date `gorm:"not null"`
	ExitTime   *string
	ReturnTime *string
	Reason     string    `gorm:"not null"`
	Summary    string    `gorm:"not null"`
	Status     string    `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (RequestModel) TableName() string { return "requests" }

const dateLayout = "2006-01-02"

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Roll:         u.Roll,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		PhotoKey:     u.PhotoKey,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Roll:         m.Roll,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		PhotoKey:     m.PhotoKey,
		CreatedAt:    m.CreatedAt,
	}
}

func requestToModel(r domain.Request) (RequestModel, error) {
	day, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return RequestModel{}, fmt.Errorf("parse request date %q: %w", r.Date, err)
	}
	m := RequestModel{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Kind:      string(r.Kind),
		Date:      datatypes.Date(day),
		Reason:    r.Reason,
		Summary:   r.Summary,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Window != nil {
		exit, ret := r.Window.ExitTime, r.Window.ReturnTime
		m.ExitTime = &exit
		m.ReturnTime = &ret
	}
	return m, nil
}

func requestFromModel(m RequestModel) domain.Request {
	r := domain.Request{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Kind:      domain.RequestKind(m.Kind),
		Date:      time.Time(m.Date).Format(dateLayout),
		Reason:    m.Reason,
		Summary:   m.Summary,
		Status:    domain.RequestStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ExitTime != nil && m.ReturnTime != nil {
		r.Window = &domain.TimeWindow{ExitTime: *m.ExitTime, ReturnTime: *m.ReturnTime}
	}
	return r
}
