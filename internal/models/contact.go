package models

import (
	"strings"
	"time"
)

// Contact is an entry in an account's contact book. Optional fields are
// stored as empty strings, never NULL.
type Contact struct {
	ID             uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	FirstName      string    `json:"firstName" gorm:"type:varchar(100);not null"`
	MiddleName     string    `json:"middleName" gorm:"type:varchar(100);not null"`
	LastName       string    `json:"lastName" gorm:"type:varchar(100);not null"`
	Email          string    `json:"email" gorm:"type:varchar(255);not null"`
	MobileNumber   string    `json:"mobileNumber" gorm:"type:varchar(32);not null"`
	LandlineNumber string    `json:"landlineNumber" gorm:"type:varchar(32);not null"`
	Note           string    `json:"notes" gorm:"type:text;not null"`
	OwnerID        uint64    `json:"ofUser" gorm:"index;not null"`
	Owner          *Account  `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null;default:CURRENT_TIMESTAMP;autoCreateTime:false"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"not null;default:CURRENT_TIMESTAMP;autoUpdateTime:false"`
}

// TableName overrides the table name used by GORM.
func (Contact) TableName() string {
	return "contacts"
}

// ContactFields is a partial contact as submitted by a caller. Empty fields
// mean "leave unchanged" when merged onto an existing contact.
type ContactFields struct {
	FirstName      string `json:"firstName" form:"firstName"`
	MiddleName     string `json:"middleName" form:"middleName"`
	LastName       string `json:"lastName" form:"lastName"`
	Email          string `json:"email" form:"email"`
	MobileNumber   string `json:"mobileNumber" form:"mobileNumber"`
	LandlineNumber string `json:"landlineNumber" form:"landlineNumber"`
	Note           string `json:"notes" form:"notes"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (f ContactFields) Normalize() ContactFields {
	return ContactFields{
		FirstName:      strings.TrimSpace(f.FirstName),
		MiddleName:     strings.TrimSpace(f.MiddleName),
		LastName:       strings.TrimSpace(f.LastName),
		Email:          strings.TrimSpace(f.Email),
		MobileNumber:   strings.TrimSpace(f.MobileNumber),
		LandlineNumber: strings.TrimSpace(f.LandlineNumber),
		Note:           strings.TrimSpace(f.Note),
	}
}

// NewContact builds a contact owned by owner from f.
func NewContact(owner uint64, f ContactFields) *Contact {
	return &Contact{
		FirstName:      f.FirstName,
		MiddleName:     f.MiddleName,
		LastName:       f.LastName,
		Email:          f.Email,
		MobileNumber:   f.MobileNumber,
		LandlineNumber: f.LandlineNumber,
		Note:           f.Note,
		OwnerID:        owner,
	}
}

// Merge returns a copy of c with every non-empty field of f applied.
// Identity, ownership and timestamps are never touched.
func (c Contact) Merge(f ContactFields) Contact {
	overwrite := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overwrite(&c.FirstName, f.FirstName)
	overwrite(&c.MiddleName, f.MiddleName)
	overwrite(&c.LastName, f.LastName)
	overwrite(&c.Email, f.Email)
	overwrite(&c.MobileNumber, f.MobileNumber)
	overwrite(&c.LandlineNumber, f.LandlineNumber)
	overwrite(&c.Note, f.Note)
	return c
}
