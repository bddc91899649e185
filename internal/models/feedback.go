package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// House is the fixed grouping label attached to feedback records.
type House string

const (
	HouseBhairav    House = "Bhairav"
	HouseBhageshree House = "Bhageshree"
	HouseMegh       House = "Megh"
)

// Houses returns the closed set of houses in display order.
func Houses() []House {
	return []House{HouseBhairav, HouseBhageshree, HouseMegh}
}

func (h House) Valid() bool {
	switch h {
	case HouseBhairav, HouseBhageshree, HouseMegh:
		return true
	}
	return false
}

// FeedbackRecord is the canonical stored form of a student reflection.
// ID and Timestamp are assigned by the storage service and never change.
type FeedbackRecord struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	House       House     `json:"house,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r FeedbackRecord) RecordID() string {
	return r.ID
}

// DisplayName falls back to "Anonymous" for records submitted without a name.
func (r FeedbackRecord) DisplayName() string {
	if r.StudentName == "" {
		return "Anonymous"
	}
	return r.StudentName
}

// FeedbackDraft holds the editable fields of a feedback record before they
// are persisted. Drafts carry no id or timestamp.
type FeedbackDraft struct {
	StudentName string `json:"studentName" validate:"required"`
	House       House  `json:"house,omitempty"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment"`
}

// Validate enforces the constraints every entry point shares: a student name,
// a rating in 1..5 and, when a house is given, membership in the closed set.
// Individual forms may require more (the home form also demands house and
// comment); those checks live at the form boundary.
func (d FeedbackDraft) Validate() error {
	if err := validate.Struct(d); err != nil {
		if d.StudentName == "" {
			return fmt.Errorf("student name is required")
		}
		return fmt.Errorf("rating must be between 1 and 5")
	}
	if d.House != "" && !d.House.Valid() {
		return fmt.Errorf("unknown house %q", d.House)
	}
	return nil
}
