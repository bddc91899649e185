package models

import (
	"fmt"
	"time"
)

// ImprovementRecord is a reported problem with a proposed solution.
type ImprovementRecord struct {
	ID          string    `json:"id"`
	Problem     string    `json:"problem"`
	Solution    string    `json:"solution"`
	SubmittedBy string    `json:"submittedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r ImprovementRecord) RecordID() string {
	return r.ID
}

// ImprovementDraft holds the editable fields of an improvement report.
// All three fields are required.
type ImprovementDraft struct {
	Problem     string `json:"problem" validate:"required"`
	Solution    string `json:"solution" validate:"required"`
	SubmittedBy string `json:"submittedBy" validate:"required"`
}

func (d ImprovementDraft) Validate() error {
	if err := validate.Struct(d); err != nil {
		switch {
		case d.SubmittedBy == "":
			return fmt.Errorf("submitted by is required")
		case d.Problem == "":
			return fmt.Errorf("problem description is required")
		default:
			return fmt.Errorf("proposed solution is required")
		}
	}
	return nil
}
