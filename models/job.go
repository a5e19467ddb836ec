package models

import "time"

// Listing represents one row of the career board table
type Listing struct {
	Agency        string
	Region        string
	PositionTitle string
	PlantillaNo   string
	PostingDate   string // As shown on the board, e.g. "20 Apr 2025"
	ClosingDate   string
	Action        string // Job ID taken from the row's info_<id> button
	Page          int    // Board page number where this listing was found
	RunID         string

	// Board columns that don't map to a field above
	Extra map[string]string
}

// Posting represents the fields extracted from a job's PDF posting.
// An empty string means the field was not found in the PDF.
type Posting struct {
	JobID             int64
	Region            string
	PlaceOfAssignment string
	PositionTitle     string
	PlantillaNo       string
	SalaryGrade       string
	MonthlySalary     *int64
	Eligibility       string
	Education         string
	Training          string
	Experience        string
	Competency        string
}

// Record is a processed row: a board listing joined with its PDF posting
type Record struct {
	JobID             int64
	Agency            string
	Region            string
	PlaceOfAssignment string
	PostingDate       *time.Time
	ClosingDate       *time.Time
	PositionTitle     string
	SalaryGrade       string
	MonthlySalary     *int64
	Eligibility       string
	Education         string
	Training          string
	Experience        string
	Competency        string
	PlantillaNo       string
}
