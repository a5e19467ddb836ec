package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"csc-scraper/models"
)

var listingHeader = []string{
	"Agency", "Region", "Position Title", "Plantilla Item No.",
	"Posting Date", "Closing Date", "Action", "Page",
}

var recordHeader = []string{
	"jobId", "Agency", "Region", "Place of Assignment", "Posting Date", "Closing Date",
	"Position Title", "Salary/Job/Pay Grade", "Monthly Salary", "Eligibility",
	"Education", "Training", "Experience", "Competency", "Plantilla Item No.",
}

// AppendListingsCSV appends board rows to path. The header is only written
// when the file is new or empty.
func AppendListingsCSV(path string, listings []models.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(listingHeader); err != nil {
			return err
		}
	}
	for _, l := range listings {
		row := []string{
			l.Agency, l.Region, l.PositionTitle, l.PlantillaNo,
			l.PostingDate, l.ClosingDate, l.Action, strconv.Itoa(l.Page),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write listing %s: %w", l.Action, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRecordsCSV writes the processed dataset to path, replacing any existing file
func WriteRecordsCSV(path string, records []models.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(RecordValues(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.JobID, err)
		}
	}
	w.Flush()
	return w.Error()
}

// RecordHeader returns the column names used for tabular record output
func RecordHeader() []string {
	return append([]string(nil), recordHeader...)
}

// RecordValues renders a record as strings in RecordHeader order.
// Missing dates and salaries become empty cells.
func RecordValues(r models.Record) []string {
	salary := ""
	if r.MonthlySalary != nil {
		salary = strconv.FormatInt(*r.MonthlySalary, 10)
	}
	return []string{
		strconv.FormatInt(r.JobID, 10),
		r.Agency,
		r.Region,
		r.PlaceOfAssignment,
		derefDate(formatDate(r.PostingDate)),
		derefDate(formatDate(r.ClosingDate)),
		r.PositionTitle,
		r.SalaryGrade,
		salary,
		r.Eligibility,
		r.Education,
		r.Training,
		r.Experience,
		r.Competency,
		r.PlantillaNo,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(isoDate)
	return &s
}

func derefDate(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
