package filter

import (
	"strings"
	"time"

	"csc-scraper/models"
)

// Criteria selects which processed records are kept
type Criteria struct {
	OpenOnly  bool      // drop postings whose closing date is before Now
	Now       time.Time // reference day for OpenOnly; zero means today
	Regions   []string  // case-insensitive allow-list; empty keeps every region
	MinSalary int64     // 0 disables the bound
	MaxSalary int64     // 0 disables the bound
}

// Filter applies filter criteria to records
type Filter struct {
	criteria Criteria
	regions  map[string]bool
}

// NewFilter creates a new Filter instance
func NewFilter(c Criteria) *Filter {
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	regions := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		regions[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return &Filter{
		criteria: c,
		regions:  regions,
	}
}

// Active reports whether any criterion is set
func (f *Filter) Active() bool {
	return f.criteria.OpenOnly || len(f.regions) > 0 || f.criteria.MinSalary > 0 || f.criteria.MaxSalary > 0
}

// ApplyFilters filters records based on the criteria
func (f *Filter) ApplyFilters(records []models.Record) []models.Record {
	var filtered []models.Record

	for _, record := range records {
		if f.matchesFilters(record) {
			filtered = append(filtered, record)
		}
	}

	return filtered
}

// matchesFilters checks if a record matches all filter criteria
func (f *Filter) matchesFilters(record models.Record) bool {
	// Postings without a parsable closing date are kept; the board still lists them
	if f.criteria.OpenOnly && record.ClosingDate != nil {
		y, m, d := f.criteria.Now.Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, record.ClosingDate.Location())
		if record.ClosingDate.Before(today) {
			return false
		}
	}

	if len(f.regions) > 0 && !f.regions[strings.ToLower(strings.TrimSpace(record.Region))] {
		return false
	}

	// Salary bounds only apply when the salary was extracted
	if record.MonthlySalary != nil {
		salary := *record.MonthlySalary
		if f.criteria.MinSalary > 0 && salary < f.criteria.MinSalary {
			return false
		}
		if f.criteria.MaxSalary > 0 && salary > f.criteria.MaxSalary {
			return false
		}
	}

	return true
}
