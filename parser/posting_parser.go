package parser

import (
	"math"
	"strconv"
	"strings"

	"csc-scraper/models"
)

// Labels printed on the posting template
const (
	KeyPlaceOfAssignment = "Place of Assignment"
	KeyPositionTitle     = "Position Title"
	KeyPlantillaNo       = "Plantilla Item No."
	KeySalaryGrade       = "Salary/Job/Pay Grade"
	KeyMonthlySalary     = "Monthly Salary"
	KeyEligibility       = "Eligibility"
	KeyEducation         = "Education"
	KeyTraining          = "Training"
	KeyExperience        = "Experience"
	KeyCompetency        = "Competency"
)

const currencyMarker = "Php"

// PostingParser extracts posting fields from the text lines of a job PDF
type PostingParser struct{}

// NewPostingParser creates a new PostingParser instance
func NewPostingParser() *PostingParser {
	return &PostingParser{}
}

// Parse builds a Posting from the lines of one PDF. Fields that can't be
// located come back empty; Parse never fails.
func (pp *PostingParser) Parse(jobID int64, lines []string) models.Posting {
	return models.Posting{
		JobID:             jobID,
		Region:            ExtractRegion(lines),
		PlaceOfAssignment: ExtractField(lines, KeyPlaceOfAssignment),
		PositionTitle:     ExtractField(lines, KeyPositionTitle),
		PlantillaNo:       ExtractField(lines, KeyPlantillaNo),
		SalaryGrade:       ExtractField(lines, KeySalaryGrade),
		MonthlySalary:     ParseMonthlySalary(ExtractField(lines, KeyMonthlySalary)),
		Eligibility:       ExtractField(lines, KeyEligibility),
		Education:         ExtractField(lines, KeyEducation),
		Training:          ExtractField(lines, KeyTraining),
		Experience:        ExtractField(lines, KeyExperience),
		Competency:        ExtractField(lines, KeyCompetency),
	}
}

// ExtractField returns the value that follows key on the first line containing it.
// The value stops at a second occurrence of key, and every ':' is dropped.
func ExtractField(lines []string, key string) string {
	if key == "" {
		return ""
	}
	for _, line := range lines {
		if !strings.Contains(line, key) {
			continue
		}
		value := strings.Split(line, key)[1]
		value = strings.TrimSpace(value)
		value = strings.ReplaceAll(value, ":", "")
		return strings.TrimSpace(value)
	}
	return ""
}

// ExtractRegion reads the region from the header line, which looks like
// "Region IV-A | Department of Education".
func ExtractRegion(lines []string) string {
	if len(lines) < 2 {
		return ""
	}
	region, _, _ := strings.Cut(lines[1], "|")
	return strings.TrimSpace(region)
}

// ExtractPHP returns the amount written after "Php" with thousands separators removed
func ExtractPHP(text string) string {
	parts := strings.Split(text, currencyMarker)
	if len(parts) < 2 {
		return ""
	}
	// a second marker ends the amount, as in "Php 1,000 - Php 2,000"
	amount := strings.ReplaceAll(parts[1], ",", "")
	return strings.TrimSpace(amount)
}

// ParseMonthlySalary turns "Php 35,434.00" into 35434. Returns nil when no
// amount can be read.
func ParseMonthlySalary(text string) *int64 {
	amount := leadingNumber(ExtractPHP(text))
	if amount == "" {
		return nil
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil
	}
	pesos := int64(math.Round(value))
	return &pesos
}

// leadingNumber keeps the digits and decimal point at the start of s,
// so "35434.00 per month" yields "35434.00"
func leadingNumber(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return strings.TrimSuffix(s[:i], ".")
		}
		end = i + 1
	}
	return strings.TrimSuffix(s[:end], ".")
}
