package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePosting = []string{
	"CIVIL SERVICE COMMISSION",
	"Region IV-A | DepEd Schools Division of Laguna",
	"Place of Assignment : Santa Cruz Integrated National High School",
	"Position Title : Administrative Officer II",
	"Plantilla Item No. : OSEC-DECSB-ADOF2-270211-2019",
	"Salary/Job/Pay Grade : 11",
	"Monthly Salary : Php 31,705.00",
	"Eligibility : Career Service (Professional) Second Level Eligibility",
	"Education : Bachelor's degree relevant to the job",
	"Training : None required",
	"Experience : None required",
	"Competency : Not specified",
	"Instructions/Remarks : Submit the following documents",
}

func TestExtractField(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		key      string
		expected string
	}{
		{"simple", []string{"Education : BS Accountancy"}, "Education", "BS Accountancy"},
		{"no space before colon", []string{"Education: BS Accountancy"}, "Education", "BS Accountancy"},
		{"colons inside value removed", []string{"Training : 8 hours: leadership"}, "Training", "8 hours leadership"},
		{"first match wins", []string{"Training : first", "Training : second"}, "Training", "first"},
		{"key mid line", []string{"CSC | Position Title : Engineer I"}, "Position Title", "Engineer I"},
		{"value stops at second occurrence", []string{"Experience : 1 year Experience : 2 years"}, "Experience", "1 year"},
		{"key at end of line", []string{"Competency"}, "Competency", ""},
		{"case sensitive", []string{"education : BS"}, "Education", ""},
		{"missing", []string{"Region I | Agency"}, "Eligibility", ""},
		{"no lines", nil, "Eligibility", ""},
		{"empty key", []string{"anything"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractField(tt.lines, tt.key)
			if got != tt.expected {
				t.Errorf("ExtractField() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractRegion(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{"header line", []string{"CSC", " NCR | Department of Health "}, "NCR"},
		{"no delimiter", []string{"CSC", "Region VII"}, "Region VII"},
		{"only first line", []string{"CSC"}, ""},
		{"empty", nil, ""},
		{"uses second line only", []string{"Region I | A", "Region II | B"}, "Region II"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRegion(tt.lines))
		})
	}
}

func TestExtractPHP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Php 31,705.00", "31705.00"},
		{"Php1,000,000", "1000000"},
		{"31,705.00", ""},
		{"", ""},
		{"Php", ""},
		{"Php 1,000 - Php 2,000", "1000 -"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPHP(tt.input))
		})
	}
}

func TestParseMonthlySalary(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int64
	}{
		{"decimal", "Php 31,705.00", ptr(31705)},
		{"rounds", "Php 31,705.50", ptr(31706)},
		{"integer", "Php 27,000", ptr(27000)},
		{"trailing text", "Php 35,434.00 per month", ptr(35434)},
		{"trailing dot", "Php 20000.", ptr(20000)},
		{"range keeps the lower bound", "Php 1,000 - Php 2,000", ptr(1000)},
		{"no currency", "31,705.00", nil},
		{"no amount", "Php to be announced", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMonthlySalary(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestPostingParserParse(t *testing.T) {
	posting := NewPostingParser().Parse(4521987, samplePosting)

	assert.Equal(t, int64(4521987), posting.JobID)
	assert.Equal(t, "Region IV-A", posting.Region)
	assert.Equal(t, "Santa Cruz Integrated National High School", posting.PlaceOfAssignment)
	assert.Equal(t, "Administrative Officer II", posting.PositionTitle)
	assert.Equal(t, "OSEC-DECSB-ADOF2-270211-2019", posting.PlantillaNo)
	assert.Equal(t, "11", posting.SalaryGrade)
	require.NotNil(t, posting.MonthlySalary)
	assert.Equal(t, int64(31705), *posting.MonthlySalary)
	// the value stops where the label repeats
	assert.Equal(t, "Career Service (Professional) Second Level", posting.Eligibility)
	assert.Equal(t, "Bachelor's degree relevant to the job", posting.Education)
	assert.Equal(t, "None required", posting.Training)
	assert.Equal(t, "None required", posting.Experience)
	assert.Equal(t, "Not specified", posting.Competency)
}

func TestPostingParserParseDegradedInput(t *testing.T) {
	posting := NewPostingParser().Parse(7, []string{"only one line"})

	assert.Equal(t, int64(7), posting.JobID)
	assert.Empty(t, posting.Region)
	assert.Empty(t, posting.PositionTitle)
	assert.Nil(t, posting.MonthlySalary)
}

func ptr(v int64) *int64 {
	return &v
}
