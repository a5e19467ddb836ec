package export

import (
	"fmt"
	"os"
	"path/filepath"

	"csc-scraper/models"

	"github.com/parquet-go/parquet-go"
)

// isoDate is the on-disk format of posting and closing dates
const isoDate = "2006-01-02"

// recordRow is the parquet schema of a processed record
type recordRow struct {
	JobID             int64   `parquet:"job_id"`
	Agency            string  `parquet:"agency"`
	Region            string  `parquet:"region"`
	PlaceOfAssignment string  `parquet:"place_of_assignment"`
	PostingDate       *string `parquet:"posting_date,optional"`
	ClosingDate       *string `parquet:"closing_date,optional"`
	PositionTitle     string  `parquet:"position_title"`
	SalaryGrade       string  `parquet:"salary_grade"`
	MonthlySalary     *int64  `parquet:"monthly_salary,optional"`
	Eligibility       string  `parquet:"eligibility"`
	Education         string  `parquet:"education"`
	Training          string  `parquet:"training"`
	Experience        string  `parquet:"experience"`
	Competency        string  `parquet:"competency"`
	PlantillaNo       string  `parquet:"plantilla_no"`
}

func toRow(r models.Record) recordRow {
	return recordRow{
		JobID:             r.JobID,
		Agency:            r.Agency,
		Region:            r.Region,
		PlaceOfAssignment: r.PlaceOfAssignment,
		PostingDate:       formatDate(r.PostingDate),
		ClosingDate:       formatDate(r.ClosingDate),
		PositionTitle:     r.PositionTitle,
		SalaryGrade:       r.SalaryGrade,
		MonthlySalary:     r.MonthlySalary,
		Eligibility:       r.Eligibility,
		Education:         r.Education,
		Training:          r.Training,
		Experience:        r.Experience,
		Competency:        r.Competency,
		PlantillaNo:       r.PlantillaNo,
	}
}

// WriteParquet writes records to path, replacing any existing file
func WriteParquet(path string, records []models.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rows := make([]recordRow, len(records))
	for i, r := range records {
		rows[i] = toRow(r)
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}
