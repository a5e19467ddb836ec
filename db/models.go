package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"csc-scraper/models"

	"github.com/google/uuid"
)

// ErrDuplicate is returned when a posting with the same job ID already exists
var ErrDuplicate = errors.New("duplicate job id")

// Run statuses
const (
	RunInProgress = "in_progress"
	RunDone       = "done"
	RunFailed     = "failed"
)

// Run represents one pass of the board scraper
type Run struct {
	ID        string
	Board     string
	Status    string
	Pages     int
	Listings  int
	LastError sql.NullString
}

// CreateRun records the start of a scrape and returns its ID
func (db *DB) CreateRun(ctx context.Context, board string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO scrape_runs (id, board, status, started_at)
		VALUES (?, ?, ?, ?)
	`), id, board, RunInProgress, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a scrape. A nil runErr marks it done.
func (db *DB) FinishRun(ctx context.Context, runID string, pages, listings int, runErr error) error {
	status := RunDone
	var lastError sql.NullString
	if runErr != nil {
		status = RunFailed
		lastError = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE scrape_runs
		SET status = ?, pages = ?, listings = ?, last_error = ?, finished_at = ?
		WHERE id = ?
	`), status, pages, listings, lastError, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun loads a run by ID
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, board, status, pages, listings, last_error
		FROM scrape_runs
		WHERE id = ?
	`), runID).Scan(&run.ID, &run.Board, &run.Status, &run.Pages, &run.Listings, &run.LastError)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveListings stores the listings of one board page in a single transaction
func (db *DB) SaveListings(ctx context.Context, runID string, page int, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO listings (run_id, page, agency, region, position_title, plantilla_no,
			posting_date, closing_date, action, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, listing := range listings {
		var extra sql.NullString
		if len(listing.Extra) > 0 {
			data, err := json.Marshal(listing.Extra)
			if err != nil {
				return fmt.Errorf("failed to encode extra columns: %w", err)
			}
			extra = sql.NullString{String: string(data), Valid: true}
		}

		_, err := stmt.ExecContext(ctx, runID, page, listing.Agency, listing.Region, listing.PositionTitle,
			listing.PlantillaNo, listing.PostingDate, listing.ClosingDate, listing.Action, extra)
		if err != nil {
			return fmt.Errorf("failed to insert listing %s: %w", listing.Action, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Listings returns every stored board row in insertion order
func (db *DB) Listings(ctx context.Context) ([]models.Listing, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, page, agency, region, position_title, plantilla_no,
			posting_date, closing_date, action, extra
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Listing
	for rows.Next() {
		var l models.Listing
		var agency, region, title, plantilla, posting, closing, extra sql.NullString
		if err := rows.Scan(&l.RunID, &l.Page, &agency, &region, &title, &plantilla,
			&posting, &closing, &l.Action, &extra); err != nil {
			return nil, err
		}
		l.Agency = agency.String
		l.Region = region.String
		l.PositionTitle = title.String
		l.PlantillaNo = plantilla.String
		l.PostingDate = posting.String
		l.ClosingDate = closing.String
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &l.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode extra columns of %s: %w", l.Action, err)
			}
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// ListingIDs returns the distinct job IDs on the board in first-seen order
func (db *DB) ListingIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT action FROM listings
		GROUP BY action
		ORDER BY MIN(id)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertPosting stores an extracted posting. Returns ErrDuplicate when the
// job ID is already present; the existing row is left untouched.
func (db *DB) InsertPosting(ctx context.Context, p models.Posting) error {
	var salary sql.NullInt64
	if p.MonthlySalary != nil {
		salary = sql.NullInt64{Int64: *p.MonthlySalary, Valid: true}
	}

	res, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO postings (job_id, region, place_of_assignment, position_title, plantilla_no,
			salary_grade, monthly_salary, eligibility, education, training, experience, competency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO NOTHING
	`), p.JobID, nullString(p.Region), nullString(p.PlaceOfAssignment), nullString(p.PositionTitle),
		nullString(p.PlantillaNo), nullString(p.SalaryGrade), salary, nullString(p.Eligibility),
		nullString(p.Education), nullString(p.Training), nullString(p.Experience), nullString(p.Competency))
	if err != nil {
		return fmt.Errorf("failed to insert posting %d: %w", p.JobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// Postings returns every stored posting ordered by job ID
func (db *DB) Postings(ctx context.Context) ([]models.Posting, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT job_id, region, place_of_assignment, position_title, plantilla_no,
			salary_grade, monthly_salary, eligibility, education, training, experience, competency
		FROM postings
		ORDER BY job_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Posting
	for rows.Next() {
		var p models.Posting
		var region, place, title, plantilla, grade, elig, edu, training, exp, comp sql.NullString
		var salary sql.NullInt64
		if err := rows.Scan(&p.JobID, &region, &place, &title, &plantilla, &grade, &salary,
			&elig, &edu, &training, &exp, &comp); err != nil {
			return nil, err
		}
		p.Region = region.String
		p.PlaceOfAssignment = place.String
		p.PositionTitle = title.String
		p.PlantillaNo = plantilla.String
		p.SalaryGrade = grade.String
		if salary.Valid {
			v := salary.Int64
			p.MonthlySalary = &v
		}
		p.Eligibility = elig.String
		p.Education = edu.String
		p.Training = training.String
		p.Experience = exp.String
		p.Competency = comp.String
		result = append(result, p)
	}
	return result, rows.Err()
}

// CountPostings returns the number of stored postings
func (db *DB) CountPostings(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&n)
	return n, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
