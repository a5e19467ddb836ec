package transform

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"csc-scraper/models"
)

// DateLayout is how the board prints posting and closing dates
const DateLayout = "02 Jan 2006"

// Stats describes what the join dropped or could not parse
type Stats struct {
	Listings          int // board rows read
	DuplicateListings int
	InvalidJobIDs     int // listings whose action isn't a number
	Postings          int
	Unmatched         int // listings without an extracted posting
	BadDates          int
	Records           int
}

// Join pairs each board listing with the posting extracted from its PDF.
// Listings are deduped by job ID keeping the first row seen; the output is
// sorted by job ID.
func Join(listings []models.Listing, postings []models.Posting) ([]models.Record, Stats) {
	stats := Stats{Listings: len(listings), Postings: len(postings)}

	byID := make(map[int64]models.Posting, len(postings))
	for _, p := range postings {
		if _, ok := byID[p.JobID]; !ok {
			byID[p.JobID] = p
		}
	}

	seen := make(map[int64]bool, len(listings))
	records := make([]models.Record, 0, len(postings))
	for _, l := range listings {
		id, err := strconv.ParseInt(strings.TrimSpace(l.Action), 10, 64)
		if err != nil {
			slog.Debug("dropping listing with non-numeric job id", "action", l.Action)
			stats.InvalidJobIDs++
			continue
		}
		if seen[id] {
			stats.DuplicateListings++
			continue
		}
		seen[id] = true

		p, ok := byID[id]
		if !ok {
			stats.Unmatched++
			continue
		}

		postingDate, ok := ParseDate(l.PostingDate)
		if !ok {
			stats.BadDates++
		}
		closingDate, ok := ParseDate(l.ClosingDate)
		if !ok {
			stats.BadDates++
		}

		records = append(records, models.Record{
			JobID:             id,
			Agency:            l.Agency,
			Region:            l.Region,
			PlaceOfAssignment: p.PlaceOfAssignment,
			PostingDate:       postingDate,
			ClosingDate:       closingDate,
			PositionTitle:     l.PositionTitle,
			SalaryGrade:       p.SalaryGrade,
			MonthlySalary:     p.MonthlySalary,
			Eligibility:       p.Eligibility,
			Education:         p.Education,
			Training:          p.Training,
			Experience:        p.Experience,
			Competency:        p.Competency,
			PlantillaNo:       l.PlantillaNo,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].JobID < records[j].JobID
	})
	stats.Records = len(records)
	return records, stats
}

// ParseDate parses a board date such as "20 Apr 2025". An empty value is
// reported as ok with a nil time; anything else that fails to parse is not ok.
func ParseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		// single-digit days are printed without padding on some rows
		t, err = time.Parse("2 Jan 2006", s)
		if err != nil {
			return nil, false
		}
	}
	return &t, true
}
