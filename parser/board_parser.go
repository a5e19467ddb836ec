package parser

import (
	"fmt"
	"regexp"
	"strings"

	"csc-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

var infoButtonID = regexp.MustCompile(`^info_\d+$`)

// BoardParser extracts listings from a rendered career board page
type BoardParser struct{}

// NewBoardParser creates a new BoardParser instance
func NewBoardParser() *BoardParser {
	return &BoardParser{}
}

// ParsePage reads the first table on the page and pairs each row with the job
// ID of its info_<id> button. Buttons are matched to rows by document order.
func (bp *BoardParser) ParsePage(htmlContent string) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found on page")
	}

	headers := bp.extractHeaders(table)
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	var rows [][]string
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		// DataTables renders a single placeholder cell when the table is empty
		if tr.Find("td.dataTables_empty").Length() > 0 {
			return
		}
		var cells []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			cells = append(cells, normalizeWhitespace(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})

	jobIDs := bp.extractJobIDs(doc)
	if len(jobIDs) != len(rows) {
		return nil, fmt.Errorf("found %d rows but %d info buttons", len(rows), len(jobIDs))
	}

	listings := make([]models.Listing, 0, len(rows))
	for i, cells := range rows {
		listing := models.Listing{Action: jobIDs[i]}
		for j, header := range headers {
			value := ""
			if j < len(cells) {
				value = cells[j]
			}
			bp.assign(&listing, header, value)
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

// extractHeaders returns the column names of the table
func (bp *BoardParser) extractHeaders(table *goquery.Selection) []string {
	var headers []string
	headerRow := table.Find("thead tr").Last()
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").First()
	}
	headerRow.Find("th, td").Each(func(i int, cell *goquery.Selection) {
		headers = append(headers, normalizeWhitespace(cell.Text()))
	})
	return headers
}

// extractJobIDs collects the numeric suffix of every info_<id> button
func (bp *BoardParser) extractJobIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("button").Each(func(i int, button *goquery.Selection) {
		id, ok := button.Attr("id")
		if ok && infoButtonID.MatchString(id) {
			ids = append(ids, strings.TrimPrefix(id, "info_"))
		}
	})
	return ids
}

// assign stores a cell value in the listing field matching its column header
func (bp *BoardParser) assign(listing *models.Listing, header, value string) {
	switch normalizeHeader(header) {
	case "agency":
		listing.Agency = value
	case "region":
		listing.Region = value
	case "positiontitle", "position":
		listing.PositionTitle = value
	case "plantillaitemno", "plantillano", "itemno":
		listing.PlantillaNo = value
	case "postingdate":
		listing.PostingDate = value
	case "closingdate", "deadline":
		listing.ClosingDate = value
	case "action", "":
		// The action column only holds the buttons
	default:
		if listing.Extra == nil {
			listing.Extra = make(map[string]string)
		}
		listing.Extra[header] = value
	}
}

// normalizeHeader lowercases a header and drops everything but letters and digits
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
