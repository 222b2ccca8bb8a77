package directory

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entry is one row of a team directory.
type Entry struct {
	School       string
	Mascot       string
	Abbreviation string
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseTeams reads every table whose header names a school column and an
// abbreviation column. Rows missing either value are dropped.
func ParseTeams(doc *goquery.Document) []Entry {
	var entries []Entry

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		cols := headerColumns(table)
		school, ok := cols["school"]
		if !ok {
			return
		}
		abbr, ok := cols["abbreviation"]
		if !ok {
			return
		}
		mascot, hasMascot := cols["mascot"]

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			e := Entry{
				School:       cellText(cells, school),
				Abbreviation: strings.ToUpper(cellText(cells, abbr)),
			}
			if hasMascot {
				e.Mascot = cellText(cells, mascot)
			}
			if e.School == "" || e.Abbreviation == "" {
				return
			}
			entries = append(entries, e)
		})
	})

	return entries
}

// headerColumns maps a normalized column role to its index.
func headerColumns(table *goquery.Selection) map[string]int {
	cols := make(map[string]int)
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch strings.ToLower(strings.TrimSpace(th.Text())) {
		case "school", "team", "institution":
			cols["school"] = i
		case "nickname", "mascot":
			cols["mascot"] = i
		case "abbreviation", "abbr", "abbr.":
			cols["abbreviation"] = i
		}
	})
	return cols
}

func cellText(cells *goquery.Selection, idx int) string {
	return strings.Join(strings.Fields(cells.Eq(idx).Text()), " ")
}
