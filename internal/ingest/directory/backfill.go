package directory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fortuna/halfline/internal/store"
)

// Fetcher returns the HTML of a directory page.
type Fetcher interface {
	FetchDirectory(ctx context.Context, url string) (string, error)
}

// TeamStore lists teams and fills in missing abbreviations.
type TeamStore interface {
	GetAll(ctx context.Context) ([]*store.Team, error)
	UpdateAbbreviation(ctx context.Context, teamID int64, abbr string) (bool, error)
}

// Result summarizes one backfill pass.
type Result struct {
	Entries int `json:"entries"`
	Missing int `json:"missing"`
	Updated int `json:"updated"`
}

// Backfiller fills team abbreviations the feed never supplied
type Backfiller struct {
	fetcher Fetcher
	teams   TeamStore
	url     string
}

// NewBackfiller creates a backfiller reading the directory at url
func NewBackfiller(fetcher Fetcher, teams TeamStore, url string) *Backfiller {
	return &Backfiller{fetcher: fetcher, teams: teams, url: url}
}

// Run scrapes the directory and sets the abbreviation of every team that
// has none and matches a directory row. A team is matched on school and
// mascot first, then on school alone when that name is unambiguous.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	if b.url == "" {
		return nil, fmt.Errorf("directory url is not configured")
	}

	html, err := b.fetcher.FetchDirectory(ctx, b.url)
	if err != nil {
		return nil, fmt.Errorf("fetching directory: %w", err)
	}
	doc, err := ParseHTML(html)
	if err != nil {
		return nil, err
	}
	entries := ParseTeams(doc)

	bySchoolMascot := make(map[string]string, len(entries))
	bySchool := make(map[string]string, len(entries))
	ambiguous := make(map[string]bool)
	for _, e := range entries {
		bySchoolMascot[key(e.School, e.Mascot)] = e.Abbreviation
		s := normalize(e.School)
		if prev, ok := bySchool[s]; ok && prev != e.Abbreviation {
			ambiguous[s] = true
		}
		bySchool[s] = e.Abbreviation
	}

	teams, err := b.teams.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Entries: len(entries)}
	for _, t := range teams {
		if t.Abbreviation.Valid && t.Abbreviation.String != "" {
			continue
		}
		res.Missing++

		abbr, ok := bySchoolMascot[key(t.Name, t.Mascot)]
		if !ok {
			s := normalize(t.Name)
			if ambiguous[s] {
				continue
			}
			if abbr, ok = bySchool[s]; !ok {
				continue
			}
		}

		changed, err := b.teams.UpdateAbbreviation(ctx, t.TeamID, abbr)
		if err != nil {
			log.Printf("[directory] Failed to update %s: %v", t.DisplayName(), err)
			continue
		}
		if changed {
			res.Updated++
		}
	}

	log.Printf("[directory] ✓ %d directory rows, %d teams missing an abbreviation, %d updated", res.Entries, res.Missing, res.Updated)
	return res, nil
}

func key(school, mascot string) string {
	return normalize(school) + "|" + normalize(mascot)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", "'", "", "&", "and").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
