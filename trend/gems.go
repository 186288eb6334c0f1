package trend

import (
	"sort"

	"github.com/aluiziolira/go-book-gems/models"
)

// Candidate pairs a book with a trend score. Score is either a regression
// slope or a two-point delta depending on which consumer built it.
type Candidate struct {
	BookID       int64   `json:"book_id"`
	Title        string  `json:"title"`
	Rating       string  `json:"rating"`
	CurrentPrice float64 `json:"current_price"`
	Score        float64 `json:"score"`
}

// Report is the outcome of one analysis pass. An empty Gems slice with
// Insufficient > 0 means there is not enough history yet; an empty Gems
// slice with Analyzed > 0 means no book has a falling price.
type Report struct {
	Candidates   []Candidate `json:"candidates"`
	Gems         []Candidate `json:"gems"`
	Analyzed     int         `json:"analyzed"`
	Insufficient int         `json:"insufficient"`
}

// FilterFalling keeps candidates with a strictly negative score, ordered
// ascending so the steepest decline ranks first.
func FilterFalling(candidates []Candidate) []Candidate {
	var gems []Candidate
	for _, c := range candidates {
		if c.Score < 0 {
			gems = append(gems, c)
		}
	}
	sort.SliceStable(gems, func(i, j int) bool {
		return gems[i].Score < gems[j].Score
	})
	return gems
}

// Analyze runs the regression estimator over every book in the history
// and ranks the falling-price gems.
func Analyze(rows []models.PriceRow) Report {
	var report Report
	for _, bs := range Series(rows) {
		result, ok := Estimate(bs.Observations)
		if !ok {
			report.Insufficient++
			continue
		}
		report.Analyzed++
		report.Candidates = append(report.Candidates, Candidate{
			BookID:       bs.BookID,
			Title:        bs.Title,
			Rating:       bs.Rating,
			CurrentPrice: result.CurrentPrice,
			Score:        result.Slope,
		})
	}
	report.Gems = FilterFalling(report.Candidates)
	return report
}

// Drops runs the two-point delta estimator over every book and returns the
// books whose endpoint price dropped, steepest drop first. This is the
// dashboard's sidebar signal and is intentionally independent of Analyze.
func Drops(rows []models.PriceRow) []Candidate {
	var candidates []Candidate
	for _, bs := range Series(rows) {
		delta, ok := Delta(bs.Observations)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			BookID:       bs.BookID,
			Title:        bs.Title,
			Rating:       bs.Rating,
			CurrentPrice: bs.Observations[len(bs.Observations)-1].Price,
			Score:        delta,
		})
	}
	return FilterFalling(candidates)
}
