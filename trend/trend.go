// Package trend computes price trends over observation history.
//
// Two independent signals are produced: an ordinary least-squares slope of
// price over elapsed days (the trend score used by the analysis report)
// and a two-point endpoint delta (the cruder signal behind the dashboard
// drops list). They serve different consumers and are never merged.
package trend

import (
	"math"
	"time"

	"github.com/aluiziolira/go-book-gems/models"
)

const secondsPerDay = 86400

// Observation is one price sample positioned on the analysis time axis.
// DayOffset is elapsed fractional days since the origin of the analyzed
// set; callers supply observations in chronological order.
type Observation struct {
	DayOffset float64
	Price     float64
}

// Result is a fitted trend for one book. Slope is in price units per day,
// rounded to two decimals for display stability; a negative slope means
// the price is falling. CurrentPrice is the most recent observed price,
// not the fitted value, so the two can legitimately differ.
type Result struct {
	Slope        float64
	CurrentPrice float64
}

// Estimate fits price against day offset. It reports ok=false when fewer
// than two observations exist: not enough history is a valid outcome, not
// an error. When every observation shares the same day offset the slope
// is defined as 0.
func Estimate(obs []Observation) (Result, bool) {
	if len(obs) < 2 {
		return Result{}, false
	}

	n := float64(len(obs))
	var sumX, sumY float64
	for _, o := range obs {
		sumX += o.DayOffset
		sumY += o.Price
	}
	meanX := sumX / n
	meanY := sumY / n

	var covXY, varX float64
	for _, o := range obs {
		dx := o.DayOffset - meanX
		covXY += dx * (o.Price - meanY)
		varX += dx * dx
	}

	slope := 0.0
	if varX > 0 {
		slope = covXY / varX
	}

	return Result{
		Slope:        round2(slope),
		CurrentPrice: obs[len(obs)-1].Price,
	}, true
}

// Delta is the two-point signal: last observed price minus first, in
// chronological order. ok=false under two observations.
func Delta(obs []Observation) (float64, bool) {
	if len(obs) < 2 {
		return 0, false
	}
	return obs[len(obs)-1].Price - obs[0].Price, true
}

// Series converts joined history rows into per-book observation series.
// Day offsets share a common origin, the earliest capture time across the
// whole analyzed set, so offsets are comparable across books. Books appear
// in first-seen order; within a book, rows keep their chronological order.
func Series(rows []models.PriceRow) []BookSeries {
	if len(rows) == 0 {
		return nil
	}

	origin := rows[0].ScrapedAt
	for _, r := range rows {
		if r.ScrapedAt.Before(origin) {
			origin = r.ScrapedAt
		}
	}

	index := make(map[int64]int)
	var series []BookSeries
	for _, r := range rows {
		i, ok := index[r.BookID]
		if !ok {
			i = len(series)
			index[r.BookID] = i
			series = append(series, BookSeries{
				BookID: r.BookID,
				Title:  r.Title,
				Rating: r.Rating,
			})
		}
		series[i].Observations = append(series[i].Observations, Observation{
			DayOffset: dayOffset(origin, r.ScrapedAt),
			Price:     r.Price,
		})
	}
	return series
}

// BookSeries is the observation history of a single book.
type BookSeries struct {
	BookID       int64
	Title        string
	Rating       string
	Observations []Observation
}

func dayOffset(origin, at time.Time) float64 {
	return at.Sub(origin).Seconds() / secondsPerDay
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
