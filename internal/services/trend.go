package services

import (
	"math"
	"sort"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// TrendPoint is the per-date mean of every rating.
type TrendPoint struct {
	Date    string `json:"date"`
	Entries int    `json:"entries"`
	domain.Ratings
	// Custom maps dimension ID to the mean of that dimension's values.
	Custom map[string]int `json:"custom_dimensions"`
}

type dayAcc struct {
	n                              int
	horny, feeling, sleep, emotion int
	custom                         map[string][2]int // sum, count
}

// BuildTrend groups entries by date and averages each metric, rounding half
// away from zero. Only the maxDays most recent dates are kept, returned in
// chronological order. The input order does not matter.
func BuildTrend(entries []domain.DailyEntry, maxDays int) []TrendPoint {
	days := make(map[string]*dayAcc)
	for _, e := range entries {
		a, ok := days[e.EntryDate]
		if !ok {
			a = &dayAcc{custom: map[string][2]int{}}
			days[e.EntryDate] = a
		}
		a.n++
		a.horny += e.HorninessLevel
		a.feeling += e.GeneralFeeling
		a.sleep += e.SleepQuality
		a.emotion += e.EmotionalState
		for _, cv := range e.CustomValues {
			acc := a.custom[cv.DimensionID]
			acc[0] += cv.Value
			acc[1]++
			a.custom[cv.DimensionID] = acc
		}
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	// YYYY-MM-DD sorts lexically.
	sort.Strings(dates)
	if maxDays > 0 && len(dates) > maxDays {
		dates = dates[len(dates)-maxDays:]
	}

	out := make([]TrendPoint, 0, len(dates))
	for _, d := range dates {
		a := days[d]
		p := TrendPoint{
			Date:    d,
			Entries: a.n,
			Ratings: domain.Ratings{
				HorninessLevel: mean(a.horny, a.n),
				GeneralFeeling: mean(a.feeling, a.n),
				SleepQuality:   mean(a.sleep, a.n),
				EmotionalState: mean(a.emotion, a.n),
			},
			Custom: make(map[string]int, len(a.custom)),
		}
		for id, acc := range a.custom {
			p.Custom[id] = mean(acc[0], acc[1])
		}
		out = append(out, p)
	}
	return out
}

func mean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
