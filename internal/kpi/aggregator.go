// Package kpi computes summary statistics over one batch's canonical deal
// records. Compute is a pure function; it never touches storage.
package kpi

import (
	"math"
	"sort"
	"strings"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

// unknownBucket collects records whose grouping field is null or empty.
const unknownBucket = "Unknown"

// Report summarizes one batch.
type Report struct {
	TotalDeals     int          `json:"total_deals"`
	TotalValue     float64      `json:"total_value"`
	AvgProbability *float64     `json:"avg_probability"`
	ValueByStage   []StageValue `json:"value_by_stage"`
	DealsByOwner   []OwnerCount `json:"deals_by_owner"`
	ValueByMonth   []MonthValue `json:"value_by_month"`
}

type StageValue struct {
	Stage string  `json:"stage"`
	Value float64 `json:"value"`
}

type OwnerCount struct {
	Owner string `json:"owner"`
	Count int    `json:"count"`
}

type MonthValue struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Compute aggregates the records of one batch. Null deal values are ignored
// in sums (not zero-filled); null stages/owners/dates fall into "Unknown".
func Compute(recs []schema.DealRecord) Report {
	rep := Report{
		TotalDeals:   len(recs),
		ValueByStage: []StageValue{},
		DealsByOwner: []OwnerCount{},
		ValueByMonth: []MonthValue{},
	}

	var total, probSum float64
	probN := 0
	stageMap := make(map[string]float64)
	ownerMap := make(map[string]int)
	monthMap := make(map[string]float64)

	for _, r := range recs {
		v := 0.0
		if r.DealValue != nil {
			v = *r.DealValue
			total += v
		}
		if r.ClosingProbability != nil {
			probSum += *r.ClosingProbability
			probN++
		}
		stageMap[bucket(r.Stage)] += v
		ownerMap[bucket(r.Owner)]++
		monthMap[monthOf(r.ExpectedCloseDate)] += v
	}

	rep.TotalValue = round2(total)
	if probN > 0 {
		avg := round2(probSum / float64(probN))
		rep.AvgProbability = &avg
	}

	for stage, v := range stageMap {
		rep.ValueByStage = append(rep.ValueByStage, StageValue{Stage: stage, Value: round2(v)})
	}
	sort.Slice(rep.ValueByStage, func(i, j int) bool {
		a, b := rep.ValueByStage[i], rep.ValueByStage[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Stage < b.Stage
	})

	for owner, n := range ownerMap {
		rep.DealsByOwner = append(rep.DealsByOwner, OwnerCount{Owner: owner, Count: n})
	}
	sort.Slice(rep.DealsByOwner, func(i, j int) bool {
		a, b := rep.DealsByOwner[i], rep.DealsByOwner[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Owner < b.Owner
	})

	for month, v := range monthMap {
		rep.ValueByMonth = append(rep.ValueByMonth, MonthValue{Month: month, Value: round2(v)})
	}
	// ascending by month label, Unknown always last
	sort.Slice(rep.ValueByMonth, func(i, j int) bool {
		a, b := rep.ValueByMonth[i], rep.ValueByMonth[j]
		if (a.Month == unknownBucket) != (b.Month == unknownBucket) {
			return b.Month == unknownBucket
		}
		return a.Month < b.Month
	})

	return rep
}

func bucket(s *string) string {
	if s == nil || *s == "" {
		return unknownBucket
	}
	return *s
}

// monthOf extracts the YYYY-MM prefix of an expected close date; anything
// that does not look like YYYY-MM... buckets as Unknown.
func monthOf(d *string) string {
	if d == nil {
		return unknownBucket
	}
	s := strings.TrimSpace(*d)
	if len(s) >= 7 && s[4] == '-' {
		return s[:7]
	}
	return unknownBucket
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
