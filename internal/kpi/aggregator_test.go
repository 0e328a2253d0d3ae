package kpi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

func TestComputeEmptyBatch(t *testing.T) {
	rep := Compute(nil)

	assert.Equal(t, 0, rep.TotalDeals)
	assert.Equal(t, 0.0, rep.TotalValue)
	assert.Nil(t, rep.AvgProbability)

	// groupings must marshal as [] rather than null
	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value_by_stage":[]`)
	assert.Contains(t, string(data), `"deals_by_owner":[]`)
	assert.Contains(t, string(data), `"value_by_month":[]`)
	assert.Contains(t, string(data), `"avg_probability":null`)
}

func TestComputeNullHandling(t *testing.T) {
	recs := []schema.DealRecord{
		{DealValue: schema.Float(1000), Stage: schema.Str("Open"), Owner: schema.Str("Sam")},
		{DealValue: schema.Float(2000), Stage: schema.Str("Open")},
	}
	rep := Compute(recs)

	assert.Equal(t, 2, rep.TotalDeals)
	assert.Equal(t, 3000.0, rep.TotalValue)
	assert.Nil(t, rep.AvgProbability, "no probabilities present")

	require.Len(t, rep.ValueByStage, 1)
	assert.Equal(t, StageValue{Stage: "Open", Value: 3000}, rep.ValueByStage[0])

	require.Len(t, rep.DealsByOwner, 2)
	ownerNames := []string{rep.DealsByOwner[0].Owner, rep.DealsByOwner[1].Owner}
	assert.Contains(t, ownerNames, "Sam")
	assert.Contains(t, ownerNames, "Unknown")
}

func TestComputeNullValueNotZeroFilled(t *testing.T) {
	recs := []schema.DealRecord{
		{Stage: schema.Str("Lost")}, // null value still counts as a deal
		{DealValue: schema.Float(500), Stage: schema.Str("Lost")},
	}
	rep := Compute(recs)

	assert.Equal(t, 2, rep.TotalDeals)
	assert.Equal(t, 500.0, rep.TotalValue)
}

func TestComputeAvgProbability(t *testing.T) {
	recs := []schema.DealRecord{
		{ClosingProbability: schema.Float(80)},
		{ClosingProbability: schema.Float(40)},
		{}, // null probability excluded from the average
	}
	rep := Compute(recs)

	require.NotNil(t, rep.AvgProbability)
	assert.Equal(t, 60.0, *rep.AvgProbability)
}

func TestComputeStageSortValueDescThenName(t *testing.T) {
	recs := []schema.DealRecord{
		{DealValue: schema.Float(100), Stage: schema.Str("B")},
		{DealValue: schema.Float(100), Stage: schema.Str("A")},
		{DealValue: schema.Float(900), Stage: schema.Str("C")},
	}
	rep := Compute(recs)

	require.Len(t, rep.ValueByStage, 3)
	assert.Equal(t, "C", rep.ValueByStage[0].Stage)
	assert.Equal(t, "A", rep.ValueByStage[1].Stage)
	assert.Equal(t, "B", rep.ValueByStage[2].Stage)
}

func TestComputeOwnerSortCountDescThenName(t *testing.T) {
	recs := []schema.DealRecord{
		{Owner: schema.Str("Zoe")},
		{Owner: schema.Str("Amy")},
		{Owner: schema.Str("Amy")},
		{Owner: schema.Str("Ben")},
	}
	rep := Compute(recs)

	require.Len(t, rep.DealsByOwner, 3)
	assert.Equal(t, OwnerCount{Owner: "Amy", Count: 2}, rep.DealsByOwner[0])
	assert.Equal(t, OwnerCount{Owner: "Ben", Count: 1}, rep.DealsByOwner[1])
	assert.Equal(t, OwnerCount{Owner: "Zoe", Count: 1}, rep.DealsByOwner[2])
}

func TestComputeMonthBucketing(t *testing.T) {
	recs := []schema.DealRecord{
		{DealValue: schema.Float(10), ExpectedCloseDate: schema.Str("2024-03-15")},
		{DealValue: schema.Float(20), ExpectedCloseDate: schema.Str("2024-03-02")},
		{DealValue: schema.Float(5), ExpectedCloseDate: schema.Str("2024-01-01")},
		{DealValue: schema.Float(7), ExpectedCloseDate: schema.Str("sometime soon")},
		{DealValue: schema.Float(3)},
	}
	rep := Compute(recs)

	require.Len(t, rep.ValueByMonth, 3)
	assert.Equal(t, MonthValue{Month: "2024-01", Value: 5}, rep.ValueByMonth[0])
	assert.Equal(t, MonthValue{Month: "2024-03", Value: 30}, rep.ValueByMonth[1])
	assert.Equal(t, MonthValue{Month: "Unknown", Value: 10}, rep.ValueByMonth[2])
}

func TestComputeRounding(t *testing.T) {
	recs := []schema.DealRecord{
		{DealValue: schema.Float(0.105)},
		{DealValue: schema.Float(0.105)},
	}
	rep := Compute(recs)
	assert.Equal(t, 0.21, rep.TotalValue)
}
