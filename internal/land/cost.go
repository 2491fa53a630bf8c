package land

import "math"

// Costs parameterizes the expansion and merge price curves.
type Costs struct {
	BaseSize      int     `yaml:"base_size" json:"base_size"`
	MaxSize       int     `yaml:"max_size" json:"max_size"`
	SizeIncrease  int     `yaml:"size_increase" json:"size_increase"`
	BaseCost      int64   `yaml:"base_expansion_cost" json:"base_expansion_cost"`
	InflationRate float64 `yaml:"inflation_rate" json:"inflation_rate"`
	BaseMergeCost int64   `yaml:"base_merge_cost" json:"base_merge_cost"`
	MergeAreaUnit float64 `yaml:"merge_area_unit" json:"merge_area_unit"`
	MergeExponent float64 `yaml:"merge_exponent" json:"merge_exponent"`
}

// DefaultCosts are the production curve parameters.
func DefaultCosts() Costs {
	return Costs{
		BaseSize:      51,
		MaxSize:       200,
		SizeIncrease:  10,
		BaseCost:      500,
		InflationRate: 1.5,
		BaseMergeCost: 1000,
		MergeAreaUnit: 2500,
		MergeExponent: 1.2,
	}
}

// ExpansionCost is the price of growing a parcel of currentSize by one
// increment: BaseCost * InflationRate^floor((size-base)/increment), rounded.
func (c Costs) ExpansionCost(currentSize int) int64 {
	steps := 0
	if currentSize > c.BaseSize && c.SizeIncrease > 0 {
		steps = (currentSize - c.BaseSize) / c.SizeIncrease
	}
	return int64(math.Round(float64(c.BaseCost) * math.Pow(c.InflationRate, float64(steps))))
}

// CanExpand reports whether one more increment stays within MaxSize.
func (c Costs) CanExpand(currentSize int) bool {
	return currentSize+c.SizeIncrease <= c.MaxSize
}

// MergeCost is max(base, floor(base * (totalArea/unit)^exponent)).
func (c Costs) MergeCost(sizeA, sizeB int) int64 {
	totalArea := float64(sizeA*sizeA + sizeB*sizeB)
	scaled := math.Floor(float64(c.BaseMergeCost) * math.Pow(totalArea/c.MergeAreaUnit, c.MergeExponent))
	return max(c.BaseMergeCost, int64(scaled))
}
