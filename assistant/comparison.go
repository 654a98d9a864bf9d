package assistant

import (
	"math"

	"github.com/poiesic/bidgrid/core"
)

// PriceRange summarizes quoted prices.
type PriceRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// VendorPrice names a vendor and its price.
type VendorPrice struct {
	Vendor string  `json:"vendor"`
	Price  float64 `json:"price"`
}

// VendorScore names a vendor and a score.
type VendorScore struct {
	Vendor string  `json:"vendor"`
	Score  float64 `json:"score"`
}

// Comparison is the model-free summary of an RFP's proposals.
type Comparison struct {
	TotalProposals            int          `json:"totalProposals"`
	PriceRange                *PriceRange  `json:"priceRange"`
	AverageCompleteness       float64      `json:"averageCompleteness"`
	LowestPriceVendor         *VendorPrice `json:"lowestPriceVendor"`
	HighestCompletenessVendor *VendorScore `json:"highestCompletenessVendor"`
}

// QuickComparison computes headline numbers over proposals without a model.
// Returns nil for an empty slice. Prices of zero or less count as missing.
func QuickComparison(proposals []*core.Proposal) *Comparison {
	if len(proposals) == 0 {
		return nil
	}

	c := &Comparison{TotalProposals: len(proposals)}

	var (
		priceSum, priceCount float64
		completenessSum      float64
		lowest               = math.Inf(1)
		highest              float64
	)
	for _, p := range proposals {
		price := p.EffectivePrice()
		if price > 0 {
			if c.PriceRange == nil {
				c.PriceRange = &PriceRange{Min: price, Max: price}
			}
			c.PriceRange.Min = min(c.PriceRange.Min, price)
			c.PriceRange.Max = max(c.PriceRange.Max, price)
			priceSum += price
			priceCount++

			if price < lowest {
				lowest = price
				c.LowestPriceVendor = &VendorPrice{Vendor: p.DisplayName(), Price: price}
			}
		}

		completeness := p.EffectiveCompleteness()
		completenessSum += completeness
		if completeness > highest {
			highest = completeness
			c.HighestCompletenessVendor = &VendorScore{Vendor: p.DisplayName(), Score: completeness}
		}
	}

	if c.PriceRange != nil {
		c.PriceRange.Average = math.Round(priceSum / priceCount)
	}
	c.AverageCompleteness = math.Round(completenessSum / float64(len(proposals)))
	return c
}
