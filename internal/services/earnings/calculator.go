// Package earnings derives freelancer pay, ratings, tiers and badges from
// aggregate counters, and settles completed jobs onto user balances.
package earnings

import (
	"strings"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

// Cost-per-page (CPP) paid to the freelancer, by normalized work type.
var pageRates = map[string]float64{
	"essay":          5.00,
	"assignment":     5.00,
	"article":        5.00,
	"research_paper": 6.00,
	"term_paper":     6.00,
	"case_study":     6.00,
	"lab_report":     6.50,
	"thesis":         7.50,
	"dissertation":   7.50,
	"programming":    8.00,
	"data_analysis":  8.00,
	"statistics":     8.00,
	"editing":        2.50,
	"proofreading":   2.50,
	"presentation":   0, // slides only
	"powerpoint":     0,
}

const (
	DefaultPageRate = 5.00
	SlideRate       = 2.50
)

// NormalizeWorkType lower-cases and joins words with underscores.
func NormalizeWorkType(workType string) string {
	s := strings.ToLower(strings.TrimSpace(workType))
	s = strings.NewReplacer("-", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// PageRate returns the CPP for a work type.
func PageRate(workType string) float64 {
	if r, ok := pageRates[NormalizeWorkType(workType)]; ok {
		return r
	}
	return DefaultPageRate
}

// FreelancerPayout is the fixed payout for a job: pages × CPP + slides × slide rate.
func FreelancerPayout(workType string, pages, slides int) float64 {
	if pages < 0 {
		pages = 0
	}
	if slides < 0 {
		slides = 0
	}
	return utils.RoundMoney(float64(pages)*PageRate(workType) + float64(slides)*SlideRate)
}

// Commission is what the platform keeps out of amount; never negative.
func Commission(amount, payout float64) float64 {
	c := utils.RoundMoney(amount - payout)
	if c < 0 {
		return 0
	}
	return c
}

// Average returns the mean score rounded to two decimals, 0 for no scores.
func Average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return utils.RoundMoney(float64(sum) / float64(len(scores)))
}

const (
	TierNew         = "new"
	TierRising      = "rising"
	TierEstablished = "established"
	TierElite       = "elite"

	ClientBasic    = "basic"
	ClientSilver   = "silver"
	ClientGold     = "gold"
	ClientPlatinum = "platinum"
)

// FreelancerTier maps completed jobs and average rating to a tier label.
func FreelancerTier(completed int, rating float64) string {
	switch {
	case completed >= 100 && rating >= 4.7:
		return TierElite
	case completed >= 25 && rating >= 4.0:
		return TierEstablished
	case completed >= 5:
		return TierRising
	default:
		return TierNew
	}
}

// ClientTier maps completed orders and total spend to a tier label.
func ClientTier(completed int, spent float64) string {
	switch {
	case completed >= 50 || spent >= 10000:
		return ClientPlatinum
	case completed >= 20 || spent >= 2000:
		return ClientGold
	case completed >= 5 || spent >= 500:
		return ClientSilver
	default:
		return ClientBasic
	}
}
