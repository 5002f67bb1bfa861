// Package riskscore turns a reviewer checklist into a KYC score and risk
// tier. Pure computation, no I/O.
package riskscore

import (
	"math"

	"mercado/internal/domain"
)

// ApprovalThreshold is both the minimum score for seller approval and the
// lower bound of the bajo tier. The two are the same product decision, so
// there is a single constant.
const ApprovalThreshold = 80

// MedioThreshold is the lower bound of the medio tier.
const MedioThreshold = 50

// Score computes the 0-100 KYC score from the checklist. Each of the five
// judgments weighs equally; an unset judgment counts as false.
func Score(checklist domain.KYCChecklist) int {
	items := checklist.Items()
	trues := 0
	for _, ok := range items {
		if ok {
			trues++
		}
	}
	return int(math.Round(100 * float64(trues) / float64(len(items))))
}

// Tier maps a score to its risk tier.
func Tier(score int) domain.RiesgoKYC {
	switch {
	case score >= ApprovalThreshold:
		return domain.RiesgoBajo
	case score >= MedioThreshold:
		return domain.RiesgoMedio
	default:
		return domain.RiesgoAlto
	}
}

// Evaluate is the one-call form used by the governance service.
func Evaluate(checklist domain.KYCChecklist) (int, domain.RiesgoKYC) {
	score := Score(checklist)
	return score, Tier(score)
}
