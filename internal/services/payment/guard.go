// Package payment guards payment status changes and applies gateway results.
package payment

import "github.com/Windi-Fikriyansyah/writers_market_be/internal/models"

var allowed = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending:   {models.PaymentStatusConfirmed, models.PaymentStatusFailed},
	models.PaymentStatusConfirmed: {models.PaymentStatusConfirmed},
	models.PaymentStatusFailed:    {models.PaymentStatusFailed},
	models.PaymentStatusCancelled: {models.PaymentStatusCancelled},
}

// CanTransition reports whether a payment may move from one status to another.
// Unknown statuses never transition.
func CanTransition(from, to models.PaymentStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no status other than itself can follow s.
func IsTerminal(s models.PaymentStatus) bool {
	next, ok := allowed[s]
	return ok && len(next) == 1 && next[0] == s
}
