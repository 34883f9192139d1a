package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
)

// Outcome describes what ApplyResult did with a gateway result.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeIdempotent Outcome = "idempotent"
	OutcomeRejected   Outcome = "rejected"
)

// Result is a payment outcome reported by the gateway, either through the
// callback or through a status query.
type Result struct {
	ResultCode int
	ResultDesc string
	Receipt    string
	Amount     float64
	Phone      string
	Raw        []byte
}

// Target maps a gateway result code to the payment status it implies.
func (r Result) Target() models.PaymentStatus {
	if r.ResultCode == 0 {
		return models.PaymentStatusConfirmed
	}
	return models.PaymentStatusFailed
}

type Reconciler struct {
	DB       *gorm.DB
	Notifier notify.Notifier
}

func NewReconciler(db *gorm.DB, n notify.Notifier) *Reconciler {
	if n == nil {
		n = notify.Nop{}
	}
	return &Reconciler{DB: db, Notifier: n}
}

// ApplyResult moves the payment identified by checkoutRequestID to the status
// implied by res, provided the transition is allowed. The latest row is read
// first and the update is conditional on the status seen, so a duplicate
// callback racing this one ends up as a no-op.
//
// A confirmed payment marks its job paid. The freelancer's balance is left
// alone; earnings are credited when the job is settled.
func (r *Reconciler) ApplyResult(ctx context.Context, checkoutRequestID string, res Result) (Outcome, *models.Payment, error) {
	db := r.DB.WithContext(ctx)

	var p models.Payment
	if err := db.Where("mpesa_checkout_request_id = ?", checkoutRequestID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.NotFound("payment not found")
		}
		return "", nil, errors.Wrap(err, "load payment")
	}

	target := res.Target()
	if !CanTransition(p.Status, target) {
		log.Printf("[Payment] rejected transition %s -> %s for payment %s", p.Status, target, p.ID)
		return OutcomeRejected, &p, nil
	}
	if p.Status == target {
		return OutcomeIdempotent, &p, nil
	}

	now := time.Now()
	updates := map[string]interface{}{"status": target}
	if len(res.Raw) > 0 {
		updates["raw_callback"] = datatypes.JSON(res.Raw)
	}
	if target == models.PaymentStatusConfirmed {
		updates["confirmed_at"] = now
		updates["mpesa_receipt_number"] = res.Receipt
	} else {
		updates["failure_reason"] = res.ResultDesc
	}

	var applied bool
	err := db.Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, p.Status).
			Updates(updates)
		if upd.Error != nil {
			return errors.Wrap(upd.Error, "update payment")
		}
		if upd.RowsAffected == 0 {
			return nil
		}
		applied = true

		if target != models.PaymentStatusConfirmed {
			return nil
		}
		return markJobPaid(tx, p.JobID)
	})
	if err != nil {
		return "", nil, err
	}

	if err := db.First(&p, "id = ?", p.ID).Error; err != nil {
		return "", nil, errors.Wrap(err, "reload payment")
	}
	if !applied {
		// lost the race to another writer
		if p.Status == target {
			return OutcomeIdempotent, &p, nil
		}
		return OutcomeRejected, &p, nil
	}

	r.notify(ctx, &p, res)
	return OutcomeApplied, &p, nil
}

func markJobPaid(tx *gorm.DB, jobID uuid.UUID) error {
	var job models.Job
	if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
		return errors.Wrap(err, "load job")
	}
	updates := map[string]interface{}{"payment_confirmed": true}
	switch job.Status {
	case models.JobStatusCompleted, models.JobStatusCancelled:
		// status is final, only record the payment
	default:
		updates["status"] = models.JobStatusPaid
	}
	return errors.Wrap(tx.Model(&job).Updates(updates).Error, "mark job paid")
}

func (r *Reconciler) notify(ctx context.Context, p *models.Payment, res Result) {
	data := map[string]interface{}{"payment_id": p.ID, "job_id": p.JobID, "amount": p.Amount}
	if p.Status == models.PaymentStatusConfirmed {
		r.Notifier.Notify(ctx, p.ClientID, notify.TypePaymentConfirmed, "Payment received",
			fmt.Sprintf("M-Pesa payment %s of %.2f confirmed", p.MpesaReceiptNumber, p.Amount), data)
		return
	}
	data["reason"] = res.ResultDesc
	r.Notifier.Notify(ctx, p.ClientID, notify.TypePaymentFailed, "Payment failed", res.ResultDesc, data)
}
