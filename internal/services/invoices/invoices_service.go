package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
)

// Crediter releases a completed, paid job's earnings. Crediting the same job
// again must be a no-op.
type Crediter interface {
	CreditPaidJob(ctx context.Context, jobID uuid.UUID) (*earnings.Settlement, error)
}

type Service struct {
	DB       *gorm.DB
	Settler  Crediter
	Notifier notify.Notifier
}

func NewService(db *gorm.DB, settler Crediter, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{DB: db, Settler: settler, Notifier: n}
}

func invoiceNumber(job *models.Job, now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), job.DisplayID[len(job.DisplayID)-8:])
}

// Generate creates the invoice for a completed and paid job, splitting the
// amount into the freelancer's payout and the platform commission. A second
// call returns the existing invoice.
func (s *Service) Generate(ctx context.Context, actor models.Actor, jobID uuid.UUID) (*models.Invoice, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can generate invoices")
	}

	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to load job")
	}

	var existing models.Invoice
	err := s.DB.WithContext(ctx).Where("job_id = ?", jobID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "failed to load invoice")
	}

	if job.Status != models.JobStatusCompleted || !job.PaymentConfirmed {
		return nil, apperr.Validation("", "invoices are only issued for completed and paid jobs")
	}
	if job.AssignedFreelancerID == nil {
		return nil, apperr.Validation("", "job has no freelancer")
	}

	payout := job.FreelancerEarnings
	if payout <= 0 {
		payout = earnings.FreelancerPayout(job.WorkType, job.Pages, job.Slides)
	}
	inv := models.Invoice{
		Number:           invoiceNumber(&job, time.Now()),
		JobID:            job.ID,
		ClientID:         job.ClientID,
		FreelancerID:     *job.AssignedFreelancerID,
		Amount:           job.Amount,
		FreelancerAmount: payout,
		AdminCommission:  earnings.Commission(job.Amount, payout),
		Status:           models.InvoiceStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, apperr.Internal(err, "failed to create invoice")
	}
	return &inv, nil
}

// Confirm approves an invoice and releases the freelancer's earnings.
func (s *Service) Confirm(ctx context.Context, actor models.Actor, invoiceID uuid.UUID) (*models.Invoice, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can confirm invoices")
	}
	inv, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusConfirmed {
		return inv, nil
	}

	// The invoice stays pending unless the credit succeeds.
	if s.Settler != nil {
		if _, err := s.Settler.CreditPaidJob(ctx, inv.JobID); err != nil {
			return nil, apperr.Internal(err, "failed to release earnings")
		}
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(inv).Updates(map[string]interface{}{
		"status":       models.InvoiceStatusConfirmed,
		"confirmed_at": now,
	}).Error; err != nil {
		return nil, apperr.Internal(err, "failed to confirm invoice")
	}
	inv.Status = models.InvoiceStatusConfirmed
	inv.ConfirmedAt = &now

	s.Notifier.Notify(ctx, inv.FreelancerID, notify.TypeInvoice, "Invoice confirmed",
		fmt.Sprintf("Invoice %s confirmed, %.2f released", inv.Number, inv.FreelancerAmount),
		map[string]interface{}{"invoice_id": inv.ID, "job_id": inv.JobID})
	return inv, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.DB.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice not found")
		}
		return nil, apperr.Internal(err, "failed to load invoice")
	}
	return &inv, nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && inv.ClientID != actor.ID && inv.FreelancerID != actor.ID {
		return nil, apperr.Forbidden("access denied")
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, actor models.Actor) ([]models.Invoice, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if !actor.IsStaff() {
		q = q.Where("client_id = ? OR freelancer_id = ?", actor.ID, actor.ID)
	}
	var out []models.Invoice
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list invoices")
	}
	return out, nil
}
