package earnings

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/wallet"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

// Settler books freelancer pay when a job completes and keeps the derived
// user counters in line with the jobs table.
type Settler struct {
	DB       *gorm.DB
	Wallet   *wallet.WalletService
	Badges   *BadgeService
	Notifier notify.Notifier
}

func NewSettler(db *gorm.DB, w *wallet.WalletService, b *BadgeService, n notify.Notifier) *Settler {
	if n == nil {
		n = notify.Nop{}
	}
	return &Settler{DB: db, Wallet: w, Badges: b, Notifier: n}
}

// Settlement is the outcome of SettleCompletion.
type Settlement struct {
	JobID        uuid.UUID `json:"job_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	Payout       float64   `json:"payout"`
	Credited     bool      `json:"credited"`
	Balance      float64   `json:"balance"`
}

// SettleCompletion fixes the freelancer's payout on a completed job, credits
// it when the client has paid, and rebuilds the freelancer's balance from the
// jobs table. Counters, tiers and badges are refreshed afterwards on a best
// effort basis. Calling it again for the same job changes nothing.
func (s *Settler) SettleCompletion(ctx context.Context, jobID uuid.UUID) (*Settlement, error) {
	var out Settlement
	var job models.Job

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("job not found")
			}
			return err
		}
		if job.Status != models.JobStatusCompleted {
			return apperr.Conflict(apperr.CodeInvalidTransition, "job is not completed")
		}
		if job.AssignedFreelancerID == nil {
			return apperr.Validation("", "job has no assigned freelancer")
		}
		fid := *job.AssignedFreelancerID

		payout := FreelancerPayout(job.WorkType, job.Pages, job.Slides)
		if job.FreelancerEarnings != payout {
			if err := tx.Model(&job).Update("freelancer_earnings", payout).Error; err != nil {
				return errors.Wrap(err, "store payout")
			}
			job.FreelancerEarnings = payout
		}

		credited, err := s.creditOnce(tx, &job)
		if err != nil {
			return err
		}

		balance, err := s.recompute(tx, fid)
		if err != nil {
			return err
		}

		out = Settlement{
			JobID:        job.ID,
			FreelancerID: fid,
			Payout:       payout,
			Credited:     credited,
			Balance:      balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshFreelancer(ctx, out.FreelancerID)
	s.refreshClient(ctx, job.ClientID)

	if out.Credited {
		s.Notifier.Notify(ctx, out.FreelancerID, notify.TypeEarnings, "Earnings credited",
			fmt.Sprintf("%.2f credited for order %s", out.Payout, job.DisplayID),
			map[string]interface{}{"job_id": job.ID, "amount": out.Payout, "balance": out.Balance})
	}
	return &out, nil
}

// creditOnce books the ledger credit for a completed, paid job exactly once.
func (s *Settler) creditOnce(tx *gorm.DB, job *models.Job) (bool, error) {
	if !job.PaymentConfirmed || job.Status != models.JobStatusCompleted || job.AssignedFreelancerID == nil {
		return false, nil
	}
	if job.FreelancerEarnings <= 0 {
		return false, nil
	}
	fid := *job.AssignedFreelancerID
	done, err := s.Wallet.HasCredit(tx, fid, job.ID)
	if err != nil {
		return false, errors.Wrap(err, "check ledger")
	}
	if done {
		return false, nil
	}
	if _, err := s.Wallet.Credit(tx, fid, job.FreelancerEarnings, job.ID, "Earnings for order "+job.DisplayID); err != nil {
		return false, errors.Wrap(err, "credit freelancer")
	}
	return true, nil
}

// CreditPaidJob is used when payment is confirmed after the job already
// completed. It credits the ledger once and rebuilds the balance.
func (s *Settler) CreditPaidJob(ctx context.Context, jobID uuid.UUID) (*Settlement, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.AssignedFreelancerID == nil {
		return nil, nil
	}
	return s.SettleCompletion(ctx, jobID)
}

// SumEarnings is the balance a freelancer should hold: the sum of payouts
// over their completed and paid jobs.
func SumEarnings(tx *gorm.DB, freelancerID uuid.UUID) (float64, error) {
	var total float64
	err := tx.Model(&models.Job{}).
		Where("assigned_freelancer_id = ? AND status = ? AND payment_confirmed = ?",
			freelancerID, models.JobStatusCompleted, true).
		Select("COALESCE(SUM(freelancer_earnings), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "sum earnings")
	}
	return utils.RoundMoney(total), nil
}

// RecomputeBalance overwrites the stored balance with SumEarnings.
// Running it twice in a row yields the same value.
func (s *Settler) RecomputeBalance(ctx context.Context, freelancerID uuid.UUID) (float64, error) {
	var balance float64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.recompute(tx, freelancerID)
		return err
	})
	return balance, err
}

func (s *Settler) recompute(tx *gorm.DB, freelancerID uuid.UUID) (float64, error) {
	total, err := SumEarnings(tx, freelancerID)
	if err != nil {
		return 0, err
	}
	if _, err := s.Wallet.SetBalance(tx, freelancerID, total, "Balance recomputed from completed paid orders"); err != nil {
		return 0, errors.Wrap(err, "set balance")
	}
	return total, nil
}

// RecomputeAll rebuilds every freelancer's balance and counters.
func (s *Settler) RecomputeAll(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleFreelancer).
		Pluck("id", &ids).Error; err != nil {
		return 0, errors.Wrap(err, "list freelancers")
	}
	n := 0
	for _, id := range ids {
		if _, err := s.RecomputeBalance(ctx, id); err != nil {
			log.Printf("[Settle] recompute balance for %s: %v", id, err)
			continue
		}
		s.refreshFreelancer(ctx, id)
		n++
	}
	return n, nil
}

func (s *Settler) refreshFreelancer(ctx context.Context, freelancerID uuid.UUID) {
	if err := RefreshFreelancerStats(s.DB.WithContext(ctx), freelancerID); err != nil {
		log.Printf("[Settle] refresh freelancer %s: %v", freelancerID, err)
	}
	if s.Badges == nil {
		return
	}
	added, removed, err := s.Badges.AutoAssign(ctx, freelancerID)
	if err != nil {
		log.Printf("[Settle] badges for %s: %v", freelancerID, err)
		return
	}
	for _, b := range added {
		s.Notifier.Notify(ctx, freelancerID, notify.TypeBadge, "New badge", "You earned the "+string(b)+" badge",
			map[string]interface{}{"badge": b, "action": "awarded"})
	}
	for _, b := range removed {
		s.Notifier.Notify(ctx, freelancerID, notify.TypeBadge, "Badge removed", "The "+string(b)+" badge no longer applies",
			map[string]interface{}{"badge": b, "action": "revoked"})
	}
}

func (s *Settler) refreshClient(ctx context.Context, clientID uuid.UUID) {
	if err := RefreshClientStats(s.DB.WithContext(ctx), clientID); err != nil {
		log.Printf("[Settle] refresh client %s: %v", clientID, err)
	}
}

// RefreshFreelancerStats rebuilds total earned, completed and on-time counts,
// rating and tier from the jobs and ratings tables.
func RefreshFreelancerStats(tx *gorm.DB, freelancerID uuid.UUID) error {
	var jobs []models.Job
	if err := tx.Select("id", "freelancer_earnings", "delivered_at", "freelancer_deadline").
		Where("assigned_freelancer_id = ? AND status = ?", freelancerID, models.JobStatusCompleted).
		Find(&jobs).Error; err != nil {
		return errors.Wrap(err, "completed jobs")
	}

	var earned float64
	onTime := 0
	for _, j := range jobs {
		earned += j.FreelancerEarnings
		if j.DeliveredAt != nil && !j.FreelancerDeadline.IsZero() && !j.DeliveredAt.After(j.FreelancerDeadline) {
			onTime++
		}
	}

	rating, count, err := ratingFor(tx, freelancerID)
	if err != nil {
		return err
	}

	return tx.Model(&models.User{}).Where("id = ?", freelancerID).Updates(map[string]interface{}{
		"total_earned":       utils.RoundMoney(earned),
		"completed_jobs":     len(jobs),
		"on_time_deliveries": onTime,
		"rating":             rating,
		"rating_count":       count,
		"freelancer_badge":   FreelancerTier(len(jobs), rating),
	}).Error
}

// RefreshClientStats rebuilds total spent, completed orders, rating and tier.
func RefreshClientStats(tx *gorm.DB, clientID uuid.UUID) error {
	var agg struct {
		Spent float64
	}
	if err := tx.Model(&models.Job{}).
		Where("client_id = ? AND status = ? AND payment_confirmed = ?", clientID, models.JobStatusCompleted, true).
		Select("COALESCE(SUM(amount), 0) AS spent").
		Scan(&agg).Error; err != nil {
		return errors.Wrap(err, "client spend")
	}

	var completed int64
	if err := tx.Model(&models.Job{}).
		Where("client_id = ? AND status = ?", clientID, models.JobStatusCompleted).
		Count(&completed).Error; err != nil {
		return errors.Wrap(err, "client orders")
	}

	rating, count, err := ratingFor(tx, clientID)
	if err != nil {
		return err
	}

	spent := utils.RoundMoney(agg.Spent)
	return tx.Model(&models.User{}).Where("id = ?", clientID).Updates(map[string]interface{}{
		"total_spent":    spent,
		"completed_jobs": int(completed),
		"rating":         rating,
		"rating_count":   count,
		"client_tier":    ClientTier(int(completed), spent),
	}).Error
}

func ratingFor(tx *gorm.DB, userID uuid.UUID) (float64, int, error) {
	var scores []int
	if err := tx.Model(&models.Rating{}).Where("ratee_id = ?", userID).Pluck("score", &scores).Error; err != nil {
		return 0, 0, errors.Wrap(err, "ratings")
	}
	return Average(scores), len(scores), nil
}
