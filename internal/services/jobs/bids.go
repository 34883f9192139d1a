package jobs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

type BidInput struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	CoverNote string  `json:"cover_note" validate:"max=5000"`
}

// PlaceBid lets an approved freelancer bid on an open job. Bidding again
// replaces the freelancer's earlier pending bid.
func (s *Service) PlaceBid(ctx context.Context, actor models.Actor, jobID uuid.UUID, in BidInput) (*models.Bid, error) {
	if actor.Role != models.RoleFreelancer {
		return nil, apperr.Forbidden("only freelancers can bid")
	}
	if fe := utils.ValidateStruct(in); fe != nil {
		return nil, apperr.Validation("", "invalid bid").With("fields", fe)
	}

	var fl models.User
	if err := s.DB.WithContext(ctx).First(&fl, "id = ?", actor.ID).Error; err != nil {
		return nil, apperr.NotFound("user not found")
	}
	if !fl.Approved {
		return nil, apperr.Forbidden("your account is awaiting approval")
	}

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusApproved || job.AssignedFreelancerID != nil {
		return nil, apperr.Conflict("", "job is not open for bids")
	}

	var bid models.Bid
	err = s.DB.WithContext(ctx).Where("job_id = ? AND freelancer_id = ?", jobID, actor.ID).First(&bid).Error
	switch {
	case err == nil:
		if bid.Status != models.BidStatusPending {
			return nil, apperr.Conflict("", "bid already decided")
		}
		if err := s.DB.WithContext(ctx).Model(&bid).Updates(map[string]interface{}{
			"amount":         utils.RoundMoney(in.Amount),
			"cover_note":     strings.TrimSpace(in.CoverNote),
			"admin_approved": false,
		}).Error; err != nil {
			return nil, apperr.Internal(err, "failed to update bid")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		bid = models.Bid{
			JobID:        jobID,
			FreelancerID: actor.ID,
			Amount:       utils.RoundMoney(in.Amount),
			CoverNote:    strings.TrimSpace(in.CoverNote),
			Status:       models.BidStatusPending,
		}
		if err := s.DB.WithContext(ctx).Create(&bid).Error; err != nil {
			return nil, apperr.Internal(err, "failed to place bid")
		}
	default:
		return nil, apperr.Internal(err, "failed to load bid")
	}
	return &bid, nil
}

// ListBids returns the bids on a job visible to actor: staff see all, the
// owning client sees admin-approved bids, a freelancer sees their own.
func (s *Service) ListBids(ctx context.Context, actor models.Actor, jobID uuid.UUID) ([]models.Bid, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Preload("Freelancer").Where("job_id = ?", jobID)
	switch {
	case actor.IsStaff():
	case actor.Role == models.RoleClient && job.ClientID == actor.ID:
		q = q.Where("admin_approved = ?", true)
	case actor.Role == models.RoleFreelancer:
		q = q.Where("freelancer_id = ?", actor.ID)
	default:
		return nil, apperr.Forbidden("access denied")
	}
	var out []models.Bid
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list bids")
	}
	return out, nil
}

func (s *Service) loadBid(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := s.DB.WithContext(ctx).First(&bid, "id = ?", bidID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("bid not found")
		}
		return nil, apperr.Internal(err, "failed to load bid")
	}
	return &bid, nil
}

// ApproveBid makes a bid visible to the job's client.
func (s *Service) ApproveBid(ctx context.Context, actor models.Actor, bidID uuid.UUID) (*models.Bid, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can approve bids")
	}
	bid, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(bid).Update("admin_approved", true).Error; err != nil {
		return nil, apperr.Internal(err, "failed to approve bid")
	}
	return bid, nil
}

// AcceptBid assigns the job to the bidding freelancer and rejects every
// other bid on it.
func (s *Service) AcceptBid(ctx context.Context, actor models.Actor, bidID uuid.UUID) (*models.Job, error) {
	bid, err := s.loadBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	job, err := s.load(ctx, bid.JobID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsStaff():
	case actor.Role == models.RoleClient && job.ClientID == actor.ID:
		if !bid.AdminApproved {
			return nil, apperr.Forbidden("bid is awaiting approval")
		}
	default:
		return nil, apperr.Forbidden("access denied")
	}
	if bid.Status != models.BidStatusPending {
		return nil, apperr.Conflict("", "bid already decided")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = assignTx(tx, bid.JobID, bid.FreelancerID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).Where("id = ?", bid.ID).
			Update("status", models.BidStatusAccepted).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bid{}).
			Where("job_id = ? AND id <> ? AND status = ?", bid.JobID, bid.ID, models.BidStatusPending).
			Update("status", models.BidStatusRejected).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, job)
	s.Notifier.Notify(ctx, bid.FreelancerID, notify.TypeBid, "Bid accepted",
		"Your bid on order "+job.DisplayID+" was accepted", map[string]interface{}{"bid_id": bid.ID, "job_id": job.ID})
	return job, nil
}
