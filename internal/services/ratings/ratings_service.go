package ratings

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
)

type Service struct {
	DB     *gorm.DB
	Badges *earnings.BadgeService
}

func NewService(db *gorm.DB, badges *earnings.BadgeService) *Service {
	return &Service{DB: db, Badges: badges}
}

type Input struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Rate records actor's rating of the other party on a completed job, then
// refreshes the ratee's average, tier and badges.
func (s *Service) Rate(ctx context.Context, actor models.Actor, jobID uuid.UUID, in Input) (*models.Rating, error) {
	if in.Score < 1 || in.Score > 5 {
		return nil, apperr.Validation("", "score must be between 1 and 5")
	}

	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to load job")
	}
	if job.Status != models.JobStatusCompleted {
		return nil, apperr.Validation("", "only completed jobs can be rated")
	}
	if job.AssignedFreelancerID == nil {
		return nil, apperr.Validation("", "job has no freelancer")
	}

	var ratee uuid.UUID
	switch actor.ID {
	case job.ClientID:
		ratee = *job.AssignedFreelancerID
	case *job.AssignedFreelancerID:
		ratee = job.ClientID
	default:
		return nil, apperr.Forbidden("only the client or freelancer of this job can rate it")
	}

	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Rating{}).
		Where("job_id = ? AND rater_id = ?", jobID, actor.ID).Count(&n).Error; err != nil {
		return nil, apperr.Internal(err, "failed to check ratings")
	}
	if n > 0 {
		return nil, apperr.Conflict("", "you already rated this job")
	}

	r := models.Rating{
		JobID:   jobID,
		RaterID: actor.ID,
		RateeID: ratee,
		Score:   in.Score,
		Comment: strings.TrimSpace(in.Comment),
	}
	if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, apperr.Internal(err, "failed to save rating")
	}

	s.refresh(ctx, ratee, ratee == job.ClientID)
	return &r, nil
}

func (s *Service) refresh(ctx context.Context, userID uuid.UUID, isClient bool) {
	db := s.DB.WithContext(ctx)
	if isClient {
		if err := earnings.RefreshClientStats(db, userID); err != nil {
			log.Printf("[Ratings] refresh client %s: %v", userID, err)
		}
		return
	}
	if err := earnings.RefreshFreelancerStats(db, userID); err != nil {
		log.Printf("[Ratings] refresh freelancer %s: %v", userID, err)
	}
	if s.Badges != nil {
		if _, _, err := s.Badges.AutoAssign(ctx, userID); err != nil {
			log.Printf("[Ratings] badges for %s: %v", userID, err)
		}
	}
}

// ForUser lists ratings received by userID, newest first.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	var out []models.Rating
	err := s.DB.WithContext(ctx).
		Preload("Rater").
		Where("ratee_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
