package earnings

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

const (
	TopRatedMinRatings       = 10
	TopRatedMinAverage       = 4.5
	VerifiedExpertMinJobs    = 20
	VerifiedExpertMinAverage = 4.5
	ClientFavoriteMinOrders  = 5
)

// BadgeStats are the aggregate counters badges are derived from.
type BadgeStats struct {
	RatingCount   int
	// AverageRating is unrounded; thresholds compare against the exact mean.
	AverageRating float64
	CompletedJobs int
	// MaxOrdersFromOneClient is the largest number of completed jobs done
	// for any single client.
	MaxOrdersFromOneClient int
}

// EvaluateBadges is the whole badge policy. It is pure, so running it twice
// over the same stats gives the same set.
func EvaluateBadges(s BadgeStats) []models.Badge {
	var out []models.Badge
	if s.RatingCount >= TopRatedMinRatings && s.AverageRating >= TopRatedMinAverage {
		out = append(out, models.BadgeTopRated)
	}
	if s.CompletedJobs >= VerifiedExpertMinJobs && s.AverageRating >= VerifiedExpertMinAverage {
		out = append(out, models.BadgeVerifiedExpert)
	}
	if s.MaxOrdersFromOneClient >= ClientFavoriteMinOrders {
		out = append(out, models.BadgeClientFavorite)
	}
	return out
}

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// Stats reads the counters for a freelancer straight from ratings and jobs.
func (s *BadgeService) Stats(ctx context.Context, freelancerID uuid.UUID) (BadgeStats, error) {
	return badgeStats(s.DB.WithContext(ctx), freelancerID)
}

func badgeStats(tx *gorm.DB, freelancerID uuid.UUID) (BadgeStats, error) {
	var st BadgeStats

	var agg struct {
		Cnt int64
		Avg float64
	}
	if err := tx.Model(&models.Rating{}).
		Where("ratee_id = ?", freelancerID).
		Select("COUNT(*) AS cnt, COALESCE(AVG(score), 0) AS avg").
		Scan(&agg).Error; err != nil {
		return st, errors.Wrap(err, "rating stats")
	}
	st.RatingCount = int(agg.Cnt)
	st.AverageRating = agg.Avg

	var completed int64
	if err := tx.Model(&models.Job{}).
		Where("assigned_freelancer_id = ? AND status = ?", freelancerID, models.JobStatusCompleted).
		Count(&completed).Error; err != nil {
		return st, errors.Wrap(err, "completed jobs")
	}
	st.CompletedJobs = int(completed)

	var perClient []struct {
		ClientID uuid.UUID
		Cnt      int64
	}
	if err := tx.Model(&models.Job{}).
		Where("assigned_freelancer_id = ? AND status = ?", freelancerID, models.JobStatusCompleted).
		Select("client_id, COUNT(*) AS cnt").
		Group("client_id").
		Scan(&perClient).Error; err != nil {
		return st, errors.Wrap(err, "orders per client")
	}
	for _, pc := range perClient {
		if int(pc.Cnt) > st.MaxOrdersFromOneClient {
			st.MaxOrdersFromOneClient = int(pc.Cnt)
		}
	}

	return st, nil
}

// AutoAssign recomputes a freelancer's badges from scratch and syncs the
// user_badges table. It returns what changed.
func (s *BadgeService) AutoAssign(ctx context.Context, freelancerID uuid.UUID) (added, removed []models.Badge, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e error
		added, removed, e = syncBadges(tx, freelancerID)
		return e
	})
	return added, removed, err
}

func syncBadges(tx *gorm.DB, freelancerID uuid.UUID) (added, removed []models.Badge, err error) {
	st, err := badgeStats(tx, freelancerID)
	if err != nil {
		return nil, nil, err
	}

	want := map[models.Badge]bool{}
	for _, b := range EvaluateBadges(st) {
		want[b] = true
	}

	var current []models.UserBadge
	if err := tx.Where("user_id = ?", freelancerID).Find(&current).Error; err != nil {
		return nil, nil, errors.Wrap(err, "load badges")
	}
	have := map[models.Badge]bool{}
	for _, ub := range current {
		have[ub.Badge] = true
		if !want[ub.Badge] {
			removed = append(removed, ub.Badge)
		}
	}
	for b := range want {
		if !have[b] {
			added = append(added, b)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })

	if len(removed) > 0 {
		if err := tx.Where("user_id = ? AND badge IN ?", freelancerID, removed).
			Delete(&models.UserBadge{}).Error; err != nil {
			return nil, nil, errors.Wrap(err, "revoke badges")
		}
	}
	for _, b := range added {
		if err := tx.Create(&models.UserBadge{UserID: freelancerID, Badge: b}).Error; err != nil {
			return nil, nil, errors.Wrap(err, "award badge")
		}
	}
	return added, removed, nil
}

// AutoAssignAll runs AutoAssign for every freelancer and returns how many
// badge rows changed. A failure on one user does not stop the pass.
func (s *BadgeService) AutoAssignAll(ctx context.Context) (changed int, failed int, err error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleFreelancer).
		Pluck("id", &ids).Error; err != nil {
		return 0, 0, errors.Wrap(err, "list freelancers")
	}
	for _, id := range ids {
		added, removed, err := s.AutoAssign(ctx, id)
		if err != nil {
			failed++
			continue
		}
		changed += len(added) + len(removed)
	}
	return changed, failed, nil
}

// Badges lists a user's current badges.
func (s *BadgeService) Badges(ctx context.Context, userID uuid.UUID) ([]models.Badge, error) {
	var out []models.Badge
	err := s.DB.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Order("badge").
		Pluck("badge", &out).Error
	return out, err
}
