package earnings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

func TestEvaluateBadges(t *testing.T) {
	assert.Empty(t, EvaluateBadges(BadgeStats{}))
	assert.Equal(t, []models.Badge{models.BadgeTopRated},
		EvaluateBadges(BadgeStats{RatingCount: 10, AverageRating: 4.5}))
	assert.Empty(t, EvaluateBadges(BadgeStats{RatingCount: 9, AverageRating: 5}))
	assert.Equal(t, []models.Badge{models.BadgeTopRated, models.BadgeVerifiedExpert},
		EvaluateBadges(BadgeStats{RatingCount: 20, AverageRating: 4.8, CompletedJobs: 20}))
	assert.Equal(t, []models.Badge{models.BadgeClientFavorite},
		EvaluateBadges(BadgeStats{MaxOrdersFromOneClient: 5}))
}

func rate(t *testing.T, db *gorm.DB, jobID, raterID, rateeID uuid.UUID, score int) {
	t.Helper()
	require.NoError(t, db.Create(&models.Rating{JobID: jobID, RaterID: raterID, RateeID: rateeID, Score: score}).Error)
}

func TestAutoAssign_TopRatedGainedThenLost(t *testing.T) {
	db := th.OpenDB(t)
	ctx := context.Background()
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	svc := NewBadgeService(db)

	for i := 0; i < 10; i++ {
		c := th.CreateUser(t, db, models.RoleClient)
		j := th.CreateJob(t, db, c.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
		rate(t, db, j.ID, c.ID, fl.ID, 5)
	}

	added, removed, err := svc.AutoAssign(ctx, fl.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Badge{models.BadgeTopRated}, added)
	assert.Empty(t, removed)

	// second run is a no-op
	added, removed, err = svc.AutoAssign(ctx, fl.ID)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, removed)

	badges, err := svc.Badges(ctx, fl.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Badge{models.BadgeTopRated}, badges)

	// pull the average under 4.5
	require.NoError(t, db.Model(&models.Rating{}).Where("ratee_id = ?", fl.ID).Update("score", 3).Error)
	added, removed, err = svc.AutoAssign(ctx, fl.ID)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, []models.Badge{models.BadgeTopRated}, removed)

	badges, err = svc.Badges(ctx, fl.ID)
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestAutoAssign_ClientFavoriteNeedsOneClient(t *testing.T) {
	db := th.OpenDB(t)
	ctx := context.Background()
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	svc := NewBadgeService(db)

	// five orders spread over five clients do not count
	for i := 0; i < 5; i++ {
		c := th.CreateUser(t, db, models.RoleClient)
		th.CreateJob(t, db, c.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
	}
	st, err := svc.Stats(ctx, fl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.MaxOrdersFromOneClient)
	assert.Equal(t, 5, st.CompletedJobs)

	loyal := th.CreateUser(t, db, models.RoleClient)
	for i := 0; i < 5; i++ {
		th.CreateJob(t, db, loyal.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
	}
	added, _, err := svc.AutoAssign(ctx, fl.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Badge{models.BadgeClientFavorite}, added)
}

func TestAutoAssignAll(t *testing.T) {
	db := th.OpenDB(t)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	th.CreateUser(t, db, models.RoleFreelancer)
	c := th.CreateUser(t, db, models.RoleClient)
	for i := 0; i < 5; i++ {
		th.CreateJob(t, db, c.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
	}

	svc := NewBadgeService(db)
	changed, failed, err := svc.AutoAssignAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 0, failed)

	changed, _, err = svc.AutoAssignAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestAutoAssign_AverageJustUnderThresholdIsNotRoundedUp(t *testing.T) {
	db := th.OpenDB(t)
	ctx := context.Background()
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	svc := NewBadgeService(db)

	raters := make([]*models.User, 10)
	for i := range raters {
		raters[i] = th.CreateUser(t, db, models.RoleClient)
	}
	// 99 fives and 101 fours: mean 899/200 = 4.495
	n := 0
	for j := 0; j < 20; j++ {
		job := th.CreateJob(t, db, raters[0].ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
		for _, r := range raters {
			score := 4
			if n < 99 {
				score = 5
			}
			rate(t, db, job.ID, r.ID, fl.ID, score)
			n++
		}
	}

	st, err := svc.Stats(ctx, fl.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, st.RatingCount)
	assert.Equal(t, 20, st.CompletedJobs)
	assert.InDelta(t, 4.495, st.AverageRating, 1e-9)

	added, _, err := svc.AutoAssign(ctx, fl.ID)
	require.NoError(t, err)
	assert.NotContains(t, added, models.BadgeTopRated)
	assert.NotContains(t, added, models.BadgeVerifiedExpert)
	// all 20 jobs came from one client
	assert.Equal(t, []models.Badge{models.BadgeClientFavorite}, added)
}
