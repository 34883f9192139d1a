package ratings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

func TestRate(t *testing.T) {
	db := th.OpenDB(t)
	ctx := context.Background()
	svc := NewService(db, earnings.NewBadgeService(db))
	client := th.CreateUser(t, db, models.RoleClient)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	job := th.CreateJob(t, db, client.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))

	r, err := svc.Rate(ctx, models.Actor{ID: client.ID, Role: models.RoleClient}, job.ID, Input{Score: 4, Comment: " good work "})
	require.NoError(t, err)
	assert.Equal(t, fl.ID, r.RateeID)
	assert.Equal(t, "good work", r.Comment)

	u := th.Reload[models.User](t, db, fl.ID)
	assert.Equal(t, 4.0, u.Rating)
	assert.Equal(t, 1, u.RatingCount)

	_, err = svc.Rate(ctx, models.Actor{ID: client.ID, Role: models.RoleClient}, job.ID, Input{Score: 5})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	_, err = svc.Rate(ctx, models.Actor{ID: fl.ID, Role: models.RoleFreelancer}, job.ID, Input{Score: 5})
	require.NoError(t, err)
	c := th.Reload[models.User](t, db, client.ID)
	assert.Equal(t, 5.0, c.Rating)
	assert.Equal(t, earnings.ClientBasic, c.ClientTier)

	list, err := svc.ForUser(ctx, fl.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRate_Rejections(t *testing.T) {
	db := th.OpenDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)
	client := th.CreateUser(t, db, models.RoleClient)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	open := th.CreateJob(t, db, client.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusDelivered))
	done := th.CreateJob(t, db, client.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted))
	me := models.Actor{ID: client.ID, Role: models.RoleClient}

	_, err := svc.Rate(ctx, me, done.ID, Input{Score: 6})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Rate(ctx, me, open.ID, Input{Score: 5})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	stranger := th.CreateUser(t, db, models.RoleClient)
	_, err = svc.Rate(ctx, models.Actor{ID: stranger.ID, Role: models.RoleClient}, done.ID, Input{Score: 5})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}
