package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

func TestCredit(t *testing.T) {
	db := th.OpenDB(t)
	s := NewWalletService(db)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	jobID := uuid.New()

	has, err := s.HasCredit(db, fl.ID, jobID)
	require.NoError(t, err)
	assert.False(t, has)

	entry, err := s.Credit(db, fl.ID, 12.346, jobID, "job settled")
	require.NoError(t, err)
	assert.Equal(t, 12.35, entry.Amount)
	assert.Equal(t, float64(0), entry.BalanceBefore)
	assert.Equal(t, 12.35, entry.BalanceAfter)
	assert.Equal(t, 12.35, th.Reload[models.User](t, db, fl.ID).Balance)

	has, err = s.HasCredit(db, fl.ID, jobID)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.Credit(db, fl.ID, 0, jobID, "nothing")
	assert.Error(t, err)
	_, err = s.Credit(db, uuid.New(), 5, jobID, "ghost")
	assert.Error(t, err)
}

func TestSetBalance(t *testing.T) {
	db := th.OpenDB(t)
	s := NewWalletService(db)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	_, err := s.Credit(db, fl.ID, 30, uuid.New(), "job settled")
	require.NoError(t, err)

	entry, err := s.SetBalance(db, fl.ID, 20, "recompute")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.WalletTrxAdjustment, entry.Type)
	assert.Equal(t, float64(-10), entry.Amount)
	assert.Equal(t, float64(20), th.Reload[models.User](t, db, fl.ID).Balance)

	entry, err = s.SetBalance(db, fl.ID, 20, "recompute")
	require.NoError(t, err)
	assert.Nil(t, entry)

	history, err := s.History(context.Background(), fl.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
