package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

func seed(t *testing.T) *Service {
	db := th.OpenDB(t)
	client := th.CreateUser(t, db, models.RoleClient)
	fl := th.CreateUser(t, db, models.RoleFreelancer)
	th.CreateJob(t, db, client.ID, th.WithFreelancer(fl.ID), th.WithStatus(models.JobStatusCompleted), th.WithPaymentConfirmed())
	th.CreateJob(t, db, client.ID)
	return NewService(db)
}

func TestJobsCSV(t *testing.T) {
	svc := seed(t)
	var buf bytes.Buffer
	require.NoError(t, svc.Jobs(context.Background(), &buf, FormatCSV, Filter{Status: "completed"}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, header, records[0])
	assert.Equal(t, "completed", records[1][7])
	assert.Equal(t, "yes", records[1][8])
	assert.Equal(t, "20.00", records[1][5])
}

func TestJobsXLSX(t *testing.T) {
	svc := seed(t)
	var buf bytes.Buffer
	require.NoError(t, svc.Jobs(context.Background(), &buf, FormatXLSX, Filter{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Order", rows[0][0])
	assert.Regexp(t, `^ORD-`, rows[1][0])
}

func TestJobs_BadFormat(t *testing.T) {
	svc := seed(t)
	err := svc.Jobs(context.Background(), &bytes.Buffer{}, "pdf", Filter{})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}
