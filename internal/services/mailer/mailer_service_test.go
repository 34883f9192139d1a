package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
)

type fakeSender struct {
	sent []string
	fail map[string]bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.fail[to] {
		return errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

func emails(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("writer%d@example.com", i)
	}
	return out
}

func TestSend_QuotaRejectsBeforeSending(t *testing.T) {
	db := th.OpenDB(t)
	sender := &fakeSender{}
	svc := NewService(db, sender)
	ctx := context.Background()
	admin := uuid.New()

	log, err := svc.Send(ctx, admin, Request{Mode: ModeEmails, Emails: emails(60), Subject: "Hello", Body: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, models.EmailLogSent, log.Status)
	assert.Equal(t, 60, log.SuccessCount)

	_, err = svc.Send(ctx, admin, Request{Mode: ModeEmails, Emails: emails(41), Subject: "Again", Body: "x"})
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.CodeDailyLimitExceeded, ae.Code)
	assert.Equal(t, 429, ae.Status)
	assert.Equal(t, 40, ae.Details["remaining"])
	assert.Len(t, sender.sent, 60)

	_, err = svc.Send(ctx, admin, Request{Mode: ModeEmails, Emails: emails(40), Subject: "Fits", Body: "x"})
	require.NoError(t, err)
	remaining, err := svc.Remaining(ctx)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestSend_YesterdayDoesNotCount(t *testing.T) {
	db := th.OpenDB(t)
	svc := NewService(db, &fakeSender{})
	require.NoError(t, db.Create(&models.EmailLog{
		SenderID: uuid.New(), Subject: "old", Mode: ModeEmails, RecipientCount: 100,
		SuccessCount: 100, Status: models.EmailLogSent, CreatedAt: time.Now().Add(-48 * time.Hour),
	}).Error)

	sent, err := svc.SentToday(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSend_PartialAndFailed(t *testing.T) {
	db := th.OpenDB(t)
	sender := &fakeSender{fail: map[string]bool{"writer1@example.com": true}}
	svc := NewService(db, sender)
	ctx := context.Background()

	log, err := svc.Send(ctx, uuid.New(), Request{Mode: ModeEmails, Emails: emails(3), Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, models.EmailLogPartial, log.Status)
	assert.Equal(t, 1, log.FailureCount)
	assert.Contains(t, string(log.Failures), "writer1@example.com")

	log, err = svc.Send(ctx, uuid.New(), Request{Mode: ModeEmails, Emails: []string{"writer1@example.com"}, Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, models.EmailLogFailed, log.Status)

	logs, err := svc.Logs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestRecipients(t *testing.T) {
	db := th.OpenDB(t)
	svc := NewService(db, &fakeSender{})
	ctx := context.Background()

	f1 := th.CreateUser(t, db, models.RoleFreelancer)
	f2 := th.CreateUser(t, db, models.RoleFreelancer)
	require.NoError(t, db.Model(f2).Update("approved", false).Error)
	c := th.CreateUser(t, db, models.RoleClient)

	got, err := svc.Recipients(ctx, Request{Mode: ModeFreelancers})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f1.Email, f2.Email}, got)

	got, err = svc.Recipients(ctx, Request{Mode: ModeApproved})
	require.NoError(t, err)
	assert.Equal(t, []string{f1.Email}, got)

	got, err = svc.Recipients(ctx, Request{Mode: ModeClients})
	require.NoError(t, err)
	assert.Equal(t, []string{c.Email}, got)

	got, err = svc.Recipients(ctx, Request{Mode: ModeIndividual, UserIDs: []uuid.UUID{c.ID, f1.ID}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.Recipients(ctx, Request{Mode: ModeEmails, Emails: []string{"A@x.io", "a@x.io", " b@x.io "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A@x.io", "b@x.io"}, got)

	_, err = svc.Recipients(ctx, Request{Mode: ModeIndividual})
	assert.True(t, apperr.Is(err, apperr.CodeNoRecipients))

	_, err = svc.Recipients(ctx, Request{Mode: ModeEmails, Emails: []string{"  "}})
	assert.True(t, apperr.Is(err, apperr.CodeNoRecipients))

	_, err = svc.Recipients(ctx, Request{Mode: ModeEmails, Emails: []string{"not-an-email"}})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Recipients(ctx, Request{Mode: "everyone"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}
