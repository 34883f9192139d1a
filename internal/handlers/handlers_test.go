package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mpesa"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

func stkCallback(checkoutID string, code int, receipt string) []byte {
	meta := ""
	if code == 0 {
		meta = fmt.Sprintf(`,"CallbackMetadata":{"Item":[
			{"Name":"Amount","Value":20},
			{"Name":"MpesaReceiptNumber","Value":%q},
			{"Name":"PhoneNumber","Value":254712345678}]}`, receipt)
	}
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{
		"MerchantRequestID":"mr-1","CheckoutRequestID":%q,
		"ResultCode":%d,"ResultDesc":"done"%s}}}`, checkoutID, code, meta))
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	res := s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{
		"name": "Wanjiru", "email": "Wanjiru@Example.com", "password": "secret1", "role": "freelancer",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Contains(t, res.header.Get("Set-Cookie"), utils.TokenCookie+"=")
	user := res.data()["user"].(map[string]interface{})
	assert.Equal(t, "wanjiru@example.com", user["email"])
	assert.Equal(t, "freelancer", user["role"])
	assert.Equal(t, false, user["approved"])

	res = s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{
		"name": "Other", "email": "wanjiru@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, res.status)

	res = s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{
		"name": "Boss", "email": "boss@example.com", "password": "secret1", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, apperr.CodeValidation, res.body["code"])

	res = s.do(http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email": "wanjiru@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = s.do(http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email": "WANJIRU@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, res.status)
	cookie := res.header.Get("Set-Cookie")
	token := strings.TrimPrefix(strings.Split(cookie, ";")[0], utils.TokenCookie+"=")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: utils.TokenCookie, Value: token})
	res = s.send(req, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "wanjiru@example.com", res.data()["email"])

	res = s.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestJobPaymentAndSettlementFlow(t *testing.T) {
	s := newServer(t)
	client := s.user(models.RoleClient)
	fl := s.user(models.RoleFreelancer)
	admin := s.user(models.RoleAdmin)

	res := s.do(http.MethodPost, "/api/jobs", client, map[string]interface{}{
		"title":           "Climate policy essay",
		"work_type":       "Essay",
		"pages":           2,
		"amount":          20,
		"actual_deadline": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	jobID := res.data()["id"].(string)
	assert.Equal(t, float64(10), res.data()["freelancer_earnings"])

	res = s.do(http.MethodGet, "/api/jobs/"+jobID, fl, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(http.MethodPatch, "/api/jobs/"+jobID+"/approve", client, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	res = s.do(http.MethodPatch, "/api/jobs/"+jobID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	res = s.do(http.MethodPatch, "/api/jobs/"+jobID+"/assign", admin, map[string]string{"freelancer_id": fl.ID.String()})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "assigned", res.data()["status"])

	// pay
	res = s.do(http.MethodPost, "/api/payments/mpesa/stk", client, map[string]string{"job_id": jobID, "phone": "0712345678"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	p := res.data()["payment"].(map[string]interface{})
	assert.Equal(t, "pending", p["status"])
	assert.Equal(t, "254712345678", p["phone"])
	checkout := p["mpesa_checkout_request_id"].(string)

	for i := 0; i < 2; i++ {
		res = s.do(http.MethodPost, "/api/mpesa/callback", nil, stkCallback(checkout, 0, "NLJ7RT61SV"))
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, float64(0), res.body["ResultCode"])
		assert.Equal(t, "Success", res.body["ResultDesc"])
	}

	job := th.Reload[models.Job](t, s.db, uuid.MustParse(jobID))
	assert.True(t, job.PaymentConfirmed)
	assert.Equal(t, models.JobStatusPaid, job.Status)
	var payments []models.Payment
	require.NoError(t, s.db.Where("job_id = ?", job.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusConfirmed, payments[0].Status)
	assert.Equal(t, "NLJ7RT61SV", payments[0].MpesaReceiptNumber)

	// paying for confirmation does not touch the balance
	assert.Equal(t, float64(0), th.Reload[models.User](t, s.db, fl.ID).Balance)

	res = s.do(http.MethodPost, "/api/payments/mpesa/stk", client, map[string]string{"job_id": jobID, "phone": "0712345678"})
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, apperr.CodeAlreadyPaid, res.body["code"])

	// work
	for _, step := range []struct {
		as     *models.User
		status string
	}{
		{fl, "in_progress"},
		{fl, "delivered"},
		{client, "completed"},
	} {
		res = s.do(http.MethodPatch, "/api/jobs/"+jobID+"/status", step.as, map[string]string{"status": step.status})
		require.Equal(t, http.StatusOK, res.status, "%s: %s", step.status, res.raw)
	}

	res = s.do(http.MethodPatch, "/api/jobs/"+jobID+"/status", client, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, apperr.CodeInvalidTransition, res.body["code"])

	assert.Equal(t, float64(10), th.Reload[models.User](t, s.db, fl.ID).Balance)

	res = s.do(http.MethodGet, "/api/freelancer/earnings", fl, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, float64(10), res.data()["balance"])
	assert.Equal(t, float64(10), res.data()["settled"])

	res = s.do(http.MethodGet, "/api/freelancer/earnings", client, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.do(http.MethodGet, "/api/notifications", client, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.NotEmpty(t, res.body["data"])
}

func TestMpesaCallback_AlwaysAcknowledges(t *testing.T) {
	s := newServer(t)

	for _, body := range [][]byte{
		[]byte(`not json`),
		stkCallback("ws_CO_unknown", 0, "X1"),
		[]byte(`{"Body":{}}`),
	} {
		res := s.do(http.MethodPost, "/api/mpesa/callback", nil, body)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, float64(0), res.body["ResultCode"])
	}
}

func TestMpesaQuery_RateLimited(t *testing.T) {
	s := newServer(t)
	client := s.user(models.RoleClient)
	job := th.CreateJob(t, s.db, client.ID)
	checkout := "ws_CO_query"
	p := models.Payment{JobID: job.ID, ClientID: client.ID, Amount: 20, Status: models.PaymentStatusPending, MpesaCheckoutRequestID: &checkout}
	require.NoError(t, s.db.Create(&p).Error)

	body := map[string]string{"payment_id": p.ID.String()}
	for i := 0; i < 3; i++ {
		res := s.do(http.MethodPost, "/api/payments/mpesa/query", client, body)
		require.Equal(t, http.StatusOK, res.status, string(res.raw))
		assert.Equal(t, true, res.data()["pending"])
	}

	res := s.do(http.MethodPost, "/api/payments/mpesa/query", client, body)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, apperr.CodeRateLimited, res.body["code"])
	assert.NotEmpty(t, res.header.Get("Retry-After"))

	s.redis.FastForward(time.Minute + time.Second)
	s.gateway.mu.Lock()
	s.gateway.query = &mpesa.QueryResult{ResultCode: 1032, ResultDesc: "Request cancelled by user"}
	s.gateway.mu.Unlock()

	res = s.do(http.MethodPost, "/api/payments/mpesa/query", client, body)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, false, res.data()["pending"])
	assert.Equal(t, "applied", res.data()["outcome"])
	assert.Equal(t, models.PaymentStatusFailed, th.Reload[models.Payment](t, s.db, p.ID).Status)
	assert.False(t, th.Reload[models.Job](t, s.db, job.ID).PaymentConfirmed)
}
