package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/config"
)

type fakeDaraja struct {
	tokenCalls int32
	lastPush   map[string]interface{}
	query      func(w http.ResponseWriter)
}

func (f *fakeDaraja) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&f.tokenCalls, 1)
		_, _ = w.Write([]byte(`{"access_token":"tok123","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		_, _ = w.Write([]byte(`{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success. Request accepted for processing"}`))
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		f.query(w)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, f *fakeDaraja) *MpesaService {
	srv := f.server(t)
	s := NewMpesaServiceWithURL(config.MpesaConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "pass",
		CallbackURL:    "https://example.com/api/mpesa/callback",
	}, srv.URL)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func TestSTKPush(t *testing.T) {
	f := &fakeDaraja{}
	s := newTestService(t, f)

	resp, err := s.STKPush(context.Background(), STKPushRequest{Phone: "0712345678", Amount: 19.2, AccountRef: "ORD-ABCDEFGH", Description: "Order payment"})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)

	assert.Equal(t, "20240301093000", f.lastPush["Timestamp"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379pass20240301093000")), f.lastPush["Password"])
	assert.Equal(t, "CustomerPayBillOnline", f.lastPush["TransactionType"])
	assert.Equal(t, "254712345678", f.lastPush["PhoneNumber"])
	assert.Equal(t, float64(20), f.lastPush["Amount"])

	// the token is cached between calls
	_, err = s.STKPush(context.Background(), STKPushRequest{Phone: "254712345678", Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls))
}

func TestSTKPush_BadPhone(t *testing.T) {
	s := newTestService(t, &fakeDaraja{})
	_, err := s.STKPush(context.Background(), STKPushRequest{Phone: "12345", Amount: 5})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestQueryStatus(t *testing.T) {
	f := &fakeDaraja{}
	s := newTestService(t, f)

	f.query = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"requestId":"1","errorCode":"500.001.1001","errorMessage":"The transaction is being processed"}`))
	}
	res, err := s.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.True(t, res.Pending)

	f.query = func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"ResponseCode":"0","ResponseDescription":"ok","MerchantRequestID":"1","CheckoutRequestID":"ws_CO_1","ResultCode":"1032","ResultDesc":"Request cancelled by user"}`))
	}
	res, err = s.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.Equal(t, 1032, res.ResultCode)
	assert.Equal(t, "Request cancelled by user", res.ResultDesc)

	f.query = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"requestId":"1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid CheckoutRequestID"}`))
	}
	_, err = s.QueryStatus(context.Background(), "bogus")
	assert.True(t, apperr.Is(err, apperr.CodeGateway))
}

func TestNormalizePhone(t *testing.T) {
	for in, want := range map[string]string{
		"0712345678":       "254712345678",
		"+254712345678":    "254712345678",
		"254712345678":     "254712345678",
		"712345678":        "254712345678",
		"0112 345 678":     "254112345678",
		"+254 712-345-678": "254712345678",
	} {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "12345", "0812345678", "255712345678", "25471234567"} {
		_, err := NormalizePhone(in)
		assert.Error(t, err, in)
	}
}
