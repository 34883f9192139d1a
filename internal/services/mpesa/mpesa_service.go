package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/config"
)

const (
	SandboxURL    = "https://sandbox.safaricom.co.ke"
	ProductionURL = "https://api.safaricom.co.ke"

	timestampLayout = "20060102150405"

	// returned by the query API while the customer has not answered the prompt
	errProcessing = "500.001.1001"
)

type MpesaService struct {
	Client      *http.Client
	BaseURL     string
	ShortCode   string
	PassKey     string
	CallbackURL string

	now func() time.Time
}

func NewMpesaService(cfg config.MpesaConfig) *MpesaService {
	baseURL := SandboxURL // Default to sandbox
	if cfg.Env == "production" {
		baseURL = ProductionURL
	}
	return NewMpesaServiceWithURL(cfg, baseURL)
}

// NewMpesaServiceWithURL points the client at baseURL, e.g. a test server.
func NewMpesaServiceWithURL(cfg config.MpesaConfig, baseURL string) *MpesaService {
	baseURL = strings.TrimRight(baseURL, "/")
	src := &tokenSource{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    baseURL + "/oauth/v1/generate?grant_type=client_credentials",
		key:    cfg.ConsumerKey,
		secret: cfg.ConsumerSecret,
	}
	return &MpesaService{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, src),
				Base:   http.DefaultTransport,
			},
		},
		BaseURL:     baseURL,
		ShortCode:   cfg.ShortCode,
		PassKey:     cfg.PassKey,
		CallbackURL: cfg.CallbackURL,
		now:         time.Now,
	}
}

// tokenSource fetches Daraja access tokens with the consumer key and secret.
type tokenSource struct {
	client *http.Client
	url    string
	key    string
	secret string
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.key, s.secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "daraja oauth")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("daraja oauth: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "daraja oauth: decode")
	}
	if out.AccessToken == "" {
		return nil, errors.New("daraja oauth: empty access token")
	}

	ttl, err := strconv.Atoi(out.ExpiresIn)
	if err != nil || ttl <= 0 {
		ttl = 3599
	}
	return &oauth2.Token{
		AccessToken: out.AccessToken,
		TokenType:   "Bearer",
		// refresh a minute early
		Expiry: time.Now().Add(time.Duration(ttl)*time.Second - time.Minute),
	}, nil
}

// password is base64(shortcode + passkey + timestamp).
func (s *MpesaService) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(s.ShortCode + s.PassKey + ts))
}

type STKPushRequest struct {
	Phone       string
	Amount      float64
	AccountRef  string
	Description string
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type errorBody struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func gatewayError(msg string, err error) *apperr.Error {
	return &apperr.Error{Status: http.StatusBadGateway, Code: apperr.CodeGateway, Message: msg, Err: err}
}

// STKPush prompts the customer's phone to authorize a payment.
func (s *MpesaService) STKPush(ctx context.Context, in STKPushRequest) (*STKPushResponse, error) {
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	// Daraja only takes whole shillings
	amount := int64(math.Ceil(in.Amount))
	if amount < 1 {
		return nil, apperr.Validation("", "amount must be at least 1")
	}

	ts := s.now().Format(timestampLayout)
	body := stkPushBody{
		BusinessShortCode: s.ShortCode,
		Password:          s.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            s.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       s.CallbackURL,
		AccountReference:  truncate(in.AccountRef, 12),
		TransactionDesc:   truncate(in.Description, 13),
	}

	var out STKPushResponse
	status, raw, err := s.post(ctx, "/mpesa/stkpush/v1/processrequest", body)
	if err != nil {
		return nil, gatewayError("failed to reach M-Pesa", err)
	}
	if status != http.StatusOK {
		return nil, gatewayError(describeError(raw, status), nil)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, gatewayError("failed to parse M-Pesa response", err)
	}
	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		return nil, gatewayError("M-Pesa rejected the request: "+out.ResponseDescription, nil)
	}
	return &out, nil
}

// QueryResult is the state of an STK push as reported by the query API.
type QueryResult struct {
	// Pending is set while the customer has not acted on the prompt yet.
	Pending    bool
	ResultCode int
	ResultDesc string
	Raw        []byte
}

// QueryStatus asks Daraja for the outcome of an earlier STK push.
func (s *MpesaService) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	ts := s.now().Format(timestampLayout)
	body := map[string]string{
		"BusinessShortCode": s.ShortCode,
		"Password":          s.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	status, raw, err := s.post(ctx, "/mpesa/stkpushquery/v1/query", body)
	if err != nil {
		return nil, gatewayError("failed to reach M-Pesa", err)
	}

	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.ErrorCode != "" {
		if eb.ErrorCode == errProcessing {
			return &QueryResult{Pending: true, ResultDesc: eb.ErrorMessage, Raw: raw}, nil
		}
		return nil, gatewayError("M-Pesa error: "+eb.ErrorMessage, nil)
	}
	if status != http.StatusOK {
		return nil, gatewayError(describeError(raw, status), nil)
	}

	var out struct {
		ResponseCode string      `json:"ResponseCode"`
		ResultCode   json.Number `json:"ResultCode"`
		ResultDesc   string      `json:"ResultDesc"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, gatewayError("failed to parse M-Pesa response", err)
	}
	code, err := strconv.Atoi(out.ResultCode.String())
	if err != nil {
		return &QueryResult{Pending: true, ResultDesc: out.ResultDesc, Raw: raw}, nil
	}
	return &QueryResult{ResultCode: code, ResultDesc: out.ResultDesc, Raw: raw}, nil
}

func (s *MpesaService) post(ctx context.Context, path string, body interface{}) (int, []byte, error) {
	jsonBody, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func describeError(raw []byte, status int) string {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.ErrorMessage != "" {
		return "M-Pesa error: " + eb.ErrorMessage
	}
	return fmt.Sprintf("M-Pesa returned status %d", status)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizePhone turns 07XXXXXXXX, 01XXXXXXXX, +2547XXXXXXXX and
// 2547XXXXXXXX into the 2547XXXXXXXX form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	p = nonDigits.ReplaceAllString(p, "")

	switch {
	case len(p) == 10 && (strings.HasPrefix(p, "07") || strings.HasPrefix(p, "01")):
		p = "254" + p[1:]
	case len(p) == 9 && (strings.HasPrefix(p, "7") || strings.HasPrefix(p, "1")):
		p = "254" + p
	}
	if len(p) != 12 || !(strings.HasPrefix(p, "2547") || strings.HasPrefix(p, "2541")) {
		return "", apperr.Validation("", "invalid phone number, use 07XXXXXXXX or 2547XXXXXXXX")
	}
	return p, nil
}
