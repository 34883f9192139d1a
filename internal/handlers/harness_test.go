package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/export"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/invoices"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/moderation"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mpesa"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/payment"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/ratings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/wallet"
	th "github.com/Windi-Fikriyansyah/writers_market_be/internal/testhelpers"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

const testSecret = "handler-test-secret"

type fakeGateway struct {
	mu     sync.Mutex
	pushes int
	query  *mpesa.QueryResult
}

func (g *fakeGateway) STKPush(_ context.Context, in mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes++
	return &mpesa.STKPushResponse{
		MerchantRequestID: fmt.Sprintf("mr-%d", g.pushes),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", g.pushes),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) (*mpesa.QueryResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.query == nil {
		return &mpesa.QueryResult{Pending: true, ResultDesc: "The transaction is being processed"}, nil
	}
	return g.query, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type server struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	gateway *fakeGateway
	sender  *fakeSender
	redis   *miniredis.Miniredis
}

func newServer(t *testing.T) *server {
	t.Helper()
	gdb := th.OpenDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	notifier := notify.NewService(gdb, nil, nil)
	walletSvc := wallet.NewWalletService(gdb)
	badges := earnings.NewBadgeService(gdb)
	settler := earnings.NewSettler(gdb, walletSvc, badges, notifier)
	gw := &fakeGateway{}
	sender := &fakeSender{}

	auth := &AuthHandler{DB: gdb, JWTSecret: testSecret, Expires: 60}
	routes := &Routes{
		JWTSecret:   testSecret,
		RDB:         rdb,
		QueryLimit:  3,
		QueryWindow: time.Minute,

		Auth:          auth,
		Jobs:          NewJobHandler(jobs.NewService(gdb, settler, notifier)),
		Payments:      NewPaymentHandler(gdb, gw, payment.NewReconciler(gdb, notifier)),
		Moderation:    NewModerationHandler(moderation.NewService(gdb, moderation.NewLocalStorage(t.TempDir()), notifier, nil, "")),
		Invoices:      NewInvoiceHandler(invoices.NewService(gdb, settler, notifier)),
		Ratings:       NewRatingHandler(ratings.NewService(gdb, badges)),
		Notifications: NewNotificationHandler(gdb, nil),
		Dashboard:     NewFreelancerDashboardHandler(gdb, walletSvc, badges),
		Admin: &AdminHandler{
			DB:      gdb,
			Settler: settler,
			Badges:  badges,
			Wallet:  walletSvc,
			Mailer:  mailer.NewService(gdb, sender),
			Export:  export.NewService(gdb),
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(true)})
	routes.Mount(app)
	return &server{t: t, app: app, db: gdb, gateway: gw, sender: sender, redis: mr}
}

func (s *server) user(role models.Role) *models.User {
	return th.CreateUser(s.t, s.db, role)
}

type response struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]interface{}
}

func (r response) data() map[string]interface{} {
	d, _ := r.body["data"].(map[string]interface{})
	return d
}

func (s *server) do(method, path string, as *models.User, body interface{}) response {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			rdr = bytes.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(s.t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, as)
}

func (s *server) send(req *http.Request, as *models.User) response {
	s.t.Helper()
	if as != nil {
		tok, err := utils.SignJWT(testSecret, as.ID.String(), string(as.Role), 60)
		require.NoError(s.t, err)
		req.AddCookie(&http.Cookie{Name: utils.TokenCookie, Value: tok})
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	_ = json.Unmarshal(raw, &out.body)
	return out
}
