package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/mpesa"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/payment"
)

// Gateway is the part of mpesa.MpesaService the payment routes use.
type Gateway interface {
	STKPush(ctx context.Context, in mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.QueryResult, error)
}

type PaymentHandler struct {
	DB         *gorm.DB
	Gateway    Gateway
	Reconciler *payment.Reconciler
}

func NewPaymentHandler(db *gorm.DB, gw Gateway, r *payment.Reconciler) *PaymentHandler {
	return &PaymentHandler{DB: db, Gateway: gw, Reconciler: r}
}

type stkReq struct {
	JobID string `json:"job_id" validate:"required,uuid"`
	Phone string `json:"phone"`
}

// InitiateSTK starts an M-Pesa STK push for the full amount of a job.
func (h *PaymentHandler) InitiateSTK(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req stkReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	ctx := c.UserContext()
	db := h.DB.WithContext(ctx)

	var job models.Job
	if err := db.Preload("Client").First(&job, "id = ?", req.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("job not found")
		}
		return apperr.Internal(err, "failed to load job")
	}
	if job.ClientID != a.ID {
		return apperr.Forbidden("only the job owner can pay for it")
	}
	if job.Status == models.JobStatusCancelled {
		return apperr.Validation("", "job is cancelled")
	}
	if job.PaymentConfirmed {
		return apperr.Conflict(apperr.CodeAlreadyPaid, "job is already paid")
	}

	phone := req.Phone
	if phone == "" && job.Client != nil {
		phone = job.Client.Phone
	}
	phone, err = mpesa.NormalizePhone(phone)
	if err != nil {
		return err
	}

	p := models.Payment{
		JobID:        job.ID,
		ClientID:     job.ClientID,
		FreelancerID: job.AssignedFreelancerID,
		Amount:       job.Amount,
		Phone:        phone,
		Status:       models.PaymentStatusPending,
	}
	if err := db.Create(&p).Error; err != nil {
		return apperr.Internal(err, "failed to create payment")
	}

	resp, err := h.Gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:       phone,
		Amount:      job.Amount,
		AccountRef:  job.DisplayID,
		Description: "Order " + job.DisplayID,
	})
	if err != nil {
		if uerr := db.Model(&p).Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"failure_reason": err.Error(),
		}).Error; uerr != nil {
			log.Printf("[Payment] mark payment %s failed: %v", p.ID, uerr)
		}
		return err
	}

	checkout := resp.CheckoutRequestID
	if err := db.Model(&p).Updates(map[string]interface{}{
		"mpesa_merchant_request_id": resp.MerchantRequestID,
		"mpesa_checkout_request_id": checkout,
	}).Error; err != nil {
		return apperr.Internal(err, "failed to store checkout id")
	}
	p.MpesaMerchantRequestID = resp.MerchantRequestID
	p.MpesaCheckoutRequestID = &checkout

	log.Printf("[Payment] STK push sent for job %s (checkout %s)", job.DisplayID, checkout)
	return created(c, fiber.Map{
		"payment":          p,
		"customer_message": resp.CustomerMessage,
	})
}

// Callback receives Daraja's STK result. Daraja retries anything that is
// not acknowledged, so the reply is always success.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		log.Printf("[Mpesa] bad callback: %v", err)
	} else {
		outcome, p, err := h.Reconciler.ApplyResult(c.UserContext(), cb.CheckoutRequestID, payment.Result{
			ResultCode: cb.ResultCode,
			ResultDesc: cb.ResultDesc,
			Receipt:    cb.Receipt,
			Amount:     cb.Amount,
			Phone:      cb.Phone,
			Raw:        body,
		})
		switch {
		case err != nil:
			log.Printf("[Mpesa] callback %s: %v", cb.CheckoutRequestID, err)
		default:
			log.Printf("[Mpesa] callback %s: %s (payment %s now %s)", cb.CheckoutRequestID, outcome, p.ID, p.Status)
		}
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Success"})
}

type queryReq struct {
	PaymentID string `json:"payment_id" validate:"required,uuid"`
}

// Query polls Daraja for a payment whose callback has not arrived.
func (h *PaymentHandler) Query(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req queryReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	ctx := c.UserContext()

	p, err := h.load(ctx, a, uuid.MustParse(req.PaymentID))
	if err != nil {
		return err
	}
	if p.Status != models.PaymentStatusPending {
		return ok(c, fiber.Map{"payment": p, "pending": false})
	}
	if p.MpesaCheckoutRequestID == nil {
		return apperr.Validation("", "payment was never sent to M-Pesa")
	}

	res, err := h.Gateway.QueryStatus(ctx, *p.MpesaCheckoutRequestID)
	if err != nil {
		return err
	}
	if res.Pending {
		return ok(c, fiber.Map{"payment": p, "pending": true, "message": res.ResultDesc})
	}

	outcome, updated, err := h.Reconciler.ApplyResult(ctx, *p.MpesaCheckoutRequestID, payment.Result{
		ResultCode: res.ResultCode,
		ResultDesc: res.ResultDesc,
		Raw:        res.Raw,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"payment": updated, "pending": false, "outcome": outcome})
}

func (h *PaymentHandler) load(ctx context.Context, a models.Actor, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := h.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, apperr.Internal(err, "failed to load payment")
	}
	if !a.IsStaff() && p.ClientID != a.ID {
		return nil, apperr.Forbidden("access denied")
	}
	return &p, nil
}

func (h *PaymentHandler) Get(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.load(c.UserContext(), a, id)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *PaymentHandler) ListForJob(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	jobID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())

	var job models.Job
	if err := db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("job not found")
		}
		return apperr.Internal(err, "failed to load job")
	}
	if !a.IsStaff() && job.ClientID != a.ID {
		return apperr.Forbidden("access denied")
	}

	var list []models.Payment
	if err := db.Where("job_id = ?", jobID).Order("created_at DESC").Find(&list).Error; err != nil {
		return apperr.Internal(err, "failed to list payments")
	}
	return ok(c, list)
}
