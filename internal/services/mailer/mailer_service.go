// Package mailer sends admin bulk email under a daily quota.
package mailer

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

// DailyLimit caps recipients across all bulk sends in one calendar day.
const DailyLimit = 100

const (
	ModeIndividual  = "individual"
	ModeFreelancers = "freelancers"
	ModeClients     = "clients"
	ModeApproved    = "approved"
	ModeEmails      = "emails"
)

type Request struct {
	Mode    string      `json:"mode"`
	UserIDs []uuid.UUID `json:"user_ids"`
	Emails  []string    `json:"emails"`
	Subject string      `json:"subject"`
	Body    string      `json:"body"`
}

type Failure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type Service struct {
	DB     *gorm.DB
	Sender Sender

	// serializes quota check and dispatch
	mu  sync.Mutex
	now func() time.Time
}

func NewService(db *gorm.DB, sender Sender) *Service {
	return &Service{DB: db, Sender: sender, now: time.Now}
}

var validate = validator.New()

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SentToday is the number of recipients already used from today's quota.
func (s *Service) SentToday(ctx context.Context) (int, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&models.EmailLog{}).
		Where("created_at >= ?", startOfDay(s.now())).
		Select("COALESCE(SUM(recipient_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperr.Internal(err, "failed to read email quota")
	}
	return int(total), nil
}

// Remaining is what is left of today's quota.
func (s *Service) Remaining(ctx context.Context) (int, error) {
	sent, err := s.SentToday(ctx)
	if err != nil {
		return 0, err
	}
	if sent >= DailyLimit {
		return 0, nil
	}
	return DailyLimit - sent, nil
}

// Recipients resolves the request into a de-duplicated address list.
func (s *Service) Recipients(ctx context.Context, req Request) ([]string, error) {
	db := s.DB.WithContext(ctx).Model(&models.User{}).Where("is_active = ? AND email <> ''", true)
	var emails []string

	switch req.Mode {
	case ModeIndividual:
		if len(req.UserIDs) == 0 {
			return nil, apperr.Validation(apperr.CodeNoRecipients, "select at least one user")
		}
		if err := db.Where("id IN ?", req.UserIDs).Pluck("email", &emails).Error; err != nil {
			return nil, apperr.Internal(err, "failed to load recipients")
		}
	case ModeFreelancers:
		if err := db.Where("role = ?", models.RoleFreelancer).Pluck("email", &emails).Error; err != nil {
			return nil, apperr.Internal(err, "failed to load recipients")
		}
	case ModeClients:
		if err := db.Where("role = ?", models.RoleClient).Pluck("email", &emails).Error; err != nil {
			return nil, apperr.Internal(err, "failed to load recipients")
		}
	case ModeApproved:
		if err := db.Where("role = ? AND approved = ?", models.RoleFreelancer, true).Pluck("email", &emails).Error; err != nil {
			return nil, apperr.Internal(err, "failed to load recipients")
		}
	case ModeEmails:
		var invalid []string
		for _, e := range req.Emails {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if validate.Var(e, "email") != nil {
				invalid = append(invalid, e)
				continue
			}
			emails = append(emails, e)
		}
		if len(invalid) > 0 {
			return nil, apperr.Validation("", "invalid email addresses").With("invalid", invalid)
		}
	default:
		return nil, apperr.Validation("", "mode must be one of individual, freelancers, clients, approved, emails")
	}

	out := dedupe(emails)
	if len(out) == 0 {
		return nil, apperr.Validation(apperr.CodeNoRecipients, "no recipients matched")
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		k := strings.ToLower(strings.TrimSpace(e))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, strings.TrimSpace(e))
	}
	return out
}

// Send delivers req to every recipient, provided the whole batch fits in
// today's remaining quota. Nothing is sent when it does not.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, req Request) (*models.EmailLog, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" || strings.TrimSpace(req.Body) == "" {
		return nil, apperr.Validation("", "subject and body are required")
	}

	to, err := s.Recipients(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, err := s.Remaining(ctx)
	if err != nil {
		return nil, err
	}
	if len(to) > remaining {
		return nil, apperr.TooMany(apperr.CodeDailyLimitExceeded, "daily email limit exceeded").
			With("remaining", remaining).
			With("requested", len(to)).
			With("limit", DailyLimit)
	}

	var failures []Failure
	for _, addr := range to {
		if err := ctx.Err(); err != nil {
			failures = append(failures, Failure{Email: addr, Error: err.Error()})
			continue
		}
		if err := s.Sender.Send(addr, req.Subject, req.Body); err != nil {
			log.Printf("[Mailer] send to %s failed: %v", addr, err)
			failures = append(failures, Failure{Email: addr, Error: err.Error()})
		}
	}

	entry := models.EmailLog{
		SenderID:       senderID,
		Subject:        req.Subject,
		Mode:           req.Mode,
		RecipientCount: len(to),
		SuccessCount:   len(to) - len(failures),
		FailureCount:   len(failures),
		Status:         status(len(to), len(failures)),
		CreatedAt:      s.now(),
	}
	if len(failures) > 0 {
		raw, _ := json.Marshal(failures)
		entry.Failures = datatypes.JSON(raw)
	}
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error; err != nil {
		return nil, apperr.Internal(err, "emails sent but the log could not be saved")
	}
	return &entry, nil
}

func status(total, failed int) models.EmailLogStatus {
	switch {
	case failed == 0:
		return models.EmailLogSent
	case failed == total:
		return models.EmailLogFailed
	default:
		return models.EmailLogPartial
	}
}

// Logs lists recent bulk sends, newest first.
func (s *Service) Logs(ctx context.Context, limit int) ([]models.EmailLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.EmailLog
	err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
