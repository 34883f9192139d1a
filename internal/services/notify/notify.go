package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/realtime"
)

const (
	TypePaymentConfirmed = "payment_confirmed"
	TypePaymentFailed    = "payment_failed"
	TypeJobStatus        = "job_status"
	TypeEarnings         = "earnings_credited"
	TypeMessage          = "new_message"
	TypeBid              = "bid_update"
	TypeBadge            = "badge_update"
	TypeInvoice          = "invoice"
)

// Notifier is satisfied by Service; services depend on this so tests can stub it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, data map[string]interface{})
}

// Service persists a notification and pushes it to open sockets through Redis,
// or straight to the local hub when Redis is unreachable.
// Every step is best effort: failures are logged, never returned.
type Service struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *Service {
	return &Service{DB: db, Hub: hub, RDB: rdb}
}

func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, data map[string]interface{}) {
	var raw datatypes.JSON
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			log.Printf("[Notify] marshal data for %s: %v", userID, err)
		} else {
			raw = datatypes.JSON(b)
		}
	}

	n := models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   raw,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("[Notify] insert notification for %s failed: %v", userID, err)
		return
	}

	envelope := map[string]interface{}{
		"type":         "notification",
		"notification": n,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[Notify] marshal envelope for %s: %v", userID, err)
		return
	}

	// The hub relay delivers published frames, local sockets included.
	if s.RDB != nil {
		err := s.RDB.Publish(ctx, realtime.NotificationChannel(userID.String()), payload).Err()
		if err == nil {
			return
		}
		log.Printf("[Notify] redis publish for %s failed: %v", userID, err)
	}
	if s.Hub != nil {
		s.Hub.SendRaw(userID, payload)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, string, string, string, map[string]interface{}) {}

// Recorder keeps notifications in memory; used by tests.
type Recorder struct {
	Sent []Sent
}

type Sent struct {
	UserID uuid.UUID
	Kind   string
	Title  string
}

func (r *Recorder) Notify(_ context.Context, userID uuid.UUID, kind, title, _ string, _ map[string]interface{}) {
	r.Sent = append(r.Sent, Sent{UserID: userID, Kind: kind, Title: title})
}

// Count returns how many notifications of kind went to userID.
func (r *Recorder) Count(userID uuid.UUID, kind string) int {
	n := 0
	for _, s := range r.Sent {
		if s.UserID == userID && s.Kind == kind {
			n++
		}
	}
	return n
}
