package moderation

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
)

type Service struct {
	DB       *gorm.DB
	Storage  Storage
	Notifier notify.Notifier
	Hub      *realtime.Hub
	// BaseURL prefixes attachment download links.
	BaseURL string
}

func NewService(db *gorm.DB, storage Storage, n notify.Notifier, hub *realtime.Hub, baseURL string) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{DB: db, Storage: storage, Notifier: n, Hub: hub, BaseURL: strings.TrimRight(baseURL, "/")}
}

// DownloadURL is the authenticated route that streams attachment id.
func (s *Service) DownloadURL(id uuid.UUID) string {
	return s.BaseURL + "/api/attachments/" + id.String() + "/download"
}

// Upload is a file received from a client, read lazily through Open.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

func (s *Service) job(ctx context.Context, actor models.Actor, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to load job")
	}
	if !actor.IsStaff() && actor.Role != models.RoleEditor && !job.IsParticipant(actor.ID) {
		return nil, apperr.Forbidden("access denied")
	}
	return &job, nil
}

// UploadAttachment validates f, then stores it and records it on the job.
func (s *Service) UploadAttachment(ctx context.Context, actor models.Actor, jobID uuid.UUID, f Upload, category models.AttachmentCategory) (*models.JobAttachment, error) {
	if err := ValidateUpload(f.Name, f.ContentType, f.Size); err != nil {
		return nil, err
	}
	switch category {
	case "":
		category = models.AttachmentInstructions
	case models.AttachmentInstructions, models.AttachmentDraft, models.AttachmentFinal:
	default:
		return nil, apperr.Validation("", "invalid attachment category")
	}

	job, err := s.job(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return nil, apperr.Validation(apperr.CodeNoFile, "cannot read uploaded file")
	}
	defer rc.Close()

	ext := strings.ToLower(filepath.Ext(f.Name))
	key := fmt.Sprintf("jobs/%s/%s%s", job.ID, uuid.NewString(), ext)
	path, err := s.Storage.Save(ctx, key, rc)
	if err != nil {
		return nil, apperr.Internal(err, "failed to store file")
	}

	id := uuid.New()
	a := models.JobAttachment{
		ID:          id,
		JobID:       job.ID,
		UploaderID:  actor.ID,
		FileName:    filepath.Base(f.Name),
		StoredPath:  path,
		URL:         s.DownloadURL(id),
		Size:        f.Size,
		ContentType: f.ContentType,
		Category:    category,
		IsVisible:   true,
	}
	if err := s.DB.WithContext(ctx).Create(&a).Error; err != nil {
		if derr := s.Storage.Delete(ctx, path); derr != nil {
			log.Printf("[Moderation] cleanup %s: %v", path, derr)
		}
		return nil, apperr.Internal(err, "failed to save attachment")
	}
	return &a, nil
}

// ListAttachments returns the job's files: staff see hidden ones too.
func (s *Service) ListAttachments(ctx context.Context, actor models.Actor, jobID uuid.UUID) ([]models.JobAttachment, error) {
	if _, err := s.job(ctx, actor, jobID); err != nil {
		return nil, err
	}
	var rows []models.JobAttachment
	if err := s.DB.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list attachments")
	}
	if actor.IsStaff() {
		return rows, nil
	}
	out := rows[:0]
	for i := range rows {
		if AttachmentVisible(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (s *Service) attachment(ctx context.Context, id uuid.UUID) (*models.JobAttachment, error) {
	var a models.JobAttachment
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("attachment not found")
		}
		return nil, apperr.Internal(err, "failed to load attachment")
	}
	return &a, nil
}

// DownloadAttachment returns the file a caller may stream. Parties of the job
// get not found for hidden or deleted files; staff can fetch anything.
func (s *Service) DownloadAttachment(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.JobAttachment, error) {
	var a models.JobAttachment
	if err := s.DB.WithContext(ctx).Unscoped().First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("attachment not found")
		}
		return nil, apperr.Internal(err, "failed to load attachment")
	}
	if actor.IsStaff() {
		return &a, nil
	}
	if _, err := s.job(ctx, actor, a.JobID); err != nil {
		return nil, err
	}
	if !AttachmentVisible(&a) {
		return nil, apperr.NotFound("attachment not found")
	}
	return &a, nil
}

// SetAttachmentVisibility hides or shows a file for the job's parties.
func (s *Service) SetAttachmentVisibility(ctx context.Context, actor models.Actor, id uuid.UUID, visible bool) (*models.JobAttachment, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can moderate files")
	}
	a, err := s.attachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(a).Update("is_visible", visible).Error; err != nil {
		return nil, apperr.Internal(err, "failed to update attachment")
	}
	a.IsVisible = visible
	return a, nil
}

// DeleteAttachment soft-deletes a file; the stored bytes are kept.
func (s *Service) DeleteAttachment(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	a, err := s.attachment(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && a.UploaderID != actor.ID {
		return apperr.Forbidden("only the uploader can delete this file")
	}
	if err := s.DB.WithContext(ctx).Delete(a).Error; err != nil {
		return apperr.Internal(err, "failed to delete attachment")
	}
	return nil
}

// SendMessage posts to the job thread. Messages from staff are released to
// both parties at once; everything else waits for approval.
func (s *Service) SendMessage(ctx context.Context, actor models.Actor, jobID uuid.UUID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("", "message body is required")
	}
	if len(body) > 10000 {
		return nil, apperr.Validation("", "message is too long")
	}
	job, err := s.job(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}

	m := models.Message{JobID: job.ID, SenderID: actor.ID, Body: body}
	if actor.IsStaff() {
		now := time.Now()
		m.AdminApproved = true
		m.VisibleToClient = true
		m.VisibleToFreelancer = true
		m.ApprovedBy = &actor.ID
		m.ApprovedAt = &now
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, apperr.Internal(err, "failed to send message")
	}

	if m.AdminApproved {
		s.deliver(ctx, job, &m)
	} else if s.Hub != nil {
		s.Hub.SendToStaff(map[string]interface{}{
			"type":    "message_pending",
			"job_id":  job.ID,
			"message": m,
		})
	}
	return &m, nil
}

// ListMessages returns the thread as actor is allowed to see it.
func (s *Service) ListMessages(ctx context.Context, actor models.Actor, jobID uuid.UUID) ([]models.Message, error) {
	job, err := s.job(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	var rows []models.Message
	if err := s.DB.WithContext(ctx).Preload("Sender").
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list messages")
	}
	out := make([]models.Message, 0, len(rows))
	for i := range rows {
		if MessageVisibleTo(&rows[i], actor, job) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// PendingMessages lists messages waiting for approval, oldest first.
func (s *Service) PendingMessages(ctx context.Context, actor models.Actor) ([]models.Message, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can moderate messages")
	}
	var rows []models.Message
	if err := s.DB.WithContext(ctx).Preload("Sender").
		Where("admin_approved = ?", false).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list messages")
	}
	return rows, nil
}

// ApproveMessage releases a message to the chosen parties.
func (s *Service) ApproveMessage(ctx context.Context, actor models.Actor, id uuid.UUID, toClient, toFreelancer bool) (*models.Message, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can moderate messages")
	}
	if !toClient && !toFreelancer {
		return nil, apperr.Validation("", "release the message to at least one party")
	}
	m, err := s.message(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(m).Updates(map[string]interface{}{
		"admin_approved":        true,
		"visible_to_client":     toClient,
		"visible_to_freelancer": toFreelancer,
		"approved_by":           actor.ID,
		"approved_at":           now,
	}).Error; err != nil {
		return nil, apperr.Internal(err, "failed to approve message")
	}
	m.AdminApproved = true
	m.VisibleToClient = toClient
	m.VisibleToFreelancer = toFreelancer
	m.ApprovedBy = &actor.ID
	m.ApprovedAt = &now

	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", m.JobID).Error; err != nil {
		log.Printf("[Moderation] load job %s for delivery: %v", m.JobID, err)
		return m, nil
	}
	s.deliver(ctx, &job, m)
	return m, nil
}

func (s *Service) message(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, apperr.Internal(err, "failed to load message")
	}
	return &m, nil
}

// DeleteMessage soft-deletes a message; only its sender or staff may.
func (s *Service) DeleteMessage(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	m, err := s.message(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && m.SenderID != actor.ID {
		return apperr.Forbidden("only the sender can delete this message")
	}
	if err := s.DB.WithContext(ctx).Delete(m).Error; err != nil {
		return apperr.Internal(err, "failed to delete message")
	}
	return nil
}

// deliver notifies whichever parties can now see m, except its sender.
func (s *Service) deliver(ctx context.Context, job *models.Job, m *models.Message) {
	data := map[string]interface{}{"job_id": job.ID, "message_id": m.ID}
	title := "New message on " + job.DisplayID
	client := models.Actor{ID: job.ClientID, Role: models.RoleClient}
	if client.ID != m.SenderID && MessageVisibleTo(m, client, job) {
		s.Notifier.Notify(ctx, client.ID, notify.TypeMessage, title, preview(m.Body), data)
	}
	if job.AssignedFreelancerID != nil {
		fl := models.Actor{ID: *job.AssignedFreelancerID, Role: models.RoleFreelancer}
		if fl.ID != m.SenderID && MessageVisibleTo(m, fl, job) {
			s.Notifier.Notify(ctx, fl.ID, notify.TypeMessage, title, preview(m.Body), data)
		}
	}
}

func preview(body string) string {
	r := []rune(body)
	if len(r) <= 80 {
		return body
	}
	return string(r[:80]) + "…"
}
