// Package jobs owns the order lifecycle: creation, approval, assignment,
// status moves and bidding.
package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

type Service struct {
	DB       *gorm.DB
	Settler  *earnings.Settler
	Notifier notify.Notifier
}

func NewService(db *gorm.DB, settler *earnings.Settler, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{DB: db, Settler: settler, Notifier: n}
}

type CreateInput struct {
	Title              string    `json:"title" validate:"required,min=3,max=200"`
	Instructions       string    `json:"instructions" validate:"max=20000"`
	WorkType           string    `json:"work_type" validate:"required,max=60"`
	Pages              int       `json:"pages" validate:"gte=0,lte=500"`
	Slides             int       `json:"slides" validate:"gte=0,lte=500"`
	Amount             float64   `json:"amount" validate:"gt=0"`
	ActualDeadline     time.Time `json:"actual_deadline" validate:"required"`
	FreelancerDeadline time.Time `json:"freelancer_deadline"`
}

// freelancerDeadline leaves the platform a buffer before the client's deadline.
func freelancerDeadline(now, actual time.Time) time.Time {
	buffer := actual.Sub(now) / 5
	if buffer > 24*time.Hour {
		buffer = 24 * time.Hour
	}
	if buffer < 0 {
		buffer = 0
	}
	return actual.Add(-buffer)
}

func (s *Service) Create(ctx context.Context, clientID uuid.UUID, in CreateInput) (*models.Job, error) {
	if fe := utils.ValidateStruct(in); fe != nil {
		return nil, apperr.Validation("", "invalid job").With("fields", fe)
	}
	if in.Pages == 0 && in.Slides == 0 {
		return nil, apperr.Validation("", "pages or slides must be greater than zero")
	}
	now := time.Now()
	if !in.ActualDeadline.After(now) {
		return nil, apperr.Validation("", "deadline must be in the future")
	}
	fd := in.FreelancerDeadline
	if fd.IsZero() || fd.After(in.ActualDeadline) {
		fd = freelancerDeadline(now, in.ActualDeadline)
	}

	job := models.Job{
		ClientID:           clientID,
		Title:              strings.TrimSpace(in.Title),
		Instructions:       in.Instructions,
		WorkType:           strings.TrimSpace(in.WorkType),
		Pages:              in.Pages,
		Slides:             in.Slides,
		Amount:             utils.RoundMoney(in.Amount),
		FreelancerEarnings: earnings.FreelancerPayout(in.WorkType, in.Pages, in.Slides),
		Status:             models.JobStatusPending,
		ActualDeadline:     in.ActualDeadline,
		FreelancerDeadline: fd,
	}
	if err := s.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, apperr.Internal(err, "failed to create job")
	}
	return &job, nil
}

func (s *Service) load(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to load job")
	}
	return &job, nil
}

// CanView reports whether actor may read job.
func CanView(actor models.Actor, job *models.Job) bool {
	if actor.IsStaff() || actor.Role == models.RoleEditor {
		return true
	}
	if job.IsParticipant(actor.ID) {
		return true
	}
	// open jobs are visible to freelancers so they can bid
	return actor.Role == models.RoleFreelancer &&
		job.Status == models.JobStatusApproved && job.AssignedFreelancerID == nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, job) {
		return nil, apperr.Forbidden("access denied")
	}
	return job, nil
}

type ListFilter struct {
	Status          string
	Available       bool
	IncludeArchived bool
	Page            int
	Limit           int
}

// List returns the jobs actor may see, newest first.
func (s *Service) List(ctx context.Context, actor models.Actor, f ListFilter) ([]models.Job, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	q := s.DB.WithContext(ctx).Model(&models.Job{})
	switch {
	case actor.IsStaff() || actor.Role == models.RoleEditor:
	case actor.Role == models.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	case actor.Role == models.RoleFreelancer && f.Available:
		q = q.Where("status = ? AND assigned_freelancer_id IS NULL", models.JobStatusApproved)
	case actor.Role == models.RoleFreelancer:
		q = q.Where("assigned_freelancer_id = ?", actor.ID)
	default:
		return nil, 0, apperr.Forbidden("access denied")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.IncludeArchived {
		q = q.Where("archived_at IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal(err, "failed to count jobs")
	}
	var out []models.Job
	if err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&out).Error; err != nil {
		return nil, 0, apperr.Internal(err, "failed to list jobs")
	}
	return out, total, nil
}

// Approve publishes a pending job so freelancers can bid on it.
func (s *Service) Approve(ctx context.Context, actor models.Actor, jobID uuid.UUID) (*models.Job, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can approve jobs")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !CanMove(job.Status, models.JobStatusApproved) {
		return nil, invalidMove(job.Status, models.JobStatusApproved)
	}
	if err := s.DB.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":         models.JobStatusApproved,
		"admin_approved": true,
	}).Error; err != nil {
		return nil, apperr.Internal(err, "failed to approve job")
	}
	job.Status = models.JobStatusApproved
	job.AdminApproved = true
	s.Notifier.Notify(ctx, job.ClientID, notify.TypeJobStatus, "Order approved",
		"Order "+job.DisplayID+" was approved", map[string]interface{}{"job_id": job.ID, "status": job.Status})
	return job, nil
}

// Assign hands the job to a freelancer.
func (s *Service) Assign(ctx context.Context, actor models.Actor, jobID, freelancerID uuid.UUID) (*models.Job, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can assign jobs")
	}
	var job *models.Job
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = assignTx(tx, jobID, freelancerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyAssigned(ctx, job)
	return job, nil
}

func assignTx(tx *gorm.DB, jobID, freelancerID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, err
	}
	if !CanMove(job.Status, models.JobStatusAssigned) {
		return nil, invalidMove(job.Status, models.JobStatusAssigned)
	}

	var fl models.User
	if err := tx.First(&fl, "id = ? AND role = ?", freelancerID, models.RoleFreelancer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("freelancer not found")
		}
		return nil, err
	}
	if !fl.Approved || !fl.IsActive {
		return nil, apperr.Validation("", "freelancer is not approved")
	}

	if err := tx.Model(&job).Updates(map[string]interface{}{
		"assigned_freelancer_id": freelancerID,
		"status":                 models.JobStatusAssigned,
	}).Error; err != nil {
		return nil, err
	}
	job.AssignedFreelancerID = &freelancerID
	job.Status = models.JobStatusAssigned
	return &job, nil
}

func (s *Service) notifyAssigned(ctx context.Context, job *models.Job) {
	data := map[string]interface{}{"job_id": job.ID, "status": job.Status}
	s.Notifier.Notify(ctx, *job.AssignedFreelancerID, notify.TypeJobStatus, "New assignment",
		"You were assigned order "+job.DisplayID, data)
	s.Notifier.Notify(ctx, job.ClientID, notify.TypeJobStatus, "Writer assigned",
		"A writer was assigned to order "+job.DisplayID, data)
}

func invalidMove(from, to models.JobStatus) *apperr.Error {
	return apperr.Validation(apperr.CodeInvalidTransition,
		fmt.Sprintf("cannot move job from %s to %s", from, to)).
		With("allowed", Next(from))
}

// UpdateStatus moves a job along the status table on behalf of actor.
// Moving to completed settles the freelancer's earnings; a settlement
// failure is logged and does not undo the status change.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, jobID uuid.UUID, to models.JobStatus) (*models.Job, error) {
	if to == models.JobStatusAssigned {
		return nil, apperr.Validation("", "use the assign endpoint to assign a freelancer")
	}
	if to == models.JobStatusApproved && !actor.IsStaff() {
		return nil, apperr.Forbidden("only admin or manager can approve jobs")
	}

	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	from := job.Status
	if !CanView(actor, job) {
		return nil, apperr.Forbidden("access denied")
	}
	if !CanMove(from, to) {
		return nil, invalidMove(from, to)
	}
	if !MayMove(actor, job, from, to) {
		return nil, apperr.Forbidden(fmt.Sprintf("%s cannot move job from %s to %s", actor.Role, from, to))
	}
	if to == models.JobStatusInProgress && job.AssignedFreelancerID == nil {
		return nil, apperr.Validation("", "job has no assigned freelancer")
	}

	now := time.Now()
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.JobStatusDelivered:
		updates["delivered_at"] = now
	case models.JobStatusCompleted:
		updates["completed_at"] = now
	case models.JobStatusCancelled:
		updates["archived_at"] = now
	case models.JobStatusApproved:
		updates["admin_approved"] = true
	}

	res := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", job.ID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error, "failed to update job status")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("", "job status changed concurrently, reload and retry")
	}

	if to == models.JobStatusCompleted && job.AssignedFreelancerID != nil && s.Settler != nil {
		if _, err := s.Settler.SettleCompletion(ctx, job.ID); err != nil {
			log.Printf("[Jobs] settlement for %s failed: %v", job.ID, err)
		}
	}

	job, err = s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, actor, job, from)
	return job, nil
}

func (s *Service) notifyStatus(ctx context.Context, actor models.Actor, job *models.Job, from models.JobStatus) {
	body := fmt.Sprintf("Order %s moved from %s to %s", job.DisplayID, from, job.Status)
	data := map[string]interface{}{"job_id": job.ID, "from": from, "status": job.Status}
	if job.ClientID != actor.ID {
		s.Notifier.Notify(ctx, job.ClientID, notify.TypeJobStatus, "Order update", body, data)
	}
	if job.AssignedFreelancerID != nil && *job.AssignedFreelancerID != actor.ID {
		s.Notifier.Notify(ctx, *job.AssignedFreelancerID, notify.TypeJobStatus, "Order update", body, data)
	}
}
