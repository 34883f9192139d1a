// Package testhelpers builds throwaway SQLite databases for package tests.
package testhelpers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/db"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

var dsnName = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// OpenDB returns a migrated in-memory database private to the running test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", dsnName.Replace(t.Name()), uuid.NewString()[:8])
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// CreateUser inserts an active, approved user with the given role.
func CreateUser(t *testing.T, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()
	id := uuid.New()
	u := &models.User{
		ID:       id,
		Name:     string(role) + " " + id.String()[:6],
		Email:    id.String()[:8] + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
		Approved: true,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// JobOption tweaks a job before insert.
type JobOption func(*models.Job)

func WithStatus(s models.JobStatus) JobOption {
	return func(j *models.Job) { j.Status = s }
}

func WithFreelancer(id uuid.UUID) JobOption {
	return func(j *models.Job) { j.AssignedFreelancerID = &id }
}

func WithPaymentConfirmed() JobOption {
	return func(j *models.Job) { j.PaymentConfirmed = true }
}

func WithPages(workType string, pages, slides int) JobOption {
	return func(j *models.Job) {
		j.WorkType = workType
		j.Pages = pages
		j.Slides = slides
	}
}

func WithAmount(amount float64) JobOption {
	return func(j *models.Job) { j.Amount = amount }
}

// CreateJob inserts a job owned by clientID; defaults to a 2-page essay.
func CreateJob(t *testing.T, gdb *gorm.DB, clientID uuid.UUID, opts ...JobOption) *models.Job {
	t.Helper()
	now := time.Now()
	j := &models.Job{
		ClientID:           clientID,
		Title:              "Test job",
		WorkType:           "Essay",
		Pages:              2,
		Amount:             20,
		Status:             models.JobStatusPending,
		ActualDeadline:     now.Add(72 * time.Hour),
		FreelancerDeadline: now.Add(48 * time.Hour),
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := gdb.Create(j).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

// Reload re-reads a row by primary key.
func Reload[T any](t *testing.T, gdb *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var out T
	if err := gdb.First(&out, "id = ?", id).Error; err != nil {
		t.Fatalf("reload %T: %v", out, err)
	}
	return &out
}
