// Package export renders job listings as Excel or CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var header = []string{
	"Order", "Title", "Work Type", "Pages", "Slides", "Amount", "Writer Pay",
	"Status", "Paid", "Client", "Writer", "Deadline", "Delivered", "Completed", "Created",
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

type Filter struct {
	Status string
	From   time.Time
	To     time.Time
}

// ContentType returns the MIME type and file extension for format.
func ContentType(format string) (string, string, error) {
	switch format {
	case "", FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX, nil
	case FormatCSV:
		return "text/csv; charset=utf-8", FormatCSV, nil
	}
	return "", "", apperr.Validation("", "format must be xlsx or csv")
}

func (s *Service) rows(ctx context.Context, f Filter) ([][]string, error) {
	q := s.DB.WithContext(ctx).Preload("Client").Preload("Freelancer").Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, errors.Wrap(err, "load jobs")
	}

	out := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, []string{
			j.DisplayID,
			j.Title,
			j.WorkType,
			strconv.Itoa(j.Pages),
			strconv.Itoa(j.Slides),
			money(j.Amount),
			money(j.FreelancerEarnings),
			string(j.Status),
			yesNo(j.PaymentConfirmed),
			userName(j.Client),
			userName(j.Freelancer),
			stamp(&j.ActualDeadline),
			stamp(j.DeliveredAt),
			stamp(j.CompletedAt),
			stamp(&j.CreatedAt),
		})
	}
	return out, nil
}

// Jobs writes the filtered job list to w in the requested format.
func (s *Service) Jobs(ctx context.Context, w io.Writer, format string, f Filter) error {
	_, format, err := ContentType(format)
	if err != nil {
		return err
	}
	rows, err := s.rows(ctx, f)
	if err != nil {
		return apperr.Internal(err, "failed to export jobs")
	}
	if format == FormatCSV {
		return writeCSV(w, rows)
	}
	return writeXLSX(w, rows)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Jobs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for k, v := range r {
			cells[k] = cellValue(k, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// numeric columns go in as numbers so the sheet can sum them
func cellValue(col int, v string) interface{} {
	switch col {
	case 3, 4:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	case 5, 6:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func userName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
