package services_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"carwash-backend/internal/models"
	"carwash-backend/internal/services"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"
)

func TestExportDaily(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Radiator Flush", "Musa", "Full Wash"), PaymentMethod: models.PaymentCash})
	summary, err := f.summary.DailySummary(context.Background(), f.branch, f.now, f.now)
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}
	exp := services.NewExportService()

	doc, err := exp.DailyPDF(summary)
	if err != nil {
		t.Fatalf("DailyPDF: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("not a PDF document")
	}

	book, err := exp.DailyXLSX(summary)
	if err != nil {
		t.Fatalf("DailyXLSX: %v", err)
	}
	x, err := excelize.OpenReader(bytes.NewReader(book))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer x.Close()

	code, _ := x.GetCellValue("Summary", "B2")
	if code != "LK" {
		t.Fatalf("branch code cell = %q", code)
	}
	company, _ := x.GetCellValue("Summary", "B7")
	// 66.67 + 30 after rounding
	if company != "96.67" {
		t.Fatalf("company total cell = %q, want 96.67", company)
	}
	rows, err := x.GetRows("Items")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Radiator Flush" {
		t.Fatalf("items sheet = %v", rows)
	}
}

type fakePutter struct {
	key  string
	body []byte
}

func (p *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.key = *in.Key
	p.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveDay(t *testing.T) {
	f := newFixture(t)
	f.create(t, &models.CreateJobRequest{Lines: lines("Sam", "Full Wash")})
	put := &fakePutter{}
	svc := services.NewArchiveService(f.summary, services.NewExportService(), put, "reports-bucket", "daily", nil)

	key, err := svc.ArchiveDay(context.Background(), f.branch, f.now)
	if err != nil {
		t.Fatalf("ArchiveDay: %v", err)
	}
	if key != "daily/LK/2024-03-15.pdf" || put.key != key {
		t.Fatalf("key = %q (uploaded %q)", key, put.key)
	}
	if !bytes.HasPrefix(put.body, []byte("%PDF")) {
		t.Fatalf("uploaded body is not a PDF")
	}

	disabled := services.NewArchiveService(f.summary, services.NewExportService(), nil, "", "daily", nil)
	if key, err := disabled.ArchiveDay(context.Background(), f.branch, f.now); err != nil || key != "" {
		t.Fatalf("disabled archive = %q, %v", key, err)
	}
}
