package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/pkg/export"
	"github.com/noah-isme/sma-report-portal/pkg/storage"
)

func main() {
	var (
		input        string
		outDir       string
		organization string
		generatedBy  string
		role         string
		uncompressed bool
	)

	flag.StringVar(&input, "input", "", "Path to a report JSON document (title, content, chartData)")
	flag.StringVar(&outDir, "out", "./previews", "Directory for rendered PDFs")
	flag.StringVar(&organization, "org", "Academic Reporting Portal", "Organization printed in the header and footer")
	flag.StringVar(&generatedBy, "by", "Preview", "Name printed as the report author")
	flag.StringVar(&role, "role", string(models.RoleTeacher), "Role printed next to the author")
	flag.BoolVar(&uncompressed, "uncompressed", false, "Disable PDF stream compression")
	flag.Parse()

	if input == "" {
		log.Fatal("-input is required")
	}

	report, err := loadReport(input)
	if err != nil {
		log.Fatalf("failed to load report: %v", err)
	}

	now := time.Now()
	doc, err := export.NewReportRenderer(organization).Render(report, export.RenderOptions{
		GeneratedBy:     generatedBy,
		GeneratedByRole: models.UserRole(role),
		GeneratedAt:     now,
		Uncompressed:    uncompressed,
	})
	if err != nil {
		log.Fatalf("render failed: %v", err)
	}

	files, err := storage.NewLocalStorage(outDir)
	if err != nil {
		log.Fatalf("failed to init output dir: %v", err)
	}
	name, err := files.Save(export.Filename(report.Title, now, "pdf"), doc.Bytes)
	if err != nil {
		log.Fatalf("failed to save pdf: %v", err)
	}

	fmt.Printf("Wrote %s (%d pages)\n", files.Path(name), doc.PageCount)
	for _, s := range doc.Sections {
		fmt.Printf("  page %d  %-8s %s\n", s.Page, s.Kind, s.Title)
	}
	for _, note := range doc.Degraded {
		fmt.Printf("  degraded: %s\n", note)
	}
}

func loadReport(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.Title == "" {
		return nil, fmt.Errorf("report in %s has no title", path)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	return &report, nil
}
