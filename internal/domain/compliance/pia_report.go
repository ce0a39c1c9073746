package compliance

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// RenderReport renders an assessment as a PDF document. It returns nil when
// the assessment does not exist.
func (s *AssessmentService) RenderReport(ctx context.Context, id string) ([]byte, error) {
	pia, err := s.store.GetAssessment(ctx, id)
	if err != nil || pia == nil {
		return nil, err
	}
	return renderAssessmentPDF(*pia)
}

func renderAssessmentPDF(pia PrivacyImpactAssessment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Privacy Impact Assessment")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Title: %s", pia.Title)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", pia.Status))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Created: %s", pia.CreatedAt.Format("2006-01-02")))
	pdf.Ln(7)
	if pia.CompletedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Completed: %s", pia.CompletedAt.Format("2006-01-02")))
		pdf.Ln(7)
	}

	section := func(title, body string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		if strings.TrimSpace(body) == "" {
			body = "-"
		}
		pdf.MultiCell(0, 6, tr(body), "", "L", false)
	}

	section("Feature", pia.FeatureDescription)
	collected := make([]string, 0, len(pia.DataCollected))
	for _, item := range pia.DataCollected {
		collected = append(collected, fmt.Sprintf("%s: %s", item.Category, item.Purpose))
	}
	section("Data collected", strings.Join(collected, "\n"))
	section("Data use", pia.DataUse)
	section("Data sharing", pia.DataSharing)
	section("Risks", bulletList(pia.RisksIdentified))
	section("Mitigations", bulletList(pia.Mitigations))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
