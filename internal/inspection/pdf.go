package inspection

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"dormtrack/internal/models"
)

// RenderPDF produces a one-page report for a fully materialized record.
func RenderPDF(rec *models.InspectionRecord) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, "Dormitory Inspection Report", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 11)
	writeField(doc, "Record", rec.ID)
	if rec.Student != nil {
		writeField(doc, "Student", fmt.Sprintf("%s (%s)", rec.Student.FullName, rec.Student.StudentNumber))
	}
	if rec.Room != nil {
		room := rec.Room.RoomNumber
		if rec.Room.Building != nil {
			room = rec.Room.Building.Name + " " + room
		}
		writeField(doc, "Room", room)
	}
	if rec.Inspector != nil {
		writeField(doc, "Inspector", rec.Inspector.Username)
	}
	writeField(doc, "Status", string(rec.Status))
	if rec.SubmittedAt != nil {
		writeField(doc, "Submitted", rec.SubmittedAt.Format("2006-01-02 15:04"))
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(70, 8, "Item", "1", 0, "L", false, 0, "")
	doc.CellFormat(30, 8, "Condition", "1", 0, "L", false, 0, "")
	doc.CellFormat(90, 8, "Comment", "1", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, d := range rec.Details {
		name := d.ItemID
		if d.Item != nil {
			name = d.Item.Name
			if d.Item.NameEn != "" {
				name = d.Item.NameEn
			}
		}
		doc.CellFormat(70, 7, name, "1", 0, "L", false, 0, "")
		doc.CellFormat(30, 7, string(d.Status), "1", 0, "L", false, 0, "")
		doc.CellFormat(90, 7, d.Comment, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeField(doc *fpdf.Fpdf, label, value string) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(30, 7, label, "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}
