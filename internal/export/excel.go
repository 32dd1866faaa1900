// Package export renders booking lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"bookathing/internal/models"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of Workbook output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var bookingColumns = []string{"ID", "Name", "Date", "Start", "End", "Minutes", "Calendar"}

// Workbook accumulates sheets of bookings.
type Workbook struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet starts a new sheet and makes it current.
func (w *Workbook) AddSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *Workbook) writeRow(values []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &values); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Workbook) writeHeader() error {
	header := make([]any, len(bookingColumns))
	for i, c := range bookingColumns {
		header[i] = c
	}
	if err := w.writeRow(header); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = w.file.SetCellStyle(w.currentSheet, "A1", endCell, style)
	}
	return nil
}

// WriteBookings adds a sheet listing bookings in the given order.
func (w *Workbook) WriteBookings(sheet string, bookings []models.Booking) error {
	if err := w.AddSheet(sheet); err != nil {
		return err
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	for i := range bookings {
		b := &bookings[i]
		row := []any{b.ID, b.Name, b.Date, b.StartTime, b.EndTime, b.DurationMinutes(), b.CalendarID}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) Write(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// WriteDay writes a single-sheet workbook named after date to wr.
func WriteDay(wr io.Writer, date string, bookings []models.Booking) error {
	wb := NewWorkbook()
	defer wb.Close()

	sheet := date
	if sheet == "" {
		sheet = "Bookings"
	}
	if err := wb.WriteBookings(sheet, bookings); err != nil {
		return err
	}
	return wb.Write(wr)
}
