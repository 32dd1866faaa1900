package export

import (
	"bytes"
	"testing"

	"bookathing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteDay(t *testing.T) {
	bookings := []models.Booking{
		{ID: "1", Name: "Alice", StartTime: "09:00", EndTime: "10:00", Date: "2024-06-01", CalendarID: "fastlandbox"},
		{ID: "2", Name: "Bob", StartTime: "10:00", EndTime: "10:45", Date: "2024-06-01"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDay(&buf, "2024-06-01", bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2024-06-01"}, f.GetSheetList())

	rows, err := f.GetRows("2024-06-01")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Date", "Start", "End", "Minutes", "Calendar"}, rows[0])
	assert.Equal(t, []string{"1", "Alice", "2024-06-01", "09:00", "10:00", "60", "fastlandbox"}, rows[1])
	assert.Equal(t, "Bob", rows[2][1])
	assert.Equal(t, "45", rows[2][5])
}

func TestWriteDay_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDay(&buf, "", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWorkbook_MultipleSheets(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()

	require.NoError(t, wb.WriteBookings("2024-06-01", nil))
	require.NoError(t, wb.WriteBookings("2024-06-02", nil))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, f.GetSheetList())
}
