package calendar

import (
	"time"

	"bookathing/internal/models"
)

// Grid describes the visible time window of the day view and its geometry.
type Grid struct {
	WindowStart   models.Clock
	WindowEnd     models.Clock
	PixelsPerHour float64
	TopOffset     float64
	Step          int // minutes between selectable times
}

// DefaultGrid is the 07:00-18:00 day view: 42px row gap plus the label
// height gives 58px per hour, shifted 8px to align with the labels.
var DefaultGrid = Grid{
	WindowStart:   7 * 60,
	WindowEnd:     18 * 60,
	PixelsPerHour: 58,
	TopOffset:     8,
	Step:          15,
}

// FullDayGrid returns DefaultGrid geometry stretched over 00:00-24:00.
func FullDayGrid() Grid {
	g := DefaultGrid
	g.WindowStart = models.Midnight
	g.WindowEnd = models.EndOfDay
	return g
}

// Block is the render geometry of one booking.
type Block struct {
	Booking models.Booking
	Top     float64
	Height  float64
	New     bool
}

// PlaceInterval computes the vertical position of [start,end) on the grid.
// Intervals outside the window are positioned by the same formula.
func (g Grid) PlaceInterval(start, end models.Clock) (top, height float64) {
	offset := float64(start - g.WindowStart)
	top = offset/60*g.PixelsPerHour + g.TopOffset
	height = float64(end-start) / 60 * g.PixelsPerHour
	return top, height
}

// Place computes the block geometry of a single booking.
func Place(b models.Booking, g Grid) (Block, error) {
	start, end, err := b.Interval()
	if err != nil {
		return Block{}, err
	}
	top, height := g.PlaceInterval(start, end)
	return Block{Booking: b, Top: top, Height: height}, nil
}

// Layout places every booking with well-formed times, flagging the ones
// created within NewWindow of now.
func Layout(bookings []models.Booking, g Grid, now time.Time) []Block {
	blocks := make([]Block, 0, len(bookings))
	for _, b := range bookings {
		block, err := Place(b, g)
		if err != nil {
			continue
		}
		block.New = IsNew(b, now)
		blocks = append(blocks, block)
	}
	return blocks
}

// Slots returns the hour labels drawn on the grid, window end included.
func (g Grid) Slots() []string {
	var labels []string
	for c := g.WindowStart; c <= g.WindowEnd; c += 60 {
		labels = append(labels, c.String())
	}
	return labels
}

// Snap rounds c down to the grid step.
func (g Grid) Snap(c models.Clock) models.Clock {
	if g.Step <= 0 {
		return c
	}
	return c - c%models.Clock(g.Step)
}

// Contains reports whether [start,end) lies inside the visible window.
func (g Grid) Contains(start, end models.Clock) bool {
	return start >= g.WindowStart && end <= g.WindowEnd
}
