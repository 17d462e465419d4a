package calendar

import "testing"

func TestAssignLanes(t *testing.T) {
	blocks := []Block{
		{Booking: booking("c", date(2025, 6, 4), 60, nil), Top: 60, Height: 60},
		{Booking: booking("a", date(2025, 6, 4), 60, nil), Top: 0, Height: 60},
		{Booking: booking("d", date(2025, 6, 4), 30, nil), Top: 200, Height: 30},
		{Booking: booking("b", date(2025, 6, 4), 60, nil), Top: 30, Height: 60},
	}

	assignLanes(blocks)

	want := map[string][2]int{
		"a": {0, 2},
		"b": {1, 2},
		"c": {0, 2},
		"d": {0, 1},
	}
	for _, block := range blocks {
		lane := want[block.Booking.ID]
		if block.Lane != lane[0] || block.LaneCount != lane[1] {
			t.Fatalf("%s: lane=%d count=%d, want lane=%d count=%d", block.Booking.ID, block.Lane, block.LaneCount, lane[0], lane[1])
		}
	}

	column := Column{X: 100, Width: 200}
	placeInColumn(blocks, column)
	for _, block := range blocks {
		switch block.Booking.ID {
		case "b":
			if block.X != 200 || block.Width != 100 {
				t.Fatalf("b placed at x=%v width=%v", block.X, block.Width)
			}
		case "d":
			if block.X != 100 || block.Width != 200 {
				t.Fatalf("d placed at x=%v width=%v", block.X, block.Width)
			}
		}
	}
}

func TestAssignLanes_BackToBackShareLane(t *testing.T) {
	blocks := []Block{
		{Top: 0, Height: 80},
		{Top: 80, Height: 80},
		{Top: 160, Height: 40},
	}
	assignLanes(blocks)
	for i, block := range blocks {
		if block.Lane != 0 || block.LaneCount != 1 {
			t.Fatalf("block %d: lane=%d count=%d, want single lane", i, block.Lane, block.LaneCount)
		}
	}
}
