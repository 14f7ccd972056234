package service

import (
	"fmt"
	"math"
)

// GenerateSeatNumbers lays total seats out on a near-square grid and
// labels them row letter first, column number second: A1, A2, ... B1.
// The row count is ceil(sqrt(total)) so a 100-seat screen gets rows A
// through J of 10 seats each; the last row of an uneven total is
// simply shorter.
func GenerateSeatNumbers(total uint32) []string {
	if total == 0 {
		return nil
	}
	rows := uint32(math.Ceil(math.Sqrt(float64(total))))
	cols := (total + rows - 1) / rows

	numbers := make([]string, 0, total)
	for i := uint32(0); i < total; i++ {
		row := i / cols
		col := i%cols + 1
		numbers = append(numbers, fmt.Sprintf("%s%d", rowLabel(row), col))
	}
	return numbers
}

// rowLabel turns a zero-based row index into a spreadsheet-style
// letter sequence: A..Z, then AA, AB...
func rowLabel(row uint32) string {
	label := ""
	n := row
	for {
		label = string(rune('A'+n%26)) + label
		if n < 26 {
			break
		}
		n = n/26 - 1
	}
	return label
}
