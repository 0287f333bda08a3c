package services

import (
	"fmt"
	"sort"
)

// multiplierTable holds one payout multiplier per safe reveal, keyed by bomb count.
var multiplierTable = map[int][]float64{
	3:  {1.07, 1.22, 1.4, 1.62, 1.89, 2.22, 2.63, 3.15, 3.82, 4.7, 5.87, 7.47, 9.71, 12.94, 17.79, 25.41, 38.11, 60.97, 106.69, 213.38, 533.45, 2133.8},
	6:  {1.25, 1.66, 2.24, 3.08, 4.31, 6.15, 8.98, 13.47, 20.81, 33.29, 55.48, 97.09, 180.31, 360.62, 793.36, 1983.4, 5950.2, 23800.8, 166605.6},
	9:  {1.48, 2.36, 3.87, 6.54, 11.44, 20.8, 39.52, 79.04, 167.96, 383.9, 959.75, 2687.3, 8733.72, 34934.88, 192141.84, 1921418.4},
	12: {1.82, 3.64, 7.61, 16.74, 39.06, 97.65, 265.05, 795.15, 2703.51, 10814.04, 54070.2, 378491.4, 4920388.2},
	15: {2.37, 6.32, 18.17, 57.1, 199.85, 799.4, 3797.15, 22782.9, 193654.65, 3098474.4},
	16: {2.63, 7.89, 25.92, 95.04, 399.16, 1995.8, 12640.06, 113760.54, 1933929.18},
	17: {2.96, 10.14, 38.37, 171.02, 897.85, 5985.66, 56863.77, 1023547.86},
	18: {3.39, 13.56, 62.37, 343.03, 2401.21, 24012.1, 456229.9},
	19: {3.95, 18.96, 109.02, 799.48, 8394.54, 167890.8},
	20: {4.75, 28.5, 218.5, 2403.5, 50473.5},
	21: {5.94, 47.44, 545.56, 12002.32},
	22: {7.91, 94.92, 2183.16},
	23: {11.87, 284.88},
	24: {23.75},
}

func IsValidBombCount(bombs int) bool {
	_, ok := multiplierTable[bombs]
	return ok
}

// BombCounts lists the supported bomb counts in ascending order.
func BombCounts() []int {
	counts := make([]int, 0, len(multiplierTable))
	for b := range multiplierTable {
		counts = append(counts, b)
	}
	sort.Ints(counts)
	return counts
}

// Multipliers returns a copy of the sequence for a bomb count.
func Multipliers(bombs int) ([]float64, error) {
	seq, ok := multiplierTable[bombs]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBombCount, bombs)
	}
	out := make([]float64, len(seq))
	copy(out, seq)
	return out, nil
}

// Multiplier returns the payout multiplier after step safe reveals. Step 0
// is the untouched bet (1.0); steps past the end of the table stay at the
// last entry.
func Multiplier(bombs, step int) (float64, error) {
	seq, ok := multiplierTable[bombs]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBombCount, bombs)
	}
	if step < 0 {
		return 0, fmt.Errorf("step must not be negative, got %d", step)
	}
	if step == 0 {
		return 1.0, nil
	}
	if step > len(seq) {
		return seq[len(seq)-1], nil
	}
	return seq[step-1], nil
}
