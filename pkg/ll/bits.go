package ll

import "math/bits"

// LongestRun returns the length of the longest run of equal bits in v,
// scanning all 32 bit positions from the least significant bit.
func LongestRun(v uint32) int {
	longest, run := 1, 1
	for i := 1; i < 32; i++ {
		if (v>>i)&1 == (v>>(i-1))&1 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}

// TransitionCount returns the number of adjacent bit pairs that differ within
// the low width bits of v. Bits above width are ignored.
func TransitionCount(v uint32, width int) int {
	if width <= 1 {
		return 0
	}
	if width > 32 {
		width = 32
	}
	// bit i of d is set where bit i and bit i+1 of v differ.
	d := v ^ (v >> 1)
	return bits.OnesCount32(d & (1<<(width-1) - 1))
}
