package common

import (
	"fmt"
)

func SafeAddUint64(a, b uint64) (uint64, error) {
	s := a + b
	if s >= a && s >= b {
		return s, nil
	}
	return 0, fmt.Errorf("Add overflow of a %d - b %d", a, b)
}
