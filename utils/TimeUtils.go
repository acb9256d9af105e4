package utils

import "time"

func GetRemainingSeconds(target time.Time) int {
	remaining := int(time.Until(target).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
