package util

import "fmt"

// HumanBytes renders n using binary (1024) boundaries: "B" below 1 KiB,
// two decimal places for "KB"/"MB"/"GB" and above.
func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit && exp < 2; v /= unit {
		div *= unit
		exp++
	}
	units := [...]string{"KB", "MB", "GB"}
	return fmt.Sprintf("%.2f%s", float64(n)/float64(div), units[exp])
}
