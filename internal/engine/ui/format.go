package ui

import "fmt"

// FormatFPS renders a frame rate with the frame time.
func FormatFPS(fps float32) string {
	if fps <= 0 {
		return "FPS: --"
	}
	return fmt.Sprintf("FPS: %.0f (%.2f ms)", fps, 1000/fps)
}

func formatCount(label string, n int) string {
	return fmt.Sprintf("%s: %d", label, n)
}
