//go:build arm64

package mic

import "golang.org/x/sys/cpu"

func detectVectorWidth() {
	// NEON is 128-bit on every ARMv8 core.
	if cpu.ARM64.HasASIMD {
		vectorBytes, vectorName = 16, "neon"
	}
}
