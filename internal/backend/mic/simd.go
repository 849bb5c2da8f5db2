package mic

import (
	"os"

	"github.com/born-ml/blitz/internal/tensor"
)

// EnvNoSIMD forces scalar-width vectors when set to any non-empty value.
const EnvNoSIMD = "BLITZ_NO_SIMD"

// scalarBytes is the vector width assumed when no SIMD unit is detected.
const scalarBytes = 16

var (
	vectorBytes = scalarBytes
	vectorName  = "scalar"
)

func init() {
	if os.Getenv(EnvNoSIMD) != "" {
		return
	}
	detectVectorWidth()
}

// VectorBytes returns the detected vector register width in bytes.
func VectorBytes() int {
	return vectorBytes
}

// VectorName names the detected instruction set.
func VectorName() string {
	return vectorName
}

// Lanes returns how many elements of T fit in one vector register.
func Lanes[T tensor.Float]() int {
	return vectorBytes / tensor.DataTypeOf[T]().Size()
}
