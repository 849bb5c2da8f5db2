package tensor

import "fmt"

// Direction of a transfer between two buffers.
type Direction int

// Transfer directions.
const (
	HostToHost Direction = iota
	HostToDevice
	DeviceToHost
	DeviceToDevice
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case HostToHost:
		return "host-to-host"
	case HostToDevice:
		return "host-to-device"
	case DeviceToHost:
		return "device-to-host"
	case DeviceToDevice:
		return "device-to-device"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// DirectionOf derives the transfer direction between two devices.
func DirectionOf(dst, src Device) Direction {
	switch {
	case src.IsHost() && dst.IsHost():
		return HostToHost
	case src.IsHost():
		return HostToDevice
	case dst.IsHost():
		return DeviceToHost
	default:
		return DeviceToDevice
	}
}

// Copy transfers the first count elements of src into dst and returns the
// direction used. The copy is synchronous: dst holds the data when Copy
// returns. Panics if count exceeds either buffer.
func Copy[T Float](dst, src *Buffer[T], count int) Direction {
	d, s := dst.Data(), src.Data()
	if count < 0 || count > len(d) || count > len(s) {
		panic(fmt.Sprintf("tensor: copy of %d elements from %s %s to %s %s out of range",
			count, src.device, src.shape, dst.device, dst.shape))
	}
	copy(d[:count], s[:count])
	return DirectionOf(dst.device, src.device)
}

// CopyAll transfers every element of src into dst; both must hold the same
// number of elements.
func CopyAll[T Float](dst, src *Buffer[T]) Direction {
	if dst.Len() != src.Len() {
		panic(fmt.Sprintf("tensor: copy size mismatch %s (%d) <- %s (%d)",
			dst.shape, dst.Len(), src.shape, src.Len()))
	}
	return Copy(dst, src, src.Len())
}

// To returns a copy of src resident on device.
func To[T Float](device Device, src *Buffer[T]) *Buffer[T] {
	dst := NewBuffer[T](device, src.shape)
	CopyAll(dst, src)
	return dst
}
