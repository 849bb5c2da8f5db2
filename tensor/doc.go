// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the shapes, layouts and device buffers the Blitz
// convolution engine operates on.
//
// # Overview
//
// Every convolution tensor has four axes tagged with a Layout:
//   - NCHW activations: batch, channel, height, width
//   - KCRS filters: output channel, input channel, filter row, filter column
//   - Flat workspaces: an element count only
//
// A Buffer owns the elements of one tensor on one Device. Buffers are never
// shared between devices; data moves with Copy or To.
//
// # Basic Usage
//
//	import "github.com/born-ml/blitz/tensor"
//
//	func main() {
//	    host := tensor.NewBuffer[float32](tensor.CPU, tensor.NCHW(1, 3, 8, 8))
//	    tensor.Fill(host, 1)
//
//	    // Move to the accelerator and back.
//	    dev := tensor.To(tensor.GPU, host)
//	    back := tensor.To(tensor.CPU, dev)
//	    _ = back.Data()
//	}
//
// # Layouts
//
// Unpacked (im2col) matrices are described by PackCRSPQ: one row of C·R·S
// elements per output position. BufferNHWC is the channel-last transpose
// used when marshaling for vendor routines.
package tensor
