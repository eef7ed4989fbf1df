// Package tensor implements the deterministic reference evaluators for
// each OperationKind: one fixed reduction order per
// kind (row-major traversal, left-to-right accumulation), no fused
// multiply-add, so that independent implementations converge on the same
// output bit-for-bit (integer kinds) or within ProtocolEpsilon (float
// kinds). There is no equivalent kaspad package for this concern; the packing
// conventions below (which operands live where in InputTensor.Shape and
// Elements) are this repository's own, since kaspad leaves the exact
// layout unspecified beyond "shape-first, then elements, row-major".
package tensor

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// ProtocolEpsilon bounds the allowed difference between a claimed and
// reference float32 output ("a task claim whose numeric
// output differs by exactly epsilon is accepted; by more than epsilon is
// rejected").
const ProtocolEpsilon = float32(1e-5)

// MatrixMultiply packs operand shapes as Shape = [rowsA, colsA, colsB];
// Elements holds A's rowsA*colsA values followed by B's colsA*colsB
// values, both row-major. The result is rowsA x colsB, row-major.
//
// Convolution1D packs Shape = [signalLength, kernelLength]; Elements
// holds the signal followed by the kernel. The result has length
// signalLength - kernelLength + 1 (valid, non-padded convolution).
//
// ElementwiseActivation and ElementwiseArithmetic pack Shape = [n].
// Activation's Elements holds n values; Arithmetic's holds 2n values,
// the left operand followed by the right.

// Evaluate computes the reference output for task.InputTensor under
// task.OperationKind. It never reads task.ExpectedOutputHash or any
// claim; callers compare the result (or its digest) against a claim.
func Evaluate(task *externalapi.DomainTensorTask) (*externalapi.DomainTensor, error) {
	switch task.OperationKind {
	case externalapi.OperationKindMatrixMultiply:
		return evaluateMatrixMultiply(task.InputTensor)
	case externalapi.OperationKindConvolution1D:
		return evaluateConvolution1D(task.InputTensor)
	case externalapi.OperationKindElementwiseActivation:
		return evaluateElementwiseActivation(task.InputTensor)
	case externalapi.OperationKindElementwiseArithmetic:
		return evaluateElementwiseArithmetic(task.InputTensor)
	default:
		return nil, errors.Errorf("unknown operation kind %d", task.OperationKind)
	}
}

// Equal reports whether claimed matches reference under the tolerance
// rule for its element type: exact for ElementTypeInt32, bounded to
// ProtocolEpsilon for ElementTypeFloat32. It does not trust claimed's
// ElementType label; it compares against reference's.
func Equal(reference, claimed *externalapi.DomainTensor) bool {
	if claimed == nil {
		return false
	}
	if !shapeEqual(reference.Shape, claimed.Shape) {
		return false
	}
	switch reference.ElementType {
	case externalapi.ElementTypeInt32:
		if claimed.ElementType != externalapi.ElementTypeInt32 {
			return false
		}
		if len(reference.IntElements) != len(claimed.IntElements) {
			return false
		}
		for i, v := range reference.IntElements {
			if v != claimed.IntElements[i] {
				return false
			}
		}
		return true
	case externalapi.ElementTypeFloat32:
		if claimed.ElementType != externalapi.ElementTypeFloat32 {
			return false
		}
		if len(reference.FloatElements) != len(claimed.FloatElements) {
			return false
		}
		for i, v := range reference.FloatElements {
			diff := v - claimed.FloatElements[i]
			if diff < 0 {
				diff = -diff
			}
			if diff > ProtocolEpsilon {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func shapeEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}

func evaluateMatrixMultiply(in *externalapi.DomainTensor) (*externalapi.DomainTensor, error) {
	if len(in.Shape) != 3 {
		return nil, errors.Errorf("matrix-multiply input must have shape [rowsA, colsA, colsB], got rank %d", len(in.Shape))
	}
	rowsA, colsA, colsB := in.Shape[0], in.Shape[1], in.Shape[2]
	aLen, bLen := rowsA*colsA, colsA*colsB

	switch in.ElementType {
	case externalapi.ElementTypeInt32:
		if uint64(len(in.IntElements)) != aLen+bLen {
			return nil, errors.Errorf("matrix-multiply element count %d does not match shape", len(in.IntElements))
		}
		a, b := in.IntElements[:aLen], in.IntElements[aLen:]
		out := make([]int32, rowsA*colsB)
		for i := uint64(0); i < rowsA; i++ {
			for j := uint64(0); j < colsB; j++ {
				var sum int64
				for k := uint64(0); k < colsA; k++ {
					sum += int64(a[i*colsA+k]) * int64(b[k*colsB+j])
				}
				out[i*colsB+j] = int32(sum)
			}
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{rowsA, colsB}, IntElements: out}, nil
	case externalapi.ElementTypeFloat32:
		if uint64(len(in.FloatElements)) != aLen+bLen {
			return nil, errors.Errorf("matrix-multiply element count %d does not match shape", len(in.FloatElements))
		}
		a, b := in.FloatElements[:aLen], in.FloatElements[aLen:]
		out := make([]float32, rowsA*colsB)
		for i := uint64(0); i < rowsA; i++ {
			for j := uint64(0); j < colsB; j++ {
				var sum float32
				for k := uint64(0); k < colsA; k++ {
					// Explicit multiply then add: no fused multiply-add.
					product := a[i*colsA+k] * b[k*colsB+j]
					sum = sum + product
				}
				out[i*colsB+j] = sum
			}
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{rowsA, colsB}, FloatElements: out}, nil
	default:
		return nil, errors.Errorf("unknown tensor element type %d", in.ElementType)
	}
}

func evaluateConvolution1D(in *externalapi.DomainTensor) (*externalapi.DomainTensor, error) {
	if len(in.Shape) != 2 {
		return nil, errors.Errorf("convolution-1d input must have shape [signalLength, kernelLength], got rank %d", len(in.Shape))
	}
	signalLen, kernelLen := in.Shape[0], in.Shape[1]
	if kernelLen == 0 || kernelLen > signalLen {
		return nil, errors.Errorf("convolution-1d kernel length %d invalid for signal length %d", kernelLen, signalLen)
	}
	outLen := signalLen - kernelLen + 1

	switch in.ElementType {
	case externalapi.ElementTypeInt32:
		if uint64(len(in.IntElements)) != signalLen+kernelLen {
			return nil, errors.Errorf("convolution-1d element count %d does not match shape", len(in.IntElements))
		}
		signal, kernel := in.IntElements[:signalLen], in.IntElements[signalLen:]
		out := make([]int32, outLen)
		for i := uint64(0); i < outLen; i++ {
			var sum int64
			for k := uint64(0); k < kernelLen; k++ {
				sum += int64(signal[i+k]) * int64(kernel[k])
			}
			out[i] = int32(sum)
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{outLen}, IntElements: out}, nil
	case externalapi.ElementTypeFloat32:
		if uint64(len(in.FloatElements)) != signalLen+kernelLen {
			return nil, errors.Errorf("convolution-1d element count %d does not match shape", len(in.FloatElements))
		}
		signal, kernel := in.FloatElements[:signalLen], in.FloatElements[signalLen:]
		out := make([]float32, outLen)
		for i := uint64(0); i < outLen; i++ {
			var sum float32
			for k := uint64(0); k < kernelLen; k++ {
				product := signal[i+k] * kernel[k]
				sum = sum + product
			}
			out[i] = sum
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{outLen}, FloatElements: out}, nil
	default:
		return nil, errors.Errorf("unknown tensor element type %d", in.ElementType)
	}
}

func evaluateElementwiseActivation(in *externalapi.DomainTensor) (*externalapi.DomainTensor, error) {
	if len(in.Shape) != 1 {
		return nil, errors.Errorf("elementwise-activation input must have shape [n], got rank %d", len(in.Shape))
	}
	n := in.Shape[0]

	switch in.ElementType {
	case externalapi.ElementTypeInt32:
		if uint64(len(in.IntElements)) != n {
			return nil, errors.Errorf("elementwise-activation element count %d does not match shape", len(in.IntElements))
		}
		out := make([]int32, n)
		for i, v := range in.IntElements {
			if v > 0 {
				out[i] = v
			}
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{n}, IntElements: out}, nil
	case externalapi.ElementTypeFloat32:
		if uint64(len(in.FloatElements)) != n {
			return nil, errors.Errorf("elementwise-activation element count %d does not match shape", len(in.FloatElements))
		}
		out := make([]float32, n)
		for i, v := range in.FloatElements {
			if v > 0 {
				out[i] = v
			}
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{n}, FloatElements: out}, nil
	default:
		return nil, errors.Errorf("unknown tensor element type %d", in.ElementType)
	}
}

func evaluateElementwiseArithmetic(in *externalapi.DomainTensor) (*externalapi.DomainTensor, error) {
	if len(in.Shape) != 1 {
		return nil, errors.Errorf("elementwise-arithmetic input must have shape [n], got rank %d", len(in.Shape))
	}
	n := in.Shape[0]

	switch in.ElementType {
	case externalapi.ElementTypeInt32:
		if uint64(len(in.IntElements)) != 2*n {
			return nil, errors.Errorf("elementwise-arithmetic element count %d does not match shape", len(in.IntElements))
		}
		left, right := in.IntElements[:n], in.IntElements[n:]
		out := make([]int32, n)
		for i := range out {
			out[i] = left[i] + right[i]
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{n}, IntElements: out}, nil
	case externalapi.ElementTypeFloat32:
		if uint64(len(in.FloatElements)) != 2*n {
			return nil, errors.Errorf("elementwise-arithmetic element count %d does not match shape", len(in.FloatElements))
		}
		left, right := in.FloatElements[:n], in.FloatElements[n:]
		out := make([]float32, n)
		for i := range out {
			out[i] = left[i] + right[i]
		}
		return &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{n}, FloatElements: out}, nil
	default:
		return nil, errors.Errorf("unknown tensor element type %d", in.ElementType)
	}
}
