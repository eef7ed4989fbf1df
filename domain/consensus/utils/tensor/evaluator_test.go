package tensor

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func TestEvaluateMatrixMultiplyInt32(t *testing.T) {
	// A = [[1, 2], [3, 4]], B = [[5, 6], [7, 8]]
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindMatrixMultiply,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{2, 2, 2},
			IntElements: []int32{1, 2, 3, 4, 5, 6, 7, 8},
		},
	}

	got, err := Evaluate(task)
	if err != nil {
		t.Fatalf("Evaluate: unexpected error: %+v", err)
	}
	want := &externalapi.DomainTensor{
		ElementType: externalapi.ElementTypeInt32,
		Shape:       []uint64{2, 2},
		IntElements: []int32{19, 22, 43, 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate(matrix-multiply): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEvaluateMatrixMultiplyRejectsBadRank(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindMatrixMultiply,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{4},
			IntElements: []int32{1, 2, 3, 4},
		},
	}
	if _, err := Evaluate(task); err == nil {
		t.Errorf("Evaluate(matrix-multiply): expected error for rank-1 shape, got nil")
	}
}

func TestEvaluateConvolution1DInt32(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindConvolution1D,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{4, 2},
			IntElements: []int32{1, 2, 3, 4, 1, 1},
		},
	}

	got, err := Evaluate(task)
	if err != nil {
		t.Fatalf("Evaluate: unexpected error: %+v", err)
	}
	want := &externalapi.DomainTensor{
		ElementType: externalapi.ElementTypeInt32,
		Shape:       []uint64{3},
		IntElements: []int32{3, 5, 7},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate(convolution-1d): got %v, want %v", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestEvaluateConvolution1DRejectsOversizedKernel(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindConvolution1D,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{2, 3},
			IntElements: []int32{1, 2, 1, 1, 1},
		},
	}
	if _, err := Evaluate(task); err == nil {
		t.Errorf("Evaluate(convolution-1d): expected error for kernel longer than signal, got nil")
	}
}

func TestEvaluateElementwiseActivationReLU(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindElementwiseActivation,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{4},
			IntElements: []int32{-2, -1, 0, 3},
		},
	}

	got, err := Evaluate(task)
	if err != nil {
		t.Fatalf("Evaluate: unexpected error: %+v", err)
	}
	want := []int32{0, 0, 0, 3}
	if !reflect.DeepEqual(got.IntElements, want) {
		t.Errorf("Evaluate(elementwise-activation): got %v, want %v", got.IntElements, want)
	}
}

func TestEvaluateElementwiseArithmeticInt32(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKindElementwiseArithmetic,
		InputTensor: &externalapi.DomainTensor{
			ElementType: externalapi.ElementTypeInt32,
			Shape:       []uint64{3},
			IntElements: []int32{1, 2, 3, 10, 20, 30},
		},
	}

	got, err := Evaluate(task)
	if err != nil {
		t.Fatalf("Evaluate: unexpected error: %+v", err)
	}
	want := []int32{11, 22, 33}
	if !reflect.DeepEqual(got.IntElements, want) {
		t.Errorf("Evaluate(elementwise-arithmetic): got %v, want %v", got.IntElements, want)
	}
}

func TestEvaluateRejectsUnknownOperationKind(t *testing.T) {
	task := &externalapi.DomainTensorTask{
		OperationKind: externalapi.OperationKind(0xff),
		InputTensor:   &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{1}, IntElements: []int32{1}},
	}
	if _, err := Evaluate(task); err == nil {
		t.Errorf("Evaluate: expected error for unknown operation kind, got nil")
	}
}

func TestEqualInt32ExactComparison(t *testing.T) {
	reference := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{2}, IntElements: []int32{1, 2}}
	same := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{2}, IntElements: []int32{1, 2}}
	different := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{2}, IntElements: []int32{1, 3}}

	if !Equal(reference, same) {
		t.Errorf("Equal: identical int32 tensors compared unequal")
	}
	if Equal(reference, different) {
		t.Errorf("Equal: differing int32 tensors compared equal")
	}
}

func TestEqualFloat32WithinEpsilon(t *testing.T) {
	reference := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{1}, FloatElements: []float32{1.0}}
	withinEpsilon := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{1}, FloatElements: []float32{1.0 + ProtocolEpsilon/2}}
	beyondEpsilon := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeFloat32, Shape: []uint64{1}, FloatElements: []float32{1.0 + ProtocolEpsilon*10}}

	if !Equal(reference, withinEpsilon) {
		t.Errorf("Equal: a float32 claim within ProtocolEpsilon compared unequal")
	}
	if Equal(reference, beyondEpsilon) {
		t.Errorf("Equal: a float32 claim beyond ProtocolEpsilon compared equal")
	}
}

func TestEqualRejectsMismatchedShape(t *testing.T) {
	reference := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{2}, IntElements: []int32{1, 2}}
	claimed := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{1, 2}, IntElements: []int32{1, 2}}
	if Equal(reference, claimed) {
		t.Errorf("Equal: tensors with different shapes compared equal")
	}
}

func TestEqualRejectsNilClaim(t *testing.T) {
	reference := &externalapi.DomainTensor{ElementType: externalapi.ElementTypeInt32, Shape: []uint64{1}, IntElements: []int32{1}}
	if Equal(reference, nil) {
		t.Errorf("Equal: a nil claim compared equal to a reference")
	}
}
