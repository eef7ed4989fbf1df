package externalapi

// OperationKind enumerates the tensor computations a task may pose. Each
// kind has a stable one-byte wire tag and a deterministic reference
// evaluator in domain/consensus/utils/tensor. Unknown tags are rejected as
// invalid; adding a kind is a hard fork.
type OperationKind uint8

const (
	// OperationKindMatrixMultiply computes the matrix product of two
	// matrices packed one after the other in InputTensor's element slice,
	// with Shape = [rowsA, colsA, colsB].
	OperationKindMatrixMultiply OperationKind = iota
	// OperationKindConvolution1D computes a 1-D convolution of a signal
	// against a kernel, both packed in InputTensor's element slice, with
	// Shape = [signalLength, kernelLength].
	OperationKindConvolution1D
	// OperationKindElementwiseActivation applies a fixed activation
	// function (ReLU) element-wise.
	OperationKindElementwiseActivation
	// OperationKindElementwiseArithmetic adds two equally-shaped tensors
	// element-wise.
	OperationKindElementwiseArithmetic
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindMatrixMultiply:
		return "matrix-multiply"
	case OperationKindConvolution1D:
		return "convolution-1d"
	case OperationKindElementwiseActivation:
		return "elementwise-activation"
	case OperationKindElementwiseArithmetic:
		return "elementwise-arithmetic"
	}
	return "unknown-operation-kind"
}

// ElementType distinguishes the two wire-level tensor element encodings.
type ElementType uint8

const (
	// ElementTypeInt32 elements are compared for exact equality.
	ElementTypeInt32 ElementType = iota
	// ElementTypeFloat32 elements are compared within ProtocolEpsilon.
	ElementTypeFloat32
)

// DomainTensor is a shaped array of fixed-point or IEEE-754 values. Shape
// lists the dimensions; the values are row-major in IntElements or
// FloatElements according to ElementType. A task's InputTensor packs its
// operands as domain/consensus/utils/tensor describes, so its element count
// need not equal the product of Shape.
type DomainTensor struct {
	ElementType ElementType
	Shape       []uint64
	// IntElements holds values when ElementType is ElementTypeInt32.
	IntElements []int32
	// FloatElements holds values when ElementType is ElementTypeFloat32.
	FloatElements []float32
}

// ElementCount returns the product of the tensor's dimensions.
func (t *DomainTensor) ElementCount() uint64 {
	count := uint64(1)
	for _, dim := range t.Shape {
		count *= dim
	}
	return count
}

// Clone returns a deep copy of the tensor.
func (t *DomainTensor) Clone() *DomainTensor {
	clone := &DomainTensor{ElementType: t.ElementType}
	clone.Shape = make([]uint64, len(t.Shape))
	copy(clone.Shape, t.Shape)
	if t.IntElements != nil {
		clone.IntElements = make([]int32, len(t.IntElements))
		copy(clone.IntElements, t.IntElements)
	}
	if t.FloatElements != nil {
		clone.FloatElements = make([]float32, len(t.FloatElements))
		copy(clone.FloatElements, t.FloatElements)
	}
	return clone
}

// TaskState is the lifecycle state of a tensor task.
type TaskState uint8

const (
	TaskStateOpen TaskState = iota
	TaskStateClaimed
	TaskStateFinalized
	TaskStateExpired
)

func (s TaskState) String() string {
	switch s {
	case TaskStateOpen:
		return "open"
	case TaskStateClaimed:
		return "claimed"
	case TaskStateFinalized:
		return "finalized"
	case TaskStateExpired:
		return "expired"
	}
	return "unknown-task-state"
}

// DomainTaskID identifies a tensor task: the digest of its creation record.
type DomainTaskID DomainHash

// String returns the task ID as a hexadecimal string.
func (id *DomainTaskID) String() string {
	return (*DomainHash)(id).String()
}

// ByteSlice returns a slice view of the task ID's 32 bytes, for use as a
// database key.
func (id *DomainTaskID) ByteSlice() []byte {
	return (*DomainHash)(id).ByteSlice()
}

// DomainTensorTask is the domain representation of a tensor computation
// task created by a task-submission transaction.
type DomainTensorTask struct {
	TaskID             *DomainTaskID
	Creator            DomainAddress
	OperationKind      OperationKind
	InputTensor        *DomainTensor
	ExpectedOutputHash *DomainHash // optional; nil when verification requires replay
	// DifficultyReduction is a rational in [0, 1), represented as a
	// numerator over DifficultyReductionDenominator.
	DifficultyReductionNumerator uint64
	RewardAmount                 uint64
	DeadlineHeight               uint64
	State                        TaskState
}

// DifficultyReductionDenominator is the fixed denominator for
// DifficultyReductionNumerator, giving difficulty reductions a resolution
// of one part in 1,000,000.
const DifficultyReductionDenominator = 1_000_000

// Clone returns a deep copy of the task.
func (task *DomainTensorTask) Clone() *DomainTensorTask {
	clone := *task
	if task.TaskID != nil {
		id := *task.TaskID
		clone.TaskID = &id
	}
	clone.Creator = task.Creator.Clone()
	clone.InputTensor = task.InputTensor.Clone()
	clone.ExpectedOutputHash = task.ExpectedOutputHash.Clone()
	return &clone
}

// DomainTaskClaim is a miner's asserted solution to a tensor task, as
// included in a block's claim list.
type DomainTaskClaim struct {
	TaskID     *DomainTaskID
	Miner      DomainAddress
	Output     *DomainTensor
	OutputHash *DomainHash
	ClaimNonce uint64
}

// Clone returns a deep copy of the claim.
func (claim *DomainTaskClaim) Clone() *DomainTaskClaim {
	clone := *claim
	if claim.TaskID != nil {
		id := *claim.TaskID
		clone.TaskID = &id
	}
	clone.Miner = claim.Miner.Clone()
	if claim.Output != nil {
		clone.Output = claim.Output.Clone()
	}
	clone.OutputHash = claim.OutputHash.Clone()
	return &clone
}
