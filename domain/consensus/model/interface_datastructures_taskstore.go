package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// TaskStore maintains tensor task records (the K/<task_id> column family).
type TaskStore interface {
	Put(dbContext DBWriter, task *externalapi.DomainTensorTask) error
	Get(dbContext DBReader, taskID *externalapi.DomainTaskID) (*externalapi.DomainTensorTask, error)
	Has(dbContext DBReader, taskID *externalapi.DomainTaskID) (bool, error)
	Delete(dbContext DBWriter, taskID *externalapi.DomainTaskID) error
	// ByCreator lists a creator's tasks and AllOpen lists every open task
	// (used by task expiry). Task creation enforces no per-creator or
	// per-height cap on the task table.
	ByCreator(dbContext ScanningReader, creator externalapi.DomainAddress) ([]*externalapi.DomainTensorTask, error)
	AllOpen(dbContext ScanningReader) ([]*externalapi.DomainTensorTask, error)
	// All returns every task regardless of state, used to reset the task
	// table to a checkpoint snapshot ahead of a reorg's forward replay.
	All(dbContext ScanningReader) ([]*externalapi.DomainTensorTask, error)
}
