// Package taskstore implements model.TaskStore, the K/<task_id> column
// family holding tensor task records across their open/claimed/
// finalized/expired lifecycle. There is no equivalent kaspad package for this
// concern; the prefix-scan idiom follows the one kaspad uses for
// other column families, but scans directly since the task table is
// small enough that a per-creator secondary index would be premature.
package taskstore

import (
	"bytes"

	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

type taskStore struct{}

// New instantiates a new TaskStore.
func New() model.TaskStore {
	return &taskStore{}
}

func (ts *taskStore) Put(dbContext model.DBWriter, task *externalapi.DomainTensorTask) error {
	var buf bytes.Buffer
	if err := codec.EncodeTask(&buf, task); err != nil {
		return err
	}
	return dbContext.Put(database.TaskKey(task.TaskID.ByteSlice()), buf.Bytes())
}

func (ts *taskStore) Get(dbContext model.DBReader, taskID *externalapi.DomainTaskID) (*externalapi.DomainTensorTask, error) {
	taskBytes, err := dbContext.Get(database.TaskKey(taskID.ByteSlice()))
	if err != nil {
		return nil, err
	}
	return codec.DecodeTask(bytes.NewReader(taskBytes))
}

func (ts *taskStore) Has(dbContext model.DBReader, taskID *externalapi.DomainTaskID) (bool, error) {
	return dbContext.Has(database.TaskKey(taskID.ByteSlice()))
}

func (ts *taskStore) Delete(dbContext model.DBWriter, taskID *externalapi.DomainTaskID) error {
	return dbContext.Delete(database.TaskKey(taskID.ByteSlice()))
}

func (ts *taskStore) ByCreator(dbContext model.ScanningReader, creator externalapi.DomainAddress) ([]*externalapi.DomainTensorTask, error) {
	all, err := ts.scanAll(dbContext)
	if err != nil {
		return nil, err
	}
	filtered := all[:0]
	for _, task := range all {
		if task.Creator.Equal(creator) {
			filtered = append(filtered, task)
		}
	}
	return filtered, nil
}

func (ts *taskStore) AllOpen(dbContext model.ScanningReader) ([]*externalapi.DomainTensorTask, error) {
	all, err := ts.scanAll(dbContext)
	if err != nil {
		return nil, err
	}
	open := all[:0]
	for _, task := range all {
		if task.State == externalapi.TaskStateOpen {
			open = append(open, task)
		}
	}
	return open, nil
}

// All returns every task in the table regardless of lifecycle state, used
// by the consensus state manager to reset the task table to a checkpoint's
// snapshot before a reorg's forward replay.
func (ts *taskStore) All(dbContext model.ScanningReader) ([]*externalapi.DomainTensorTask, error) {
	return ts.scanAll(dbContext)
}

func (ts *taskStore) scanAll(dbContext model.ScanningReader) ([]*externalapi.DomainTensorTask, error) {
	c, err := dbContext.Cursor(database.TaskKey(nil))
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var tasks []*externalapi.DomainTensorTask
	for c.Next() {
		valueBytes, err := c.Value()
		if err != nil {
			return nil, err
		}
		task, err := codec.DecodeTask(bytes.NewReader(valueBytes))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
