package model

import "github.com/tensorchain/tensorchain/domain/consensus/database"

// DBReader is the read-only database handle most processes depend on.
type DBReader = database.DBReader

// DBWriter extends DBReader with single-key writes.
type DBWriter = database.DBWriter

// ScanningReader extends DBReader with prefix iteration.
type ScanningReader = database.ScanningReader

// StagingBatch accumulates a set of writes that must become visible
// atomically.
type StagingBatch = database.StagingBatch
