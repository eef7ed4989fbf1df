package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// DifficultyManager resolves the required compact difficulty target for
// the block extending parentHash, implementing the retargeting rule
// (every W blocks, clamped to [old/F, old*F]).
type DifficultyManager interface {
	RequiredDifficulty(dbContext DBReader, parentHash *externalapi.DomainHash) (uint32, error)
}
