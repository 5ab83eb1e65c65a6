package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
)

// ProofRecord is a merkle proof for one confirmed transaction.
type ProofRecord struct {
	BlockIndex uint64       `json:"block_index"`
	TxID       string       `json:"transaction_id"`
	Proof      merkle.Proof `json:"proof"`
}

// ProofExport bundles the chain summary with a proof for every confirmed
// transaction so a light client can verify inclusion offline.
type ProofExport struct {
	ChainInfo ChainInfo     `json:"chain_info"`
	Proofs    []ProofRecord `json:"proofs"`
}

// MerkleProofForTransaction locates the block holding the transaction and
// returns its index with the inclusion proof.
func (s *State) MerkleProofForTransaction(txID string) (uint64, merkle.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, exists := s.txIndex[txID]
	if !exists {
		return 0, merkle.Proof{}, fmt.Errorf("%w: transaction %s", ErrNotFound, txID)
	}

	proof, err := s.chain[loc.block].MerkleProof(txID)
	if err != nil {
		return 0, merkle.Proof{}, err
	}

	return loc.block, proof, nil
}

// VerifyTransactionWithMerkleProof checks the proof against the merkle root
// recorded in the block at the index.
func (s *State) VerifyTransactionWithMerkleProof(txID string, blockIndex uint64, proof merkle.Proof) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if blockIndex >= uint64(len(s.chain)) {
		return false
	}

	return s.chain[blockIndex].VerifyTransactionInclusion(txID, proof)
}

// BlockMerkleStats returns the merkle tree statistics of the block.
func (s *State) BlockMerkleStats(blockIndex uint64) (merkle.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if blockIndex >= uint64(len(s.chain)) {
		return merkle.Stats{}, fmt.Errorf("%w: block %d", ErrNotFound, blockIndex)
	}

	return s.chain[blockIndex].MerkleStats(), nil
}

// ExportMerkleProofs returns a proof for every confirmed transaction.
func (s *State) ExportMerkleProofs() (ProofExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export := ProofExport{
		ChainInfo: s.chainInfo(),
		Proofs:    []ProofRecord{},
	}

	for _, block := range s.chain {
		for _, tx := range block.Trans {
			proof, err := block.MerkleProof(tx.ID)
			if err != nil {
				return ProofExport{}, fmt.Errorf("block %d tx %s: %w", block.Index, tx.ID, err)
			}

			export.Proofs = append(export.Proofs, ProofRecord{
				BlockIndex: block.Index,
				TxID:       tx.ID,
				Proof:      proof,
			})
		}
	}

	return export, nil
}

// SPV constructs a light client verifier loaded with every block header.
func (s *State) SPV() *merkle.SPV {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spv := merkle.NewSPV()
	for _, block := range s.chain {
		spv.AddHeader(block.Hash, merkle.Header{
			MerkleRoot:  block.MerkleRoot,
			BlockHeight: block.Index,
			TimeStamp:   block.TimeStamp,
		})
	}

	return spv
}
