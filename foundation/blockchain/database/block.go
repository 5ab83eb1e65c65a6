package database

import (
	"context"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	jsoniter "github.com/json-iterator/go"
)

// progressInterval is the number of attempts between mining progress events.
const progressInterval = 1_000_000

// =============================================================================

// BlockHeader represents the fields covered by the block hash. Transactions
// are summarized by the merkle root so the chain can be checked with headers
// alone.
type BlockHeader struct {
	Index        uint64 `json:"index"`         // Block number in the chain.
	MerkleRoot   string `json:"merkle_root"`   // Bitcoin: Merkle tree root hash for the transactions in this block.
	PreviousHash string `json:"previous_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp    int64  `json:"timestamp"`     // Bitcoin: Time the block was created.
	Nonce        uint64 `json:"nonce"`         // Bitcoin: Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64
	Trans        []Tx
	PreviousHash string
	TimeStamp    int64
	Nonce        uint64
	MerkleRoot   string
	Hash         string
	tree         *merkle.Tree
}

// NewBlock constructs a block, computing the merkle root over the transaction
// ids and the hash over the header.
func NewBlock(index uint64, trans []Tx, previousHash string, timestamp int64) Block {
	b := Block{
		Index:        index,
		Trans:        trans,
		PreviousHash: previousHash,
		TimeStamp:    timestamp,
	}

	b.tree = merkle.New(leafIDs(trans))
	b.MerkleRoot = b.tree.RootHex()
	b.Hash = b.CalculateHash()

	return b
}

// leafIDs returns the transaction ids, falling back to a content hash when a
// transaction carries no id.
func leafIDs(trans []Tx) []string {
	ids := make([]string, len(trans))
	for i, tx := range trans {
		ids[i] = tx.ID
		if ids[i] == "" {
			ids[i] = hash.Hash(tx)
		}
	}

	return ids
}

// Header returns the fields covered by the block hash.
func (b Block) Header() BlockHeader {
	return BlockHeader{
		Index:        b.Index,
		MerkleRoot:   b.MerkleRoot,
		PreviousHash: b.PreviousHash,
		TimeStamp:    b.TimeStamp,
		Nonce:        b.Nonce,
	}
}

// CalculateHash recomputes the hash of the block header.
func (b Block) CalculateHash() string {
	return hash.Hash(b.Header())
}

// ComputeMerkleRoot recomputes the merkle root from the transactions.
func (b Block) ComputeMerkleRoot() string {
	return merkle.New(leafIDs(b.Trans)).RootHex()
}

// AddTransaction appends the transaction, then recomputes the merkle root and
// the hash. A mined block loses its proof of work.
func (b *Block) AddTransaction(tx Tx) {
	trans := make([]Tx, len(b.Trans), len(b.Trans)+1)
	copy(trans, b.Trans)
	b.Trans = append(trans, tx)

	b.tree = merkle.New(leafIDs(b.Trans))
	b.MerkleRoot = b.tree.RootHex()
	b.Hash = b.CalculateHash()
}

// Mine does the work of finding a nonce that produces a hash with the
// required number of leading zeros. The context is checked on every attempt
// so a competing block or a shutdown can stop the search.
func (b *Block) Mine(ctx context.Context, difficulty uint, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: Mine: MINING: started: blk[%d] difficulty[%d] trans[%d]", b.Index, difficulty, len(b.Trans))
	defer ev("database: Mine: MINING: completed: blk[%d]", b.Index)

	for _, tx := range b.Trans {
		ev("database: Mine: MINING: %s", tx)
	}

	b.Hash = b.CalculateHash()

	var attempts uint64
	for !hash.HasPrefixZeros(b.Hash, int(difficulty)) {
		if err := ctx.Err(); err != nil {
			ev("database: Mine: MINING: CANCELLED: attempts[%d]", attempts)
			return err
		}

		attempts++
		if attempts%progressInterval == 0 {
			ev("database: Mine: MINING: attempts[%d]", attempts)
		}

		b.Nonce++
		b.Hash = b.CalculateHash()
	}

	ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.PreviousHash, b.Hash, attempts)

	return nil
}

// IsSolved reports whether the stored hash satisfies the difficulty.
func (b Block) IsSolved(difficulty uint) bool {
	return hash.HasPrefixZeros(b.Hash, int(difficulty))
}

// Validate takes a block and validates it to be appended after the previous
// block under the difficulty.
func (b Block) Validate(previous Block, difficulty uint, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: Validate: blk[%d]: check: block index is the next index", b.Index)

	if b.Index != previous.Index+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrInvalidBlockIndex, b.Index, previous.Index+1)
	}

	ev("database: Validate: blk[%d]: check: previous hash does match previous block", b.Index)

	if b.PreviousHash != previous.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidPreviousHash, b.PreviousHash, previous.Hash)
	}

	return b.ValidateContent(difficulty, ev)
}

// ValidateContent checks the parts of the block that don't depend on its
// position in the chain: the hash, the proof of work, the merkle root and the
// shape of every transaction.
func (b Block) ValidateContent(difficulty uint, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: Validate: blk[%d]: check: block hash matches header", b.Index)

	if calc := b.CalculateHash(); b.Hash != calc {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidBlockHash, b.Hash, calc)
	}

	ev("database: Validate: blk[%d]: check: block hash has been solved", b.Index)

	if !b.IsSolved(difficulty) {
		return fmt.Errorf("%w: %s, difficulty %d", ErrInsufficientProofOfWork, b.Hash, difficulty)
	}

	ev("database: Validate: blk[%d]: check: merkle root does match transactions", b.Index)

	if calc := b.ComputeMerkleRoot(); b.MerkleRoot != calc {
		return fmt.Errorf("%w: got %s, exp %s", ErrMerkleRootMismatch, b.MerkleRoot, calc)
	}

	ev("database: Validate: blk[%d]: check: transactions are well formed", b.Index)

	for i, tx := range b.Trans {
		if err := tx.ValidateShape(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	return nil
}

// =============================================================================

func (b *Block) merkleTree() *merkle.Tree {
	if b.tree == nil {
		b.tree = merkle.New(leafIDs(b.Trans))
	}

	return b.tree
}

// MerkleProof returns the inclusion proof for the transaction.
func (b Block) MerkleProof(txID string) (merkle.Proof, error) {
	return b.merkleTree().Proof(txID)
}

// VerifyTransactionInclusion checks the proof belongs to this block and the
// transaction before verifying the path itself.
func (b Block) VerifyTransactionInclusion(txID string, proof merkle.Proof) bool {
	if proof.MerkleRoot != b.MerkleRoot || proof.TargetHash != txID {
		return false
	}

	return merkle.VerifyProof(proof)
}

// MerkleStats returns the statistics of the block's merkle tree.
func (b Block) MerkleStats() merkle.Stats {
	return b.merkleTree().Stats()
}

// Size returns the size in bytes of the block record.
func (b Block) Size() int {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(NewBlockData(b))
	if err != nil {
		return 0
	}

	return len(data)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("blk[%d] trans[%d] hash[%s] prev[%s]", b.Index, len(b.Trans), b.Hash, b.PreviousHash)
}

// =============================================================================

// BlockData represents what is written to storage and sent over the wire.
type BlockData struct {
	Index        uint64 `json:"index"`
	Trans        []Tx   `json:"transactions"`
	MerkleRoot   string `json:"merkle_root"`
	PreviousHash string `json:"previous_hash"`
	TimeStamp    int64  `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	trans := block.Trans
	if trans == nil {
		trans = []Tx{}
	}

	return BlockData{
		Index:        block.Index,
		Trans:        trans,
		MerkleRoot:   block.MerkleRoot,
		PreviousHash: block.PreviousHash,
		TimeStamp:    block.TimeStamp,
		Nonce:        block.Nonce,
		Hash:         block.Hash,
	}
}

// ToBlock converts a BlockData into a Block. The stored merkle root and hash
// are kept as is so tampering remains detectable by validation.
func ToBlock(data BlockData) Block {
	return Block{
		Index:        data.Index,
		Trans:        data.Trans,
		PreviousHash: data.PreviousHash,
		TimeStamp:    data.TimeStamp,
		Nonce:        data.Nonce,
		MerkleRoot:   data.MerkleRoot,
		Hash:         data.Hash,
		tree:         merkle.New(leafIDs(data.Trans)),
	}
}
