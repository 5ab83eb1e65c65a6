// Package merkle provides an implementation of a merkle tree over transaction
// ids for validation support for the blockchain. Nodes live in a flat arena
// and reference each other by index.
package merkle

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/hash"
)

// none marks a missing child or parent reference.
const none = -1

// Node represents a node in the tree. Leaf nodes carry the original id in
// Data, internal nodes only carry the combined hash.
type Node struct {
	Hash   string
	Data   string
	Left   int
	Right  int
	Parent int
	Leaf   bool
}

// Tree represents a merkle tree built over a set of ids.
type Tree struct {
	nodes        []Node
	leaves       []int
	root         int
	hashStrategy func(string) string
}

// WithHashStrategy is used to change the default hash strategy of using a
// double sha256 when constructing a new tree.
func WithHashStrategy(hashStrategy func(string) string) func(t *Tree) {
	return func(t *Tree) {
		t.hashStrategy = hashStrategy
	}
}

// New constructs a merkle tree from the specified ids. Each id is hashed to
// form a leaf. When a level holds an odd number of nodes the last node is
// paired with itself, which is the classic Bitcoin construction.
func New(ids []string, options ...func(t *Tree)) *Tree {
	t := Tree{
		root:         none,
		hashStrategy: hash.DoubleHash,
	}

	for _, option := range options {
		option(&t)
	}

	t.generate(ids)

	return &t
}

// Rebuild reconstructs the tree with a new set of ids.
func (t *Tree) Rebuild(ids []string) {
	t.generate(ids)
}

func (t *Tree) generate(ids []string) {
	t.nodes = make([]Node, 0, 2*len(ids))
	t.leaves = make([]int, 0, len(ids))
	t.root = none

	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		t.leaves = append(t.leaves, t.add(Node{
			Hash:   t.hashStrategy(id),
			Data:   id,
			Left:   none,
			Right:  none,
			Parent: none,
			Leaf:   true,
		}))
	}

	level := append([]int(nil), t.leaves...)
	for len(level) > 1 {
		next := make([]int, 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}

			parent := t.add(Node{
				Hash:   t.hashStrategy(t.nodes[left].Hash + t.nodes[right].Hash),
				Left:   left,
				Right:  right,
				Parent: none,
			})

			t.nodes[left].Parent = parent
			t.nodes[right].Parent = parent

			next = append(next, parent)
		}

		level = next
	}

	t.root = level[0]
}

func (t *Tree) add(n Node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// =============================================================================

// Root returns the merkle root hash. The boolean is false for an empty tree.
func (t *Tree) Root() (string, bool) {
	if t.root == none {
		return "", false
	}

	return t.nodes[t.root].Hash, true
}

// RootHex returns the merkle root hash or the zero hash for an empty tree.
func (t *Tree) RootHex() string {
	root, ok := t.Root()
	if !ok {
		return hash.ZeroHash
	}

	return root
}

// Values returns the ids the tree was built from in leaf order.
func (t *Tree) Values() []string {
	values := make([]string, len(t.leaves))
	for i, idx := range t.leaves {
		values[i] = t.nodes[idx].Data
	}

	return values
}

// LeafCount returns the number of leaves in the tree.
func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// Height returns the number of levels from a leaf to the root, counting both.
// An empty tree has a height of zero.
func (t *Tree) Height() int {
	if t.root == none {
		return 0
	}

	height := 1
	for idx := t.leaves[0]; t.nodes[idx].Parent != none; idx = t.nodes[idx].Parent {
		height++
	}

	return height
}

// Stats summarizes the shape of the tree.
type Stats struct {
	TransactionCount int    `json:"transaction_count"`
	TreeHeight       int    `json:"tree_height"`
	MerkleRoot       string `json:"merkle_root"`
	LeafCount        int    `json:"leaf_count"`
}

// Stats returns the statistics for the tree.
func (t *Tree) Stats() Stats {
	root, _ := t.Root()

	return Stats{
		TransactionCount: len(t.leaves),
		TreeHeight:       t.Height(),
		MerkleRoot:       root,
		LeafCount:        len(t.leaves),
	}
}

// String returns a short description of the tree.
func (t *Tree) String() string {
	return fmt.Sprintf("merkle: leaves[%d] height[%d] root[%s]", t.LeafCount(), t.Height(), t.RootHex())
}

// =============================================================================

// Proof is an ordered sibling path from a leaf to the root. A true direction
// means the sibling sits on the right of the running hash.
type Proof struct {
	TargetHash      string   `json:"target_hash"`
	MerkleRoot      string   `json:"merkle_root"`
	ProofHashes     []string `json:"proof_hashes"`
	ProofDirections []bool   `json:"proof_directions"`
}

// ErrNotFound is returned when a proof is requested for an unknown id.
var ErrNotFound = errors.New("id not found in tree")

// Proof returns the inclusion proof for the first leaf carrying the id.
func (t *Tree) Proof(id string) (Proof, error) {
	target := none
	for _, idx := range t.leaves {
		if t.nodes[idx].Data == id {
			target = idx
			break
		}
	}

	if target == none {
		return Proof{}, ErrNotFound
	}

	proof := Proof{
		TargetHash:      id,
		MerkleRoot:      t.nodes[t.root].Hash,
		ProofHashes:     []string{},
		ProofDirections: []bool{},
	}

	for idx := target; t.nodes[idx].Parent != none; idx = t.nodes[idx].Parent {
		parent := t.nodes[t.nodes[idx].Parent]

		switch {
		case parent.Left == idx:
			proof.ProofHashes = append(proof.ProofHashes, t.nodes[parent.Right].Hash)
			proof.ProofDirections = append(proof.ProofDirections, true)
		default:
			proof.ProofHashes = append(proof.ProofHashes, t.nodes[parent.Left].Hash)
			proof.ProofDirections = append(proof.ProofDirections, false)
		}
	}

	return proof, nil
}

// VerifyProof recomputes the root from the proof using the double sha256
// strategy. It never touches a live tree, so a light client holding only the
// merkle root can use it.
func VerifyProof(proof Proof) bool {
	return VerifyProofWith(proof, hash.DoubleHash)
}

// VerifyProofWith recomputes the root from the proof using the provided hash
// strategy.
func VerifyProofWith(proof Proof, hashStrategy func(string) string) bool {
	if len(proof.ProofHashes) != len(proof.ProofDirections) {
		return false
	}

	current := hashStrategy(proof.TargetHash)
	for i, sibling := range proof.ProofHashes {
		switch proof.ProofDirections[i] {
		case true:
			current = hashStrategy(current + sibling)
		default:
			current = hashStrategy(sibling + current)
		}
	}

	return current == proof.MerkleRoot
}

// VerifyData reports whether the id is part of the tree and its proof
// resolves to the current root.
func (t *Tree) VerifyData(id string) bool {
	proof, err := t.Proof(id)
	if err != nil {
		return false
	}

	return VerifyProofWith(proof, t.hashStrategy)
}
