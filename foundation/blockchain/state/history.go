package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
)

// Set of history entry types.
const (
	HistorySent     = "sent"
	HistoryReceived = "received"
	HistorySelf     = "self"
)

// CoinbaseSender is the from address reported for minted value.
const CoinbaseSender = "Genesis"

// HistoryEntry describes how a confirmed transaction moved value for an
// address.
type HistoryEntry struct {
	BlockIndex     uint64          `json:"block_index"`
	TxID           string          `json:"transaction_id"`
	Inputs         int             `json:"inputs"`
	Outputs        int             `json:"outputs"`
	SentAmount     decimal.Decimal `json:"sent_amount"`
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Fee            decimal.Decimal `json:"fee"`
	TimeStamp      int64           `json:"timestamp"`
	Type           string          `json:"type"`
	IsCoinbase     bool            `json:"is_coinbase"`
	FromAddress    string          `json:"from_address,omitempty"`
	ToAddress      string          `json:"to_address,omitempty"`
}

// TransactionHistory returns the entries for every confirmed transaction the
// address took part in, in chain order. Results are cached per address and
// chain height until the ledger changes.
func (s *State) TransactionHistory(address string) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := fmt.Sprintf("%s@%d", address, len(s.chain))

	if item := s.history.Get(key); item != nil {
		return item.Value()
	}

	entries := s.computeHistory(address)
	s.history.Set(key, entries, ttlcache.DefaultTTL)

	return entries
}

// computeHistory walks the chain building the entries. The lock must be held.
func (s *State) computeHistory(address string) []HistoryEntry {
	entries := []HistoryEntry{}

	for _, block := range s.chain {
		for _, tx := range block.Trans {
			entries = append(entries, s.historyEntries(block.Index, tx, address)...)
		}
	}

	return entries
}

// historyEntries classifies a single transaction. A spend paying only back
// to the address is a self entry, otherwise value leaving and value arriving
// produce separate sent and received entries.
func (s *State) historyEntries(blockIndex uint64, tx database.Tx, address string) []HistoryEntry {
	coinbase := tx.IsCoinbase()

	received := decimal.Zero
	allToSelf := true
	var firstExternal string
	for _, out := range tx.Outputs {
		if out.RecipientAddress == address {
			received = received.Add(out.Amount)
			continue
		}
		allToSelf = false
		if firstExternal == "" {
			firstExternal = out.RecipientAddress
		}
	}

	sent := decimal.Zero
	inputTotal := decimal.Zero
	var sender string
	for _, in := range tx.Inputs {
		source, found := s.sourceOutput(in)
		if !found {
			continue
		}
		inputTotal = inputTotal.Add(source.Amount)

		if source.RecipientAddress == address {
			sent = sent.Add(source.Amount)
			continue
		}
		if sender == "" {
			sender = source.RecipientAddress
		}
	}

	if !sent.IsPositive() && !received.IsPositive() {
		return nil
	}

	fee := decimal.Zero
	if !coinbase {
		fee = decimal.Max(decimal.Zero, inputTotal.Sub(tx.TotalOutput()))
	}

	base := HistoryEntry{
		BlockIndex:     blockIndex,
		TxID:           tx.ID,
		Inputs:         len(tx.Inputs),
		Outputs:        len(tx.Outputs),
		SentAmount:     decimal.Zero,
		ReceivedAmount: decimal.Zero,
		Fee:            fee,
		TimeStamp:      tx.TimeStamp,
		IsCoinbase:     coinbase,
	}

	if sent.IsPositive() && received.IsPositive() && allToSelf && !coinbase {
		entry := base
		entry.Type = HistorySelf
		entry.SentAmount = sent
		entry.ReceivedAmount = received
		entry.NetAmount = received.Sub(sent)
		entry.FromAddress = address
		entry.ToAddress = address
		return []HistoryEntry{entry}
	}

	var entries []HistoryEntry

	if sent.IsPositive() {
		entry := base
		entry.Type = HistorySent
		entry.SentAmount = sent
		entry.NetAmount = sent.Neg()
		entry.FromAddress = address
		entry.ToAddress = firstExternal
		entries = append(entries, entry)
	}

	if received.IsPositive() {
		entry := base
		entry.Type = HistoryReceived
		entry.ReceivedAmount = received
		entry.NetAmount = received
		entry.ToAddress = address

		switch {
		case coinbase:
			entry.FromAddress = CoinbaseSender
		case sender != "":
			entry.FromAddress = sender
		case sent.IsPositive() && firstExternal != "":
			entry.FromAddress = address
		}

		entries = append(entries, entry)
	}

	return entries
}

// sourceOutput resolves the output an input spends through the transaction
// index. The lock must be held.
func (s *State) sourceOutput(in database.TxInput) (database.TxOutput, bool) {
	if in.TxID == "" {
		return database.TxOutput{}, false
	}

	loc, exists := s.txIndex[in.TxID]
	if !exists {
		return database.TxOutput{}, false
	}

	tx := s.chain[loc.block].Trans[loc.position]
	if int(in.OutputIndex) >= len(tx.Outputs) {
		return database.TxOutput{}, false
	}

	return tx.Outputs[in.OutputIndex], true
}
