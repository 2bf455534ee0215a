// Package swapindex persists the set of known swap ids and their
// coordinator state tag (§4.7), independent of the per-swap
// checkpoint files, so farcasterd can enumerate and report on swaps
// without opening every checkpoint file on disk. It is backed by
// badger, a pack dependency with no other consumer in this daemon,
// brought in for exactly the small-embedded-KV-store role it plays in
// its source repo.
package swapindex

import (
	"fmt"

	"github.com/decred/dcrswap/swap"
	"github.com/dgraph-io/badger"
)

// DealDigestSize is the width of the deal-commitment digest stored
// alongside a swap's state, computed by the coordinator as a blake2b
// hash over the deal's immutable fields.
const DealDigestSize = 32

// Entry is the indexed summary of one swap.
type Entry struct {
	SwapId   swap.Id
	StateTag uint8
	// Role is the local coordinator's role in this swap (swap.Bob or
	// swap.Alice), recorded so a restarted daemon can reconstruct the
	// coordinator without re-deriving it from the deal.
	Role uint8
	// DealDigest commits to the negotiated deal parameters, letting a
	// restarted daemon detect a checkpoint that no longer matches the
	// deal it thinks it is resuming.
	DealDigest [DealDigestSize]byte
	// Terminal is true once the swap has reached any of the terminal
	// states named in §4.4 (success, cancel, refund, punish, abort).
	Terminal bool
}

// Index wraps a badger.DB keyed by swap id.
type Index struct {
	db *badger.DB
}

// Open opens (creating if needed) the index database rooted at dir.
func Open(dir string) (*Index, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("swapindex: opening badger db: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func encodeEntry(e Entry) []byte {
	out := make([]byte, 1+1+1+DealDigestSize)
	out[0] = e.StateTag
	out[1] = e.Role
	if e.Terminal {
		out[2] = 1
	}
	copy(out[3:], e.DealDigest[:])
	return out
}

func decodeEntry(id swap.Id, raw []byte) (Entry, error) {
	if len(raw) < 3+DealDigestSize {
		return Entry{}, fmt.Errorf("swapindex: malformed entry")
	}
	e := Entry{
		SwapId:   id,
		StateTag: raw[0],
		Role:     raw[1],
		Terminal: raw[2] == 1,
	}
	copy(e.DealDigest[:], raw[3:3+DealDigestSize])
	return e, nil
}

// Put records or updates the state tag for a swap.
func (idx *Index) Put(e Entry) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(e.SwapId[:], encodeEntry(e))
	})
}

// Get looks up the recorded state for a swap id.
func (idx *Index) Get(id swap.Id) (Entry, bool, error) {
	var entry Entry
	var found bool
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(id[:])
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			e, err := decodeEntry(id, val)
			if err != nil {
				return err
			}
			entry, found = e, true
			return nil
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("swapindex: get: %w", err)
	}
	return entry, found, nil
}

// ListActive returns every indexed swap that has not reached a
// terminal state, the set a restarted farcasterd must resume.
func (idx *Index) ListActive() ([]Entry, error) {
	var out []Entry
	err := idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var id swap.Id
			copy(id[:], item.Key())
			err := item.Value(func(val []byte) error {
				e, err := decodeEntry(id, val)
				if err != nil {
					return err
				}
				if !e.Terminal {
					out = append(out, e)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("swapindex: list active: %w", err)
	}
	return out, nil
}

// Delete removes a swap's entry, e.g. after its checkpoint has been
// pruned following a terminal state.
func (idx *Index) Delete(id swap.Id) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(id[:])
	})
}
