// Package checkpoint implements the per-swap persisted state described
// in §4.5/§6: one file per swap, a strict binary encoding of the
// coordinator's resumable state, prefixed with a format version and a
// content hash, written atomically (write-temp, fsync, rename).
//
// This package owns only the wire format and the filesystem mechanics.
// It knows nothing about coordinator.State transition logic; the
// coordinator maps its own state tag to and from the StateTag field
// here, keeping this package free of a dependency on the (much larger)
// coordinator package.
package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/dcrswap/swap"
	"golang.org/x/crypto/blake2b"
)

// formatVersion is the checkpoint file format version written in the
// 4-byte prefix ahead of the content hash.
const formatVersion uint32 = 1

// hashSize is the size, in bytes, of the content hash prefixing the
// checkpoint body.
const hashSize = 32

// Checkpoint is the full resumable state of a single swap's
// coordinator, exactly the fields named in §4.5: the state tag, the
// swap id, confirmation counts, latched finality, the cached accordant
// address addendum, and the pending broadcast queue (payloads only —
// task IDs are never preserved across restarts, they are freshly
// allocated on resume).
type Checkpoint struct {
	// StateTag is the coordinator's own numbering of its tagged-variant
	// state (§4.4/§4.5). Checkpoints are monotonic: a coordinator must
	// never write a StateTag whose ordinal is lower than the last one
	// it wrote for this swap.
	StateTag uint8

	SwapId swap.Id

	// Confirmations is the accumulated confirmation map, keyed by
	// TxLabel. A nil entry means "not seen"; Some(0) means "seen in
	// the mempool, not yet mined".
	Confirmations map[swap.TxLabel]*uint32

	// FinalTxs is the latched finality map. Once true for a label it
	// is written true on every subsequent checkpoint for this swap.
	FinalTxs map[swap.TxLabel]bool

	// AccordantSpendKey/AccordantViewKey/AccordantFromHeight cache the
	// accordant address addendum, if one has been set. AccordantSet is
	// false until the first watch_addr_xmr call.
	AccordantSet        bool
	AccordantSpendKey   [32]byte
	AccordantViewKey    [32]byte
	AccordantFromHeight uint64

	// PendingBroadcast holds the serialized transaction payloads for
	// every broadcast still in flight when the checkpoint was written.
	PendingBroadcast [][]byte
}

// Encode renders the checkpoint into its canonical binary form, not
// including the format-version/content-hash prefix (that is added by
// Save, since it is a function of the encoded body).
func (c *Checkpoint) Encode() []byte {
	e := newEncoder()
	e.writeUint8(c.StateTag)
	e.buf.Write(c.SwapId[:])

	labels := sortedLabels(c.Confirmations, c.FinalTxs)
	e.writeUint32(uint32(len(labels)))
	for _, label := range labels {
		e.writeUint8(uint8(label))
		e.writeOptionalUint32(c.Confirmations[label])
		e.writeBool(c.FinalTxs[label])
	}

	e.writeBool(c.AccordantSet)
	if c.AccordantSet {
		e.buf.Write(c.AccordantSpendKey[:])
		e.buf.Write(c.AccordantViewKey[:])
		e.writeUint64(c.AccordantFromHeight)
	}

	e.writeUint32(uint32(len(c.PendingBroadcast)))
	for _, tx := range c.PendingBroadcast {
		e.writeBytes(tx)
	}

	return e.bytes()
}

// Decode parses a checkpoint body previously produced by Encode.
func Decode(body []byte) (*Checkpoint, error) {
	d := newDecoder(body)
	c := &Checkpoint{
		Confirmations: make(map[swap.TxLabel]*uint32),
		FinalTxs:      make(map[swap.TxLabel]bool),
	}

	tag, err := d.readUint8()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading state tag: %w", err)
	}
	c.StateTag = tag

	var id [32]byte
	if _, err := readFull(d, id[:]); err != nil {
		return nil, fmt.Errorf("checkpoint: reading swap id: %w", err)
	}
	c.SwapId = id

	n, err := d.readUint32()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading label count: %w", err)
	}
	for i := uint32(0); i < n; i++ {
		labelByte, err := d.readUint8()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: reading label: %w", err)
		}
		confs, err := d.readOptionalUint32()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: reading confirmations: %w", err)
		}
		final, err := d.readBool()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: reading finality: %w", err)
		}
		label := swap.TxLabel(labelByte)
		c.Confirmations[label] = confs
		c.FinalTxs[label] = final
	}

	accordantSet, err := d.readBool()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading accordant flag: %w", err)
	}
	c.AccordantSet = accordantSet
	if accordantSet {
		if _, err := readFull(d, c.AccordantSpendKey[:]); err != nil {
			return nil, fmt.Errorf("checkpoint: reading accordant spend key: %w", err)
		}
		if _, err := readFull(d, c.AccordantViewKey[:]); err != nil {
			return nil, fmt.Errorf("checkpoint: reading accordant view key: %w", err)
		}
		height, err := d.readUint64()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: reading accordant from-height: %w", err)
		}
		c.AccordantFromHeight = height
	}

	pendingCount, err := d.readUint32()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading pending broadcast count: %w", err)
	}
	for i := uint32(0); i < pendingCount; i++ {
		tx, err := d.readBytes()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: reading pending broadcast tx: %w", err)
		}
		c.PendingBroadcast = append(c.PendingBroadcast, tx)
	}

	return c, nil
}

func readFull(d *decoder, out []byte) (int, error) {
	n := 0
	for n < len(out) {
		b, err := d.readUint8()
		if err != nil {
			return n, err
		}
		out[n] = b
		n++
	}
	return n, nil
}

// sortedLabels returns the union of keys from confs and final, sorted,
// so Encode is deterministic regardless of Go's randomized map
// iteration order (property 7 from §8: round-trip must re-serialize
// byte-identically).
func sortedLabels(confs map[swap.TxLabel]*uint32, final map[swap.TxLabel]bool) []swap.TxLabel {
	seen := make(map[swap.TxLabel]struct{}, len(confs)+len(final))
	for l := range confs {
		seen[l] = struct{}{}
	}
	for l := range final {
		seen[l] = struct{}{}
	}
	out := make([]swap.TxLabel, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// fileName returns the checkpoint filename for a swap, matching §6:
// "<swap_id>.ckpt".
func fileName(id swap.Id) string {
	return id.String() + ".ckpt"
}

// Save atomically writes the checkpoint to dir, following §5's
// write-temp/fsync/rename rule and §6's version+hash file layout.
// Exactly one checkpoint write happens per coordinator state
// transition (§4.4); this function performs that single write.
func Save(dir string, c *Checkpoint) error {
	body := c.Encode()
	hash := blake2b.Sum256(body)

	var out bytes.Buffer
	var versionBytes [4]byte
	versionBytes[0] = byte(formatVersion >> 24)
	versionBytes[1] = byte(formatVersion >> 16)
	versionBytes[2] = byte(formatVersion >> 8)
	versionBytes[3] = byte(formatVersion)
	out.Write(versionBytes[:])
	out.Write(hash[:])
	out.Write(body)

	path := filepath.Join(dir, fileName(c.SwapId))
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("checkpoint: opening temp file: %w", err)
	}
	if _, err := f.Write(out.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: fsyncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: closing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("checkpoint: renaming into place: %w", err)
	}
	return nil
}

// Load reads and verifies the checkpoint file for id in dir. A
// corrupted or version-mismatched file is refused rather than
// partially trusted, per §7's CheckpointIoError semantics ("on read,
// swap refuses to restore").
func Load(dir string, id swap.Id) (*Checkpoint, error) {
	path := filepath.Join(dir, fileName(id))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading file: %w", err)
	}
	if len(raw) < 4+hashSize {
		return nil, fmt.Errorf("checkpoint: file too short")
	}

	version := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	if version != formatVersion {
		return nil, fmt.Errorf("checkpoint: unsupported format version %d", version)
	}

	wantHash := raw[4 : 4+hashSize]
	body := raw[4+hashSize:]
	gotHash := blake2b.Sum256(body)
	if !bytes.Equal(wantHash, gotHash[:]) {
		return nil, fmt.Errorf("checkpoint: content hash mismatch, refusing to restore")
	}

	return Decode(body)
}
