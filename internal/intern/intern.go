// Package intern implements Sodigy's compact string and numeric interning:
// short strings pack inline, long strings spill to a sharded on-disk map,
// and numerics keep a small-integer fast path over a big-integer
// fallback.
package intern

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const inlineCap = 15

// String is a 128-bit interned string handle. Short strings
// (<=15 bytes) encode their length and bytes inline; longer strings encode
// a 31-bit length and a hash, with the payload held in the on-disk shard
// map. Equality of two Strings from the same Table is equality of their
// source bytes by construction: the Table never issues two handles for
// equal byte sequences.
type String struct {
	inline   bool
	length   uint8
	hash     uint32
	longLen  uint32
	bytes    [inlineCap]byte
}

// Len returns the length of the interned string in bytes.
func (s String) Len() int {
	if s.inline {
		return int(s.length)
	}
	return int(s.longLen)
}

// IsInline reports whether s packs its payload inline rather than via the
// on-disk shard map.
func (s String) IsInline() bool { return s.inline }

// Hash returns the shard hash used for long strings; it is always zero for
// inline strings (they need no shard lookup).
func (s String) Hash() uint32 { return s.hash }

func shortString(b []byte) String {
	var s String
	s.inline = true
	s.length = uint8(len(b))
	copy(s.bytes[:], b)
	return s
}

func fnvHash(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// Table is the per-project string intern table: a process-wide singleton
// in a single-binary compile, or one instance per Session when sessions
// are compiled in separate goroutines. Writes to
// the backing shard files are serialized with a file lock; reads are
// lock-free because the shard files are append-only.
type Table struct {
	mu      sync.RWMutex
	dir     string // <intermediate>/str
	byBytes map[string]String
	byHash  map[uint32][]byte // reverse lookup cache for long strings already loaded this run
}

// NewTable returns a Table rooted at the given intermediate directory. dir
// may be empty, in which case long strings are kept in memory only (used
// by tests and by internal/pool, which always passes an empty dir).
func NewTable(dir string) *Table {
	return &Table{
		dir:     dir,
		byBytes: map[string]String{},
		byHash:  map[uint32][]byte{},
	}
}

// Intern returns the String handle for b, creating one if this is the
// first time b has been seen by t.
func (t *Table) Intern(b []byte) (String, error) {
	if len(b) <= inlineCap {
		return shortString(b), nil
	}

	key := string(b)
	t.mu.RLock()
	if s, ok := t.byBytes[key]; ok {
		t.mu.RUnlock()
		return s, nil
	}
	t.mu.RUnlock()

	h := fnvHash(b)
	s := String{inline: false, hash: h, longLen: uint32(len(b))}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byBytes[key]; ok {
		return existing, nil
	}
	if t.dir != "" {
		if err := t.writeShard(h, b); err != nil {
			return String{}, err
		}
	}
	t.byBytes[key] = s
	t.byHash[h] = append([]byte(nil), b...)
	return s, nil
}

// Lookup returns the original bytes for a previously interned String. It
// is used by diagnostic rendering and by the encode/decode round trip.
func (t *Table) Lookup(s String) ([]byte, bool) {
	if s.inline {
		return append([]byte(nil), s.bytes[:s.length]...), true
	}
	t.mu.RLock()
	b, ok := t.byHash[s.hash]
	t.mu.RUnlock()
	if ok {
		return b, true
	}
	if t.dir == "" {
		return nil, false
	}
	return t.readShard(s.hash, s.longLen)
}

// shardPath returns the file holding every long string whose hash shares
// the given low byte, under a `<intermediate>/str/<shard>` layout.
func (t *Table) shardPath(h uint32) string {
	return filepath.Join(t.dir, "str", fmt.Sprintf("%02x", byte(h)))
}

func (t *Table) lockPath() string {
	return filepath.Join(t.dir, "str", "lock")
}

// writeShard appends a length-prefixed record to the owning shard file
// under an exclusive file lock: a sibling `lock` file provides writer
// exclusion.
func (t *Table) writeShard(h uint32, b []byte) error {
	if err := os.MkdirAll(filepath.Join(t.dir, "str"), 0o755); err != nil {
		return err
	}
	unlock, err := acquireLock(t.lockPath())
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.OpenFile(t.shardPath(h), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], h)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(b)))
	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}

// readShard scans the shard file for the first record matching (hash,
// length). Readers need no lock: the shard file is append-only, so a
// concurrent writer can only add records after the ones already visible.
func (t *Table) readShard(h uint32, length uint32) ([]byte, bool) {
	f, err := os.Open(t.shardPath(h))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return nil, false
		}
		rh := binary.LittleEndian.Uint32(hdr[0:4])
		rl := binary.LittleEndian.Uint32(hdr[4:8])
		buf := make([]byte, rl)
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, false
		}
		if rh == h && rl == length {
			return buf, true
		}
	}
}

// acquireLock takes an exclusive file lock by creating path exclusively,
// retrying on contention. This is a portable substitute for an OS-level
// flock: none of the example repositories in the retrieval pack import a
// file-locking library, so the lock is implemented directly against the
// filesystem API already in use for shard I/O.
func acquireLock(path string) (unlock func(), err error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		time.Sleep(time.Millisecond)
	}
}
