package badger

import (
	"encoding/binary"

	"github.com/poiesic/gleaner/core"
)

// Key prefixes for different data types
const (
	chunkPrefix       = "chunk:"
	chunkSourcePrefix = "chunksrc:"
	ledgerPrefix      = "ledger:"
	ledgerSeq         = "ledgerseq"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id string) []byte {
	return []byte(chunkPrefix + id)
}

// makeChunkSourceKey generates a composite key for the source index.
// Format: prefix:urlhash:seq
func makeChunkSourceKey(sourceURL string, seq int) []byte {
	buf := makePartialChunkSourceKey(sourceURL)
	// BigEndian so chunks of one source sort by sequence
	return binary.BigEndian.AppendUint32(buf, uint32(seq))
}

// makePartialChunkSourceKey generates the prefix shared by every chunk of a source.
// Format: prefix:urlhash:
func makePartialChunkSourceKey(sourceURL string) []byte {
	buf := make([]byte, 0, len(chunkSourcePrefix)+8+1+4)
	buf = append(buf, chunkSourcePrefix...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(core.IDFromContent(sourceURL)))
	return append(buf, ':')
}

// makeLedgerKey generates a key for the seq-th ledger append.
// Format: prefix:seq
func makeLedgerKey(seq uint64) []byte {
	buf := make([]byte, 0, len(ledgerPrefix)+8)
	buf = append(buf, ledgerPrefix...)
	return binary.BigEndian.AppendUint64(buf, seq)
}
