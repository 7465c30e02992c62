package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/ragbase/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix  = "docrec"
	documentURLPrefix     = "docurl"
	documentStatusPrefix  = "docstat"
	documentDatePrefix    = "docdate"
	chunkRecordPrefix     = "chkrec"
	chunkDocPrefix        = "chkdoc"
	embeddingRecordPrefix = "embrec"
	embeddingDocPrefix    = "embdoc"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeDocumentURLKey generates a key for the URL index.
func makeDocumentURLKey(url string) []byte {
	return []byte(documentURLPrefix + ":" + url)
}

// makeDocumentStatusKey generates a composite key for the status index.
// Format: prefix:status:id
func makeDocumentStatusKey(status core.DocumentStatus, id core.ID) []byte {
	prefix := []byte(documentStatusPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(status))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentStatusKey generates a partial key for status queries.
func makePartialDocumentStatusKey(status core.DocumentStatus) []byte {
	prefix := []byte(documentStatusPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(status))
	return buf
}

// makeDocumentDateKey generates a composite key for the crawl-date index.
// Format: prefix:timestamp:id
func makeDocumentDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := []byte(documentDatePrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentDateKey generates a partial key for date range queries.
func makePartialDocumentDateKey(timestamp time.Time) []byte {
	prefix := []byte(documentDatePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocKey generates a composite key for the per-document chunk index.
// Format: prefix:documentID:index
// The chunk position is part of the key so iteration yields chunks in order.
func makeChunkDocKey(documentID core.ID, index int) []byte {
	prefix := []byte(chunkDocPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkDocKey generates a partial key for per-document chunk queries.
func makePartialChunkDocKey(documentID core.ID) []byte {
	prefix := []byte(chunkDocPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeEmbeddingKey generates a key for an embedding by ID.
func makeEmbeddingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingRecordPrefix, id))
}

// makeEmbeddingDocKey generates a composite key for the per-document embedding index.
// Format: prefix:documentID:embeddingID
func makeEmbeddingDocKey(documentID, embeddingID core.ID) []byte {
	prefix := []byte(embeddingDocPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(embeddingID))
	return buf
}

// makePartialEmbeddingDocKey generates a partial key for per-document embedding queries.
func makePartialEmbeddingDocKey(documentID core.ID) []byte {
	prefix := []byte(embeddingDocPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}
