package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/ragbase/core"
	"github.com/poiesic/ragbase/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	return &EmbeddingRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *EmbeddingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEmbeddings adds embeddings to storage.
func (r *EmbeddingRepository) AddEmbeddings(ctx context.Context, embeddings ...*core.Embedding) ([]*core.Embedding, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, emb := range embeddings {
			if emb.Id == 0 {
				emb.Id = core.IDFromContent(emb.Text + emb.ModelName)
			}
			if emb.CreatedAt.IsZero() {
				emb.CreatedAt = time.Now().UTC()
			}
			if emb.Dimension == 0 {
				emb.Dimension = len(emb.Vector)
			}

			key := makeEmbeddingKey(emb.Id)
			if err := tx.Set(key, storage.MarshalEmbedding(emb)); err != nil {
				return err
			}

			docKey := makeEmbeddingDocKey(emb.DocumentId, emb.Id)
			if err := tx.Set(docKey, storage.MarshalID(emb.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return embeddings, err
}

// DeleteEmbeddings removes embeddings by their IDs.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			emb, err := r.readEmbedding(tx, makeEmbeddingKey(id))
			if err != nil {
				return err
			}
			if emb == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeEmbeddingDocKey(emb.DocumentId, emb.Id)); err != nil {
				return err
			}
			if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteEmbeddingsByDocument removes all embeddings for a document.
func (r *EmbeddingRepository) DeleteEmbeddingsByDocument(ctx context.Context, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialEmbeddingDocKey(documentID)

		var indexKeys [][]byte
		var embIDs []core.ID

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}

			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
			embIDs = append(embIDs, id)
		}
		iter.Close()

		for _, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range embIDs {
			if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves a single embedding by ID.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, id core.ID) (*core.Embedding, error) {
	var result *core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readEmbedding(tx, makeEmbeddingKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEmbeddingsByDocument retrieves all embeddings for a document.
func (r *EmbeddingRepository) GetEmbeddingsByDocument(ctx context.Context, documentID core.ID) ([]*core.Embedding, error) {
	var results []*core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialEmbeddingDocKey(documentID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			emb, err := r.readEmbedding(tx, makeEmbeddingKey(id))
			if err != nil {
				return err
			}
			if emb != nil {
				results = append(results, emb)
			}
		}
		return nil
	}, false)

	return results, err
}

// CountEmbeddings returns the total number of stored embeddings.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readEmbedding reads an embedding from the transaction.
// Returns nil without error when the key does not exist.
func (r *EmbeddingRepository) readEmbedding(tx *badger.Txn, key []byte) (*core.Embedding, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var emb *core.Embedding
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		emb, unmarshalErr = storage.UnmarshalEmbedding(val)
		return unmarshalErr
	})
	return emb, err
}
