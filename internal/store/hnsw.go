package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWVectorStore implements VectorStore with one coder/hnsw graph per
// collection (one collection per app, per spec §3). hnsw:space is always
// cosine: vectors are L2-normalized at Add time, so inner product equals
// cosine similarity, matching spec §6.
type HNSWVectorStore struct {
	mu          sync.RWMutex
	collections map[string]*hnswCollection
	closed      bool
}

type hnswCollection struct {
	graph   *hnsw.Graph[uint64]
	dim     int
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	chunks  map[string]*Chunk // cid -> hydrated chunk (preview + metadata)
}

// NewHNSWVectorStore creates an empty store. Collections are created lazily
// via GetOrCreateCollection.
func NewHNSWVectorStore() *HNSWVectorStore {
	return &HNSWVectorStore{collections: make(map[string]*hnswCollection)}
}

func newCollection(dim int) *hnswCollection {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25
	return &hnswCollection{
		graph:  g,
		dim:    dim,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		chunks: make(map[string]*Chunk),
	}
}

// GetOrCreateCollection implements VectorStore.
func (s *HNSWVectorStore) GetOrCreateCollection(ctx context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if c, ok := s.collections[name]; ok {
		if c.dim != dim {
			return ErrDimensionMismatch{Collection: name, Expected: c.dim, Got: dim}
		}
		return nil
	}
	s.collections[name] = newCollection(dim)
	return nil
}

// Add implements VectorStore.
func (s *HNSWVectorStore) Add(ctx context.Context, collection string, ids []string, previews []string, metadatas []ChunkMetadata, embeddings [][]float32) error {
	if len(ids) != len(embeddings) || len(ids) != len(previews) || len(ids) != len(metadatas) {
		return fmt.Errorf("store: mismatched batch lengths")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	c, ok := s.collections[collection]
	if !ok {
		if len(embeddings) == 0 {
			return nil
		}
		c = newCollection(len(embeddings[0]))
		s.collections[collection] = c
	}
	for _, v := range embeddings {
		if len(v) != c.dim {
			return ErrDimensionMismatch{Collection: collection, Expected: c.dim, Got: len(v)}
		}
	}
	for i, id := range ids {
		if existing, exists := c.idMap[id]; exists {
			delete(c.keyMap, existing)
			delete(c.idMap, id)
		}
		key := c.nextKey
		c.nextKey++
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		normalizeVectorInPlace(vec)
		c.graph.Add(hnsw.MakeNode(key, vec))
		c.idMap[id] = key
		c.keyMap[key] = id
		c.chunks[id] = &Chunk{
			CID:      id,
			Preview:  previews[i],
			Metadata: metadatas[i],
			SimHash:  metadatas[i].SimHash,
			Hash:     metadatas[i].Hash,
		}
	}
	return nil
}

// Query implements VectorStore. A missing collection degrades to an empty
// result, per spec §4.6 ("adapter may return an empty map").
func (s *HNSWVectorStore) Query(ctx context.Context, collection string, embedding []float32, n int) ([]VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil
	}
	c, ok := s.collections[collection]
	if !ok || c.graph.Len() == 0 {
		return nil, nil
	}
	q := make([]float32, len(embedding))
	copy(q, embedding)
	normalizeVectorInPlace(q)

	nodes := c.graph.Search(q, n)
	out := make([]VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		dist := c.graph.Distance(q, node.Value)
		// cosine distance in [0,2]; inner product (cosine similarity) = 1 - dist
		out = append(out, VectorResult{CID: id, Score: 1 - dist})
	}
	return out, nil
}

// Get implements VectorStore.
func (s *HNSWVectorStore) Get(ctx context.Context, collection string, ids []string) (map[string]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Chunk)
	if s.closed {
		return out, nil
	}
	c, ok := s.collections[collection]
	if !ok {
		return out, nil
	}
	for _, id := range ids {
		if ch, ok := c.chunks[id]; ok {
			out[id] = ch
		}
	}
	return out, nil
}

// Dimensions implements VectorStore.
func (s *HNSWVectorStore) Dimensions(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return c.dim
	}
	return 0
}

type hnswPersisted struct {
	Collections map[string]*hnswCollectionMeta
}

type hnswCollectionMeta struct {
	Dim     int
	IDMap   map[string]uint64
	NextKey uint64
	Chunks  map[string]*Chunk
}

// Save persists every collection to dir, one graph file plus one metadata
// file per collection, using a temp-dir-then-rename atomic swap (spec §5
// "Shared resources": writers build into fresh directories and atomically
// swap on completion).
func (s *HNSWVectorStore) Save(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}
	for name, c := range s.collections {
		graphPath := filepath.Join(tmp, name+".graph")
		f, err := os.Create(graphPath)
		if err != nil {
			return err
		}
		if err := c.graph.Export(f); err != nil {
			f.Close()
			return fmt.Errorf("export collection %q: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		metaPath := filepath.Join(tmp, name+".meta")
		mf, err := os.Create(metaPath)
		if err != nil {
			return err
		}
		meta := hnswCollectionMeta{Dim: c.dim, IDMap: c.idMap, NextKey: c.nextKey, Chunks: c.chunks}
		if err := gob.NewEncoder(mf).Encode(meta); err != nil {
			mf.Close()
			return fmt.Errorf("encode metadata %q: %w", name, err)
		}
		if err := mf.Close(); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(tmp, dir)
}

// Load restores every collection from dir.
func (s *HNSWVectorStore) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case len(name) > 6 && name[len(name)-6:] == ".graph":
			names[name[:len(name)-6]] = true
		}
	}
	for name := range names {
		metaPath := filepath.Join(dir, name+".meta")
		mf, err := os.Open(metaPath)
		if err != nil {
			return err
		}
		var meta hnswCollectionMeta
		if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
			mf.Close()
			return fmt.Errorf("decode metadata %q: %w", name, err)
		}
		mf.Close()

		c := newCollection(meta.Dim)
		c.idMap = meta.IDMap
		c.nextKey = meta.NextKey
		c.chunks = meta.Chunks
		c.keyMap = make(map[uint64]string, len(meta.IDMap))
		for id, key := range meta.IDMap {
			c.keyMap[key] = id
		}

		graphPath := filepath.Join(dir, name+".graph")
		gf, err := os.Open(graphPath)
		if err != nil {
			return err
		}
		if err := c.graph.Import(bufio.NewReader(gf)); err != nil {
			gf.Close()
			return fmt.Errorf("import graph %q: %w", name, err)
		}
		gf.Close()

		s.collections[name] = c
	}
	return nil
}

// Close implements VectorStore.
func (s *HNSWVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.collections = nil
	return nil
}

var _ VectorStore = (*HNSWVectorStore)(nil)

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
