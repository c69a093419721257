/*
 * Copyright (c) 2016 Salle, Alexandre <alex@alexsalle.com>
 * Author: Salle, Alexandre <alex@alexsalle.com>
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

package main

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	leveldbopt "github.com/syndtr/goleveldb/leveldb/opt"
	"gonum.org/v1/gonum/blas/blas32"
)

// vectorStore persists trained embeddings in a LevelDB database keyed by
// word, each value a row of little-endian float32s. It backs the query
// command so lookups do not require reparsing the text vectors file.
type vectorStore struct {
	db *leveldb.DB
}

var errWordNotFound = errors.New("word not found in vector store")

func openVectorStore(dbPath string, readOnly bool) (*vectorStore, error) {
	opts := leveldbopt.Options{
		NoSync:      true,
		Compression: leveldbopt.NoCompression,
		ReadOnly:    readOnly,
	}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &vectorStore{db}, nil
}

func (s *vectorStore) close() error {
	return s.db.Close()
}

func vectorToBytes(v []real) []byte {
	b := make([]byte, len(v)*float32Bytes)
	for i, f := range v {
		byteOrder.PutUint32(b[i*float32Bytes:], math.Float32bits(f))
	}
	return b
}

func bytesToVector(b []byte) []real {
	v := make([]real, len(b)/float32Bytes)
	for i := range v {
		v[i] = math.Float32frombits(byteOrder.Uint32(b[i*float32Bytes:]))
	}
	return v
}

func (s *vectorStore) putVector(word string, v []real) error {
	return s.db.Put([]byte(word), vectorToBytes(v), nil)
}

func (s *vectorStore) getVector(word string) ([]real, error) {
	b, err := s.db.Get([]byte(word), nil)
	if err != nil {
		if err == leveldberrors.ErrNotFound {
			return nil, errWordNotFound
		}
		return nil, err
	}
	return bytesToVector(b), nil
}

func (s *vectorStore) iterate(f func(word string, v []real) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if err := f(string(iter.Key()), bytesToVector(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

// storeVectors bulk-writes every input-embedding row into a fresh store.
func storeVectors(net *neuralNet, v *vocabulary, dbPath string) error {
	store, err := openVectorStore(dbPath, false)
	if err != nil {
		return err
	}
	defer store.close()
	for widx, e := range v.words {
		if err := store.putVector(e.w, net.inputRow(idxInt(widx))); err != nil {
			return err
		}
	}
	return nil
}

type neighbor struct {
	word string
	sim  real
}

// neighborHeap is a min-heap on similarity so the weakest of the current
// top-k is evicted first.
type neighborHeap []neighbor

func (h neighborHeap) Len() int            { return len(h) }
func (h neighborHeap) Less(i, j int) bool  { return h[i].sim < h[j].sim }
func (h neighborHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x interface{}) { *h = append(*h, x.(neighbor)) }
func (h *neighborHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func cosine(a, b []real) real {
	na := blas32.Nrm2(vec(a))
	nb := blas32.Nrm2(vec(b))
	if na == 0 || nb == 0 {
		return 0
	}
	return blas32.Dot(vec(a), vec(b)) / (na * nb)
}

// nearestNeighbors scans the whole store and returns the k words most cosine-
// similar to the query word, best first, excluding the word itself.
func nearestNeighbors(s *vectorStore, word string, k int) ([]neighbor, error) {
	q, err := s.getVector(word)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", word, err)
	}

	h := &neighborHeap{}
	heap.Init(h)
	err = s.iterate(func(w string, v []real) error {
		if w == word {
			return nil
		}
		heap.Push(h, neighbor{w, cosine(q, v)})
		if h.Len() > k {
			heap.Pop(h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := *h
	sort.Slice(out, func(i, j int) bool { return out[i].sim > out[j].sim })
	return out, nil
}
