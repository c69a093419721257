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
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	vocabHashSize    = 30000000
	unigramTableSize = 1e8

	// A pruning pass runs whenever distinct entries exceed this share of
	// the hash table's fixed capacity.
	pruneLoadFactor = 0.7

	wordNotFound = idxInt(-1)
	emptySlot    = idxInt(-1)
)

type wordEntry struct {
	w    string
	freq countUint
}

// vocabulary owns the dense entry sequence, the open-addressed hash index
// (string -> wordID, linear probing, no tombstones), the running token count
// and the unigram sampling table. A word's position in words is its wordID;
// wordID 0 is always ctxBreakToken.
type vocabulary struct {
	words      []wordEntry
	hashTable  []idxInt
	trainWords uint64
	minReduce  countUint
	hashSize   int

	unigram   []idxInt
	tableSize int
}

func newVocabulary() *vocabulary {
	return newVocabularySized(vocabHashSize, unigramTableSize)
}

// newVocabularySized is the sized variant used by tests; production callers go
// through newVocabulary.
func newVocabularySized(hashSize, tableSize int) *vocabulary {
	v := &vocabulary{
		hashTable: make([]idxInt, hashSize),
		minReduce: 1,
		hashSize:  hashSize,
		tableSize: tableSize,
	}
	for i := range v.hashTable {
		v.hashTable[i] = emptySlot
	}
	return v
}

func (v *vocabulary) size() int {
	return len(v.words)
}

func (v *vocabulary) wordHashIdx(w string) int {
	h := fnv.New64a()
	h.Write([]byte(w))
	return int(h.Sum64() % uint64(v.hashSize))
}

// search probes with the same linear order used for insertion and returns the
// wordID, or wordNotFound.
func (v *vocabulary) search(w string) idxInt {
	hidx := v.wordHashIdx(w)
	for {
		widx := v.hashTable[hidx]
		if widx == emptySlot {
			return wordNotFound
		}
		if v.words[widx].w == w {
			return widx
		}
		hidx = (hidx + 1) % v.hashSize
	}
}

// wordIndices returns the hash slot where w lives (or would be inserted) and
// its wordID, or wordNotFound for a new word.
func (v *vocabulary) wordIndices(w string) (int, idxInt) {
	hidx := v.wordHashIdx(w)
	for {
		widx := v.hashTable[hidx]
		if widx == emptySlot {
			return hidx, wordNotFound
		}
		if v.words[widx].w == w {
			return hidx, widx
		}
		hidx = (hidx + 1) % v.hashSize
	}
}

// addWord counts one occurrence of w, inserting it on first sight. A pruning
// pass may run afterwards, at which point previously returned wordIDs are
// invalid.
func (v *vocabulary) addWord(w string) {
	hidx, widx := v.wordIndices(w)
	if widx == wordNotFound {
		v.hashTable[hidx] = idxInt(len(v.words))
		v.words = append(v.words, wordEntry{w, 1})
	} else {
		v.words[widx].freq++
		checkCountIncOverflow(v.words[widx].freq)
	}
	v.trainWords++

	if float64(len(v.words)) > pruneLoadFactor*float64(v.hashSize) {
		v.reduce()
	}
}

func (v *vocabulary) addWordWithCount(w string, freq countUint) error {
	hidx, widx := v.wordIndices(w)
	if widx != wordNotFound {
		return fmt.Errorf("duplicate word %q", w)
	}
	v.hashTable[hidx] = idxInt(len(v.words))
	v.words = append(v.words, wordEntry{w, freq})
	v.trainWords += uint64(freq)
	return nil
}

// reduce drops every non-sentinel entry with count at or below the current
// threshold, compacts the sequence and rebuilds the hash index. The threshold
// rises by one after each pass.
func (v *vocabulary) reduce() {
	kept := v.words[:1]
	for _, e := range v.words[1:] {
		if e.freq > v.minReduce {
			kept = append(kept, e)
		}
	}
	v.words = kept
	v.minReduce++
	v.rebuildHashTable()
}

// rebuildHashTable reindexes every retained entry from scratch and recomputes
// trainWords as the sum of retained counts.
func (v *vocabulary) rebuildHashTable() {
	for i := range v.hashTable {
		v.hashTable[i] = emptySlot
	}
	v.trainWords = 0
	for widx, e := range v.words {
		hidx := v.wordHashIdx(e.w)
		for v.hashTable[hidx] != emptySlot {
			hidx = (hidx + 1) % v.hashSize
		}
		v.hashTable[hidx] = idxInt(widx)
		v.trainWords += uint64(e.freq)
	}
}

// sortAndFilter orders non-sentinel entries by descending count, drops those
// below minFreq and rebuilds the hash index. The sentinel keeps wordID 0.
func (v *vocabulary) sortAndFilter(minFreq countUint) {
	rest := v.words[1:]
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].freq > rest[j].freq })
	cut := 1
	for ; cut < len(v.words); cut++ {
		if v.words[cut].freq < minFreq {
			break
		}
	}
	v.words = v.words[:cut]
	v.rebuildHashTable()
}

// buildVocab learns the vocabulary from the corpus in one pass. The sentinel
// is inserted before anything else so it is guaranteed wordID 0.
func buildVocab(corpusPath string, minFreq countUint, normalize bool) (*vocabulary, error) {
	return buildVocabSized(corpusPath, minFreq, normalize, vocabHashSize, unigramTableSize)
}

func buildVocabSized(corpusPath string, minFreq countUint, normalize bool, hashSize, tableSize int) (*vocabulary, error) {
	logger.Info("building vocab")
	v := newVocabularySized(hashSize, tableSize)
	v.addWord(ctxBreakToken)

	tok, err := newTokenizer(corpusPath, 0, normalize)
	if err != nil {
		return nil, err
	}
	defer tok.Close()

	pp := newProgressPrinter(defaultProgressInterval)
	for {
		w, err := tok.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		pp.inc()
		v.addWord(w)
	}

	v.sortAndFilter(minFreq)
	v.initUnigramTable()
	logger.Infof("vocab size: %d, words in train file: %d", v.size(), v.trainWords)
	return v, nil
}

// readVocabFile loads a "<word> <count>" file. It fails fast on any malformed
// line and does not reapply a min-count filter.
func readVocabFile(path string) (*vocabulary, error) {
	return readVocabFileSized(path, vocabHashSize, unigramTableSize)
}

func readVocabFileSized(path string, hashSize, tableSize int) (*vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v := newVocabularySized(hashSize, tableSize)
	s := bufio.NewScanner(f)
	line := 0
	for s.Scan() {
		line++
		parts := strings.Split(s.Text(), " ")
		if len(parts) != 2 {
			return nil, fmt.Errorf("vocab %s:%d: invalid line %q", path, line, s.Text())
		}
		w := parts[0]
		if w == "" {
			return nil, fmt.Errorf("vocab %s:%d: empty word", path, line)
		}
		freq, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("vocab %s:%d: count is not a positive integer: %q", path, line, parts[1])
		}
		if err := v.addWordWithCount(w, countUint(freq)); err != nil {
			return nil, fmt.Errorf("vocab %s:%d: %w", path, line, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if v.size() == 0 {
		return nil, fmt.Errorf("vocab %s: empty vocabulary", path)
	}
	v.initUnigramTable()
	return v, nil
}

func (v *vocabulary) saveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range v.words {
		fmt.Fprintf(w, "%s %d\n", e.w, e.freq)
	}
	return w.Flush()
}
