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
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
)

var byteOrder binary.ByteOrder = binary.LittleEndian

const rowLockStripes = 256

// rowLocker guards individual matrix rows through a fixed set of lock
// stripes keyed by wordID. Callers hold at most one stripe at a time, so
// there is no lock ordering to get wrong.
type rowLocker struct {
	stripes [rowLockStripes]sync.Mutex
}

func (l *rowLocker) lock(widx idxInt) {
	l.stripes[uint32(widx)%rowLockStripes].Lock()
}

func (l *rowLocker) unlock(widx idxInt) {
	l.stripes[uint32(widx)%rowLockStripes].Unlock()
}

// neuralNet holds the two dense weight matrices shared by all training
// threads: syn0 is the input-embedding matrix that is ultimately saved, and
// syn1neg holds the negative-sampling output weights. Both are flat row-major
// vocabSize x dim and are mutated in place under per-row locks.
type neuralNet struct {
	vocabSize int
	dim       int
	syn0      []real
	syn1neg   []real
	locker    rowLocker
}

func newNeuralNet(vocabSize, dim int) *neuralNet {
	size := vocabSize * dim
	net := &neuralNet{
		vocabSize: vocabSize,
		dim:       dim,
		syn0:      make([]real, size),
		syn1neg:   make([]real, size),
	}
	// Deterministic initialization, same generator and scaling as the
	// original word2vec nets.
	rng := newLcRand(1)
	for i := range net.syn0 {
		net.syn0[i] = (real(rng.next()&0xffff)/65536.0 - 0.5) / real(dim)
	}
	return net
}

// inputRow returns the mutable input-embedding row for a wordID. The slice
// aliases the shared matrix; mutations require the word's row lock.
func (n *neuralNet) inputRow(widx idxInt) []real {
	return n.syn0[int(widx)*n.dim : (int(widx)+1)*n.dim]
}

func (n *neuralNet) outputRow(widx idxInt) []real {
	return n.syn1neg[int(widx)*n.dim : (int(widx)+1)*n.dim]
}

// save writes the input-embedding matrix in wordID order. The header line is
// "<vocabSize> <dim>"; each row starts with the word and a space, followed by
// either 6-decimal text floats or raw little-endian float32s.
func (n *neuralNet) save(v *vocabulary, path string, binary bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "%d %d\n", n.vocabSize, n.dim)
	b := make([]byte, float32Bytes)
	for widx, e := range v.words {
		w.WriteString(e.w)
		w.WriteByte(' ')
		row := n.inputRow(idxInt(widx))
		if binary {
			for _, f32 := range row {
				byteOrder.PutUint32(b, math.Float32bits(f32))
				if _, err := w.Write(b); err != nil {
					return err
				}
			}
		} else {
			for _, f32 := range row {
				fmt.Fprintf(w, "%.6f ", f32)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
