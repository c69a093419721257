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
	"math"

	"gonum.org/v1/gonum/blas/blas32"
)

func vec(x []real) blas32.Vector {
	return blas32.Vector{N: len(x), Inc: 1, Data: x}
}

func zeroVec(x []real) {
	for i := range x {
		x[i] = 0
	}
}

// cbowStep trains one center position of the sentence: the window's context
// rows are averaged into neu1, one positive and `negative` sampled pairs are
// scored against it, and the accumulated gradient neu1e flows back into every
// context word's input row. neu1 and neu1e are thread-owned scratch vectors.
//
// Matrix rows are read without their lock and written under it, exactly the
// hogwild-style discipline of the original word2vec: the schedule tolerates
// stale reads, but a row's read-modify-write is exclusive.
func cbowStep(net *neuralNet, v *vocabulary, sentence []idxInt, pos, window, b, negative int, alpha real, rng *lcRand, neu1, neu1e []real) {
	word := sentence[pos]

	zeroVec(neu1)
	cw := 0
	for a := b; a < window*2+1-b; a++ {
		if a == window {
			continue
		}
		c := pos - window + a
		if c < 0 || c >= len(sentence) {
			continue
		}
		blas32.Axpy(1, vec(net.inputRow(sentence[c])), vec(neu1))
		cw++
	}
	if cw == 0 {
		return
	}
	blas32.Scal(1/real(cw), vec(neu1))

	zeroVec(neu1e)
	for d := 0; d <= negative; d++ {
		var target idxInt
		var label real
		if d == 0 {
			target = word
			label = 1
		} else {
			target = v.sampleRandomWord(rng.next())
			// A collision with the positive word is skipped, not an error.
			if target == word {
				continue
			}
			if target < 0 || int(target) >= net.vocabSize {
				continue
			}
			label = 0
		}

		out := net.outputRow(target)
		f := blas32.Dot(vec(neu1), vec(out))
		expx := math.Exp(float64(f))
		g := (label - real(expx/(expx+1))) * alpha

		blas32.Axpy(g, vec(out), vec(neu1e))

		net.locker.lock(target)
		blas32.Axpy(1, vec(neu1), vec(out))
		net.locker.unlock(target)
	}

	// hidden -> input: backpropagate the accumulated gradient to the
	// context word vectors.
	for a := b; a < window*2+1-b; a++ {
		if a == window {
			continue
		}
		c := pos - window + a
		if c < 0 || c >= len(sentence) {
			continue
		}
		last := sentence[c]
		net.locker.lock(last)
		blas32.Axpy(1, vec(neu1e), vec(net.inputRow(last)))
		net.locker.unlock(last)
	}
}
