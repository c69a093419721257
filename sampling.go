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

import "math"

// unigramPower smooths the unigram distribution the sampling table
// approximates. Ported from word2vec.
const unigramPower = 0.75

// lcRand is the linear congruential generator every thread owns privately.
// Overflow wraps, which is the intended arithmetic.
type lcRand struct {
	state int64
}

func newLcRand(seed int64) *lcRand {
	return &lcRand{state: seed}
}

func (r *lcRand) next() int64 {
	r.state = r.state*25214903917 + 11
	return r.state
}

// initUnigramTable fills the fixed-size sampling table: wordIDs are assigned
// to consecutive slots until the cumulative count^unigramPower mass catches up
// with the slot's proportional position. Sampling a slot afterwards is O(1)
// and approximates the smoothed unigram distribution.
func (v *vocabulary) initUnigramTable() {
	if len(v.words) == 0 {
		panic("initUnigramTable: empty vocabulary")
	}

	var trainWordsPow float64
	for _, e := range v.words {
		trainWordsPow += math.Pow(float64(e.freq), unigramPower)
	}

	v.unigram = make([]idxInt, v.tableSize)
	var widx int
	frac := math.Pow(float64(v.words[0].freq), unigramPower) / trainWordsPow
	for a := range v.unigram {
		v.unigram[a] = idxInt(widx)
		if float64(a)/float64(v.tableSize) > frac && widx < len(v.words)-1 {
			widx++
			frac += math.Pow(float64(v.words[widx].freq), unigramPower) / trainWordsPow
		}
	}
}

// sampleRandomWord maps a raw random seed to a unigram-table slot. A sentinel
// draw falls back to a uniformly random non-sentinel word so sentence breaks
// are not oversampled as negative examples.
func (v *vocabulary) sampleRandomWord(randSeed int64) idxInt {
	idx := uint64(randSeed>>16) % uint64(len(v.unigram))
	target := v.unigram[idx]
	if target == 0 {
		target = idxInt(uint64(randSeed)%uint64(len(v.words)-1) + 1)
	}
	return target
}
