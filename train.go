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
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const maxSentenceLen = 1024

// trainParams is the immutable configuration bundle the engine consumes. It
// is assembled once by main and shared read-only by every worker.
type trainParams struct {
	corpusPath string
	corpusSize int64
	vocabPath  string
	outputPath string
	storePath  string

	dim          int
	window       int
	iterations   int
	negative     int
	numThreads   int
	initialAlpha real
	minFreq      countUint
	binary       bool
	normalize    bool
	verbose      int
}

// trainProgress is the single shared progress counter driving the learning
// rate schedule. Staleness is tolerated; it only feeds an approximate,
// monotone anneal.
type trainProgress struct {
	wordCountActual atomic.Uint64
}

// train runs the fixed worker pool to completion. Any worker error fails the
// whole run: a partially trained matrix must not be silently saved.
func train(net *neuralNet, v *vocabulary, params *trainParams) error {
	if net.vocabSize != v.size() {
		return fmt.Errorf("train: net sized for %d words, vocab has %d", net.vocabSize, v.size())
	}

	logger.Infof("training: %d threads, dim %d, window %d, negative %d, %d iterations",
		params.numThreads, params.dim, params.window, params.negative, params.iterations)

	progress := &trainProgress{}
	errs := make(chan error, params.numThreads)
	start := time.Now()

	var wg sync.WaitGroup
	for threadID := 0; threadID < params.numThreads; threadID++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			if err := trainThread(net, v, threadID, params, progress, start); err != nil {
				errs <- fmt.Errorf("thread %d: %w", threadID, err)
			}
		}(threadID)
	}
	wg.Wait()
	close(errs)

	if params.verbose > 1 {
		fmt.Fprintln(os.Stderr)
	}
	return <-errs
}

// trainThread is the per-worker state machine: fill a sentence from the
// thread's shard of the corpus, process each buffered word as a center word,
// loop over epochs, exit. All state here is thread-owned except the two
// matrices and the progress counter.
func trainThread(net *neuralNet, v *vocabulary, threadID int, params *trainParams, progress *trainProgress, start time.Time) error {
	offset := params.corpusSize / int64(params.numThreads) * int64(threadID)
	fi, err := newTokenizer(params.corpusPath, offset, params.normalize)
	if err != nil {
		return err
	}
	defer fi.Close()

	neu1 := make([]real, params.dim)
	neu1e := make([]real, params.dim)
	rng := newLcRand(int64(threadID))

	var wordCount, lastWordCount uint64
	sentence := make([]idxInt, 0, maxSentenceLen+1)
	sentencePos := 0
	localIter := params.iterations
	alpha := params.initialAlpha
	eofReached := false
	totalWords := uint64(params.iterations)*v.trainWords + 1

	for {
		// Flush the local word count into the shared counter and recompute
		// the learning rate from overall progress.
		if wordCount-lastWordCount > defaultProgressInterval {
			progress.wordCountActual.Add(wordCount - lastWordCount)
			lastWordCount = wordCount
			wc := progress.wordCountActual.Load()

			if params.verbose > 1 {
				fmt.Fprintf(os.Stderr, "\rAlpha: %.6f  Progress: %.2f%%  Words/sec: %.2fk ",
					alpha,
					float64(wc)/float64(totalWords)*100,
					float64(wc)/1000/time.Since(start).Seconds())
			}

			alpha = params.initialAlpha * (1 - real(float64(wc)/float64(totalWords)))
			if alpha < params.initialAlpha*0.0001 {
				alpha = params.initialAlpha * 0.0001
			}
		}

		if len(sentence) == 0 {
			for {
				tok, err := fi.next()
				if err == io.EOF {
					eofReached = true
					break
				}
				if err != nil {
					return err
				}
				idx := v.search(tok)
				// Unknown words are skipped, not an error.
				if idx < 0 {
					continue
				}
				wordCount++
				if idx == 0 {
					// Sentence break. An empty or all-unknown sentence
					// is discarded and refilled.
					if len(sentence) == 0 {
						continue
					}
					break
				}
				sentence = append(sentence, idx)
				if len(sentence) > maxSentenceLen {
					break
				}
				sentencePos = 0
			}
		}

		if (len(sentence) == 0 && eofReached) || wordCount > v.trainWords/uint64(params.numThreads) {
			progress.wordCountActual.Add(wordCount - lastWordCount)
			localIter--
			if localIter == 0 {
				break
			}
			wordCount, lastWordCount = 0, 0
			sentence = sentence[:0]
			if err := fi.reset(offset); err != nil {
				return err
			}
			eofReached = false
			continue
		}

		b := int(uint64(rng.next()) % uint64(params.window))
		cbowStep(net, v, sentence, sentencePos, params.window, b, params.negative, alpha, rng, neu1, neu1e)

		sentencePos++
		if sentencePos >= len(sentence) {
			sentence = sentence[:0]
		}
	}

	return nil
}
