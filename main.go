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
	"flag"
	"fmt"
	"os"
	"runtime"
)

type (
	idxInt    = int32
	countUint = uint32
	real      = float32
)

const (
	float32Bytes = 4

	errorLogLevel = 0
	infoLogLevel  = 1
	debugLogLevel = 2

	ctxBreakToken = "</s>"
	invalidToken  = "<INV>"

	defaultProgressInterval = 10000

	vocabCommand = "vocab"
	trainCommand = "train"
	queryCommand = "query"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		corpusPath    = flags.String("corpus", "", "path to corpus")
		vocabPath     = flags.String("vocab", "", "path to vocab file (learned from corpus when empty)")
		saveVocabPath = flags.String("savevocab", "", "where to save the learned vocab")
		outputPath    = flags.String("output", "", "where to save vectors")
		storePath     = flags.String("store", "", "path to vector store database")
		dim           = flags.Int("dim", 100, "number of dimensions of word vectors")
		window        = flags.Int("window", 5, "symmetric window of (window, word, window)")
		iterations    = flags.Int("iterations", 5, "how many times to process corpus")
		negative      = flags.Int("negative", 5, "number of negative samples")
		numThreads    = flags.Int("threads", runtime.NumCPU(), "number of threads to use")
		initialAlpha  = flags.Float64("alpha", 0.025, "starting learning rate")
		minFreq       = flags.Int("minfreq", 2, "remove from vocab words that occur less than this number of times")
		binaryFlag    = flags.Bool("binary", false, "save vectors as raw float32 instead of text")
		normalize     = flags.Bool("normalize", false, "NFC-normalize tokens")
		verbose       = flags.Int("verbose", debugLogLevel, "verboseness (0 = errors only, 1 = info, 2 = debug)")
		queryWord     = flags.String("word", "", "word to query")
		topK          = flags.Int("k", 10, "number of neighbors to return")
	)
	flags.Usage = func() {
		fmt.Printf("Usage: wordvec [command] [options]\n" +
			"Commands: vocab, train, query\n" +
			"Options:\n")
		flags.PrintDefaults()
	}
	flags.Parse(os.Args[2:])

	initLogging(*verbose)

	switch command {
	case vocabCommand:
		if *corpusPath == "" || *vocabPath == "" {
			check(fmt.Errorf("vocab: -corpus and -vocab are required"))
		}
		v, err := buildVocab(*corpusPath, countUint(*minFreq), *normalize)
		check(err)
		check(v.saveToFile(*vocabPath))

	case trainCommand:
		if *corpusPath == "" || *outputPath == "" {
			check(fmt.Errorf("train: -corpus and -output are required"))
		}
		stat, err := os.Stat(*corpusPath)
		check(err)

		params := &trainParams{
			corpusPath:   *corpusPath,
			corpusSize:   stat.Size(),
			vocabPath:    *vocabPath,
			outputPath:   *outputPath,
			storePath:    *storePath,
			dim:          *dim,
			window:       *window,
			iterations:   *iterations,
			negative:     *negative,
			numThreads:   *numThreads,
			initialAlpha: real(*initialAlpha),
			minFreq:      countUint(*minFreq),
			binary:       *binaryFlag,
			normalize:    *normalize,
			verbose:      *verbose,
		}

		var v *vocabulary
		if params.vocabPath != "" {
			logger.Info("reading vocab")
			v, err = readVocabFile(params.vocabPath)
		} else {
			v, err = buildVocab(params.corpusPath, params.minFreq, params.normalize)
		}
		check(err)
		if *saveVocabPath != "" {
			logger.Infof("saving vocab to %s", *saveVocabPath)
			check(v.saveToFile(*saveVocabPath))
		}

		net := newNeuralNet(v.size(), params.dim)
		check(train(net, v, params))

		logger.Info("saving vectors")
		check(net.save(v, params.outputPath, params.binary))
		if params.storePath != "" {
			logger.Infof("saving vector store to %s", params.storePath)
			check(storeVectors(net, v, params.storePath))
		}

	case queryCommand:
		if *storePath == "" || *queryWord == "" {
			check(fmt.Errorf("query: -store and -word are required"))
		}
		store, err := openVectorStore(*storePath, true)
		check(err)
		defer store.close()
		neighbors, err := nearestNeighbors(store, *queryWord, *topK)
		check(err)
		for _, nb := range neighbors {
			fmt.Printf("%s %.6f\n", nb.word, nb.sim)
		}

	default:
		usage()
		os.Exit(1)
	}

	logger.Info("finished!")
}

func usage() {
	fmt.Printf("Usage: wordvec [command] [options]\n" +
		"Commands: vocab, train, query\n" +
		"Run `wordvec [command] -h` for command options.\n")
}
