package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testHashSize  = 4096
	testTableSize = 100000
)

func TestBuildVocab(t *testing.T) {
	corpus := writeCorpus(t, "the quick fox\nthe fox\nthe\n")
	v, err := buildVocabSized(corpus, 1, false, testHashSize, testTableSize)
	if err != nil {
		t.Fatal(err)
	}

	if v.words[0].w != ctxBreakToken {
		t.Fatalf("wordID 0 is %q, want %q", v.words[0].w, ctxBreakToken)
	}
	if got := v.search(ctxBreakToken); got != 0 {
		t.Fatalf("search(%q) = %d, want 0", ctxBreakToken, got)
	}

	// search of any retained word indexes back to that word.
	for _, w := range []string{"the", "quick", "fox"} {
		idx := v.search(w)
		if idx == wordNotFound {
			t.Fatalf("search(%q) = not found", w)
		}
		if v.words[idx].w != w {
			t.Fatalf("words[search(%q)] = %q", w, v.words[idx].w)
		}
	}
	if v.search("missing") != wordNotFound {
		t.Fatal("search of unseen word did not return not-found")
	}

	// Non-sentinel entries are sorted by descending count.
	if v.words[1].w != "the" || v.words[1].freq != 3 {
		t.Fatalf("words[1] = %v, want {the 3}", v.words[1])
	}
	if v.words[2].w != "fox" || v.words[2].freq != 2 {
		t.Fatalf("words[2] = %v, want {fox 2}", v.words[2])
	}

	// 1 sentinel insert + 3 sentinels from newlines + 6 words.
	if v.trainWords != 10 {
		t.Fatalf("trainWords = %d, want 10", v.trainWords)
	}
}

func TestBuildVocabMinCount(t *testing.T) {
	corpus := writeCorpus(t, "a a a b b c\na a b\n")
	v, err := buildVocabSized(corpus, 2, false, testHashSize, testTableSize)
	if err != nil {
		t.Fatal(err)
	}

	if v.search("c") != wordNotFound {
		t.Fatal("word below min count was retained")
	}

	// Sum of retained non-sentinel counts equals the occurrences of words
	// whose final count >= minFreq: a=5, b=3.
	var sum uint64
	for _, e := range v.words[1:] {
		sum += uint64(e.freq)
	}
	if sum != 8 {
		t.Fatalf("retained count sum = %d, want 8", sum)
	}
}

func TestVocabSaveLoadRoundTrip(t *testing.T) {
	corpus := writeCorpus(t, "b b b a a c\nb a c\n")
	v, err := buildVocabSized(corpus, 1, false, testHashSize, testTableSize)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := v.saveToFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := readVocabFileSized(path, testHashSize, testTableSize)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.size() != v.size() {
		t.Fatalf("loaded %d words, saved %d", loaded.size(), v.size())
	}
	if loaded.trainWords != v.trainWords {
		t.Fatalf("loaded trainWords %d, saved %d", loaded.trainWords, v.trainWords)
	}
	for _, e := range v.words {
		got := loaded.search(e.w)
		want := v.search(e.w)
		if got != want {
			t.Fatalf("search(%q) = %d after load, want %d", e.w, got, want)
		}
		if loaded.words[got].freq != e.freq {
			t.Fatalf("count of %q = %d after load, want %d", e.w, loaded.words[got].freq, e.freq)
		}
	}
}

func TestReadVocabFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing count", "word\n"},
		{"extra field", "word 3 junk\n"},
		{"non-numeric count", "word many\n"},
		{"negative count", "word -3\n"},
		{"empty word", " 5\n"},
		{"duplicate word", "word 3\nword 4\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vocab.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := readVocabFileSized(path, testHashSize, testTableSize); err == nil {
				t.Fatalf("load of %q succeeded, want error", tt.content)
			}
		})
	}
}

func TestReadVocabFileNoMinCountFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("</s> 1\nrare 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	v, err := readVocabFileSized(path, testHashSize, testTableSize)
	if err != nil {
		t.Fatal(err)
	}
	if v.search("rare") == wordNotFound {
		t.Fatal("load dropped a low-count word; min-count must not be reapplied")
	}
}

func TestVocabPrune(t *testing.T) {
	// Capacity 10: a pruning pass runs when distinct entries exceed 7.
	v := newVocabularySized(10, testTableSize)
	v.addWord(ctxBreakToken)
	for i := 0; i < 3; i++ {
		v.addWord("kept")
	}
	for _, w := range []string{"a", "b", "c", "d", "e"} {
		v.addWord(w)
	}
	if v.minReduce != 1 {
		t.Fatal("prune ran early")
	}

	// The eighth distinct entry pushes past the load factor and prunes
	// everything with count <= 1.
	v.addWord("f")
	if v.minReduce != 2 {
		t.Fatalf("minReduce = %d, want 2 after one pruning pass", v.minReduce)
	}
	if v.words[0].w != ctxBreakToken {
		t.Fatal("prune displaced the sentinel from wordID 0")
	}
	if idx := v.search("kept"); idx == wordNotFound || v.words[idx].freq != 3 {
		t.Fatal("prune dropped or corrupted a frequent word")
	}
	for _, w := range []string{"a", "b", "c", "d", "e", "f"} {
		if v.search(w) != wordNotFound {
			t.Fatalf("prune retained low-count word %q", w)
		}
	}

	// trainWords tracks only retained occurrences after a rebuild.
	var sum uint64
	for _, e := range v.words {
		sum += uint64(e.freq)
	}
	if v.trainWords != sum {
		t.Fatalf("trainWords = %d, counts sum to %d", v.trainWords, sum)
	}
}

func TestVocabHashNoDuplicates(t *testing.T) {
	v := newVocabularySized(testHashSize, testTableSize)
	v.addWord(ctxBreakToken)
	words := []string{"alpha", "beta", "gamma", "alpha", "beta", "alpha"}
	for _, w := range words {
		v.addWord(w)
	}
	if v.size() != 4 {
		t.Fatalf("vocab size = %d, want 4", v.size())
	}
	if idx := v.search("alpha"); v.words[idx].freq != 3 {
		t.Fatalf("count of alpha = %d, want 3", v.words[idx].freq)
	}
}

func TestBuildVocabLargeAlphabet(t *testing.T) {
	// Force several prune passes during a real learn pass.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		for j := 0; j <= i%5; j++ {
			b.WriteString("w")
			b.WriteByte(byte('a' + i%26))
			b.WriteByte(byte('a' + i/26))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	corpus := writeCorpus(t, b.String())
	v, err := buildVocabSized(corpus, 1, false, 16, testTableSize)
	if err != nil {
		t.Fatal(err)
	}
	if v.words[0].w != ctxBreakToken {
		t.Fatal("sentinel displaced")
	}
	for widx, e := range v.words {
		if got := v.search(e.w); got != idxInt(widx) {
			t.Fatalf("search(%q) = %d, want %d", e.w, got, widx)
		}
	}
}
