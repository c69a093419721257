package main

import (
	"bufio"
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestNewNeuralNetInit(t *testing.T) {
	net := newNeuralNet(5, 8)
	if len(net.syn0) != 40 || len(net.syn1neg) != 40 {
		t.Fatalf("matrix sizes %d/%d, want 40", len(net.syn0), len(net.syn1neg))
	}
	var nonZero bool
	for _, f := range net.syn0 {
		if f < -0.5 || f > 0.5 {
			t.Fatalf("syn0 init value %f out of range", f)
		}
		if f != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("syn0 not initialized")
	}
	for _, f := range net.syn1neg {
		if f != 0 {
			t.Fatal("syn1neg must start zeroed")
		}
	}

	// Same seed, same matrix.
	again := newNeuralNet(5, 8)
	for i := range net.syn0 {
		if net.syn0[i] != again.syn0[i] {
			t.Fatal("initialization is not deterministic")
		}
	}
}

func TestRowAccessors(t *testing.T) {
	net := newNeuralNet(3, 4)
	row := net.inputRow(1)
	if len(row) != 4 {
		t.Fatalf("row length %d, want 4", len(row))
	}
	row[0] = 42
	if net.syn0[4] != 42 {
		t.Fatal("inputRow does not alias the matrix")
	}
	out := net.outputRow(2)
	out[3] = 7
	if net.syn1neg[11] != 7 {
		t.Fatal("outputRow does not alias the matrix")
	}
}

func TestRowLockerStripes(t *testing.T) {
	var l rowLocker
	// Concurrent increments on the same row must serialize.
	var x int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.lock(3)
			x++
			l.unlock(3)
		}()
	}
	wg.Wait()
	if x != 100 {
		t.Fatalf("x = %d, want 100", x)
	}
}

func testVocabForSave(t *testing.T) *vocabulary {
	t.Helper()
	return testVocabWithCounts(t,
		[]string{ctxBreakToken, "alpha", "beta"},
		[]countUint{2, 2, 1},
		testTableSize)
}

func TestSaveVectorsText(t *testing.T) {
	v := testVocabForSave(t)
	net := newNeuralNet(v.size(), 4)
	path := filepath.Join(t.TempDir(), "vectors.txt")
	if err := net.save(v, path, false); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	s := bufio.NewScanner(f)

	if !s.Scan() {
		t.Fatal("missing header")
	}
	header := strings.Fields(s.Text())
	if len(header) != 2 || header[0] != "3" || header[1] != "4" {
		t.Fatalf("header = %q, want \"3 4\"", s.Text())
	}

	var rows int
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 1+4 {
			t.Fatalf("row %q has %d fields, want 5", s.Text(), len(fields))
		}
		if fields[0] != v.words[rows].w {
			t.Fatalf("row %d word = %q, want %q", rows, fields[0], v.words[rows].w)
		}
		for j, fs := range fields[1:] {
			got, err := strconv.ParseFloat(fs, 32)
			if err != nil {
				t.Fatal(err)
			}
			want := float64(net.inputRow(idxInt(rows))[j])
			if math.Abs(got-want) > 1e-6 {
				t.Fatalf("row %d component %d = %f, want %f", rows, j, got, want)
			}
		}
		rows++
	}
	if rows != 3 {
		t.Fatalf("%d rows, want 3", rows)
	}
}

func TestSaveVectorsBinary(t *testing.T) {
	v := testVocabForSave(t)
	dim := 4
	net := newNeuralNet(v.size(), dim)
	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := net.save(v, path, true); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 || string(data[:nl]) != "3 4" {
		t.Fatalf("header = %q, want \"3 4\"", data[:nl])
	}
	rest := data[nl+1:]

	for widx := 0; widx < v.size(); widx++ {
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			t.Fatalf("row %d: missing word separator", widx)
		}
		if string(rest[:sp]) != v.words[widx].w {
			t.Fatalf("row %d word = %q, want %q", widx, rest[:sp], v.words[widx].w)
		}
		rest = rest[sp+1:]
		row := net.inputRow(idxInt(widx))
		for j := 0; j < dim; j++ {
			got := math.Float32frombits(byteOrder.Uint32(rest[j*float32Bytes:]))
			if got != row[j] {
				t.Fatalf("row %d component %d = %f, want %f", widx, j, got, row[j])
			}
		}
		rest = rest[dim*float32Bytes:]
		if len(rest) == 0 || rest[0] != '\n' {
			t.Fatalf("row %d: missing newline terminator", widx)
		}
		rest = rest[1:]
	}
	if len(rest) != 0 {
		t.Fatalf("%d trailing bytes after last row", len(rest))
	}
}
