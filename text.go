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
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	readBufferSize = 8192
	maxTokenLen    = 64
)

// tokenizer streams whitespace-separated tokens from a file starting at an
// arbitrary byte offset. Every newline additionally yields one ctxBreakToken.
// A token split across two physical reads is stitched together in rest; a
// stitched token is force-emitted once it reaches maxTokenLen so a run of
// non-separator bytes longer than the read buffer cannot grow without bound.
type tokenizer struct {
	file         *os.File
	buf          []byte
	start, end   int
	rest         []byte
	pendingBreak bool
	normalize    bool
}

func isTokenSeparator(b byte) bool {
	return b == '\n' || b == ' ' || b == '\t' || b == '\r'
}

func isDocSeparator(b byte) bool {
	return b == '\n'
}

func newTokenizer(path string, offset int64, normalize bool) (*tokenizer, error) {
	return newTokenizerSize(path, offset, normalize, readBufferSize)
}

// newTokenizerSize exists so tests can shrink the read buffer and exercise
// tokens straddling a buffer boundary.
func newTokenizerSize(path string, offset int64, normalize bool, bufSize int) (*tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	t := &tokenizer{file: f, buf: make([]byte, bufSize), normalize: normalize}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

// reset re-starts iteration from the given offset, discarding any partial
// token and any pending sentence break.
func (t *tokenizer) reset(offset int64) error {
	if _, err := t.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	t.start = 0
	t.end = 0
	t.rest = t.rest[:0]
	t.pendingBreak = false
	return nil
}

func (t *tokenizer) Close() error {
	return t.file.Close()
}

// token converts raw bytes to a token string, mapping invalid UTF-8 to the
// replacement token rather than failing the read.
func (t *tokenizer) token(b []byte) string {
	if !utf8.Valid(b) {
		return invalidToken
	}
	if t.normalize {
		return norm.NFC.String(string(b))
	}
	return string(b)
}

// next returns the next token, or io.EOF at the end of the sequence. It never
// returns a zero-length token.
func (t *tokenizer) next() (string, error) {
	if t.pendingBreak {
		t.pendingBreak = false
		return ctxBreakToken, nil
	}

	for {
		if t.start == t.end {
			n, err := t.file.Read(t.buf)
			if n == 0 {
				if err != nil && err != io.EOF {
					return "", err
				}
				if len(t.rest) > 0 {
					tok := t.token(t.rest)
					t.rest = t.rest[:0]
					return tok, nil
				}
				return "", io.EOF
			}
			t.start, t.end = 0, n
		}

		// Trailing bytes from the previous read: if this read holds the
		// token's terminating separator, stitch and emit.
		if len(t.rest) > 0 {
			if pos := indexSeparator(t.buf[t.start:t.end]); pos >= 0 {
				t.rest = append(t.rest, t.buf[t.start:t.start+pos]...)
				if isDocSeparator(t.buf[t.start+pos]) {
					t.pendingBreak = true
				}
				t.start += pos + 1
				tok := t.token(t.rest)
				t.rest = t.rest[:0]
				return tok, nil
			}
		}

		tokStart, tokEnd := t.start, t.start
		for i := t.start; i < t.end; i++ {
			b := t.buf[i]
			if !isTokenSeparator(b) {
				tokEnd++
				continue
			}
			if tokEnd == tokStart {
				// Consecutive separators. A newline still marks a
				// sentence break, even on an empty line.
				tokEnd++
				tokStart = tokEnd
				t.start = tokEnd
				if isDocSeparator(b) {
					return ctxBreakToken, nil
				}
				continue
			}
			if isDocSeparator(b) {
				t.pendingBreak = true
			}
			t.start = tokEnd + 1
			return t.token(t.buf[tokStart:tokEnd]), nil
		}

		if tokEnd > tokStart {
			t.rest = append(t.rest, t.buf[tokStart:tokEnd]...)
			t.start, t.end = 0, 0
			if len(t.rest) < maxTokenLen {
				continue
			}
			tok := t.token(t.rest)
			t.rest = t.rest[:0]
			return tok, nil
		}
		t.start, t.end = 0, 0
	}
}

func indexSeparator(data []byte) int {
	for i, b := range data {
		if isTokenSeparator(b) {
			return i
		}
	}
	return -1
}
