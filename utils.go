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
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
}

// initLogging maps the integer verbosity surface (0 = errors only, 1 = info,
// 2 = debug) onto logrus levels.
func initLogging(verbose int) {
	switch {
	case verbose <= errorLogLevel:
		logger.SetLevel(logrus.ErrorLevel)
	case verbose == infoLogLevel:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.DebugLevel)
	}
}

// check aborts on error. Command glue only; core operations return errors.
func check(e error) {
	if e != nil {
		logger.Fatalf("%v", e)
	}
}

func checkCountIncOverflow(v countUint) {
	if v == 0 {
		panic(errors.New("overflow in countUint, change type countUint = uint32 to countUint = uint64"))
	}
}

type progressPrinter struct {
	n   uint64
	mod uint64
}

func newProgressPrinter(mod uint64) *progressPrinter {
	return &progressPrinter{0, mod}
}

func (p *progressPrinter) inc() {
	p.n++
	if p.n%p.mod == 0 {
		logger.Debugf("%dK tokens", p.n/1000)
	}
}
