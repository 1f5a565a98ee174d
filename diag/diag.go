/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package diag provides the diagnostics sinks the optimizer reports to.
// A sink is passed in explicitly; the optimizer keeps no global trace
// state.
package diag

import (
    `fmt`
    `io`
    `sync`

    `github.com/davecgh/go-spew/spew`
    `go.uber.org/zap`

    `github.com/cloudwego/vmopt/ir`
)

// Sink receives trace messages and IR dumps. Implementations must be safe
// for concurrent use, since functions may be optimized in parallel.
type Sink interface {
    // Enabled reports whether the sink records anything. Callers use it
    // to skip building expensive dumps.
    Enabled() bool
    Tracef(format string, args ...interface{})
    DumpFunction(stage string, fn *ir.Function)
    DumpValue(label string, v interface{})
}

// Nop discards everything. It is the default sink.
type Nop struct{}

func (Nop) Enabled() bool                         { return false }
func (Nop) Tracef(_ string, _ ...interface{})     {}
func (Nop) DumpFunction(_ string, _ *ir.Function) {}
func (Nop) DumpValue(_ string, _ interface{})     {}

type writerSink struct {
    mu sync.Mutex
    w  io.Writer
}

// NewWriterSink writes plain text to w: traces one per line, functions as
// IR listings and other values through spew.
func NewWriterSink(w io.Writer) Sink {
    return &writerSink{w: w}
}

func (self *writerSink) Enabled() bool {
    return true
}

func (self *writerSink) Tracef(format string, args ...interface{}) {
    self.mu.Lock()
    defer self.mu.Unlock()
    fmt.Fprintf(self.w, format+"\n", args...)
}

func (self *writerSink) DumpFunction(stage string, fn *ir.Function) {
    self.mu.Lock()
    defer self.mu.Unlock()
    fmt.Fprintf(self.w, "----- %s: %s -----\n%s\n", fn.Name, stage, fn)
}

func (self *writerSink) DumpValue(label string, v interface{}) {
    self.mu.Lock()
    defer self.mu.Unlock()
    fmt.Fprintf(self.w, "----- %s -----\n%s", label, spew.Sdump(v))
}

type zapSink struct {
    log *zap.Logger
}

// NewZapSink records everything as debug level entries of the logger.
func NewZapSink(log *zap.Logger) Sink {
    return &zapSink{log: log.Named("vmopt")}
}

func (self *zapSink) Enabled() bool {
    return self.log.Core().Enabled(zap.DebugLevel)
}

func (self *zapSink) Tracef(format string, args ...interface{}) {
    self.log.Debug(fmt.Sprintf(format, args...))
}

func (self *zapSink) DumpFunction(stage string, fn *ir.Function) {
    self.log.Debug("function dump",
        zap.String("function", fn.Name),
        zap.String("stage", stage),
        zap.Int("blocks", len(fn.Blocks)),
        zap.Stringer("ir", fn),
    )
}

func (self *zapSink) DumpValue(label string, v interface{}) {
    self.log.Debug("value dump",
        zap.String("label", label),
        zap.String("value", spew.Sdump(v)),
    )
}
