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

package ssa

import (
    `github.com/cloudwego/vmopt/internal/opts`
    `github.com/cloudwego/vmopt/ir`
)

// CFG is the state shared by the SSA passes of a single function.
type CFG struct {
    *DominatorTree
    Func      *ir.Function
    Opts      *opts.Options
    DefUses   *DefUses
    Types     map[ir.TempKey]ir.Type
    LoopEnds  map[ir.BlockID]ir.BlockID
    Intervals []*ir.LifeTimeInterval
    InSSA     bool

    // OptionalJumps are the jumps to the block that follows in the final
    // schedule.
    OptionalJumps map[*ir.Jump]bool
}

func newCFG(fn *ir.Function, o *opts.Options) *CFG {
    return &CFG{
        Func:  fn,
        Opts:  o,
        Types: make(map[ir.TempKey]ir.Type),
    }
}

// Rebuild recomputes the dominator tree after the block set changed.
func (self *CFG) Rebuild() {
    self.DominatorTree = BuildDominatorTree(self.Func)
}

func (self *CFG) Block(id ir.BlockID) *ir.BasicBlock {
    return self.Func.Block(id)
}

// Collectable reports whether the temp is tracked in SSA form.
func (self *CFG) Collectable(t *ir.Temp) bool {
    return isCollectable(self.Func, t)
}

func (self *CFG) tracef(format string, args ...interface{}) {
    self.Opts.Tracef(format, args...)
}

func (self *CFG) dump(stage string) {
    if self.Opts.Trace() {
        self.Opts.Sink.DumpFunction(stage, self.Func)
    }
}
