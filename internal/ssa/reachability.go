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
    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

// reachable returns the blocks reachable from the roots through
// outgoing edges.
func reachable(fn *ir.Function, roots ...*ir.BasicBlock) map[ir.BlockID]bool {
    s := lane.NewStack()
    ret := make(map[ir.BlockID]bool, len(fn.Blocks))

    /* iterative depth-first search */
    for _, bb := range roots {
        s.Push(bb)
    }
    for !s.Empty() {
        bb := s.Pop().(*ir.BasicBlock)
        if ret[bb.Index] {
            continue
        }
        ret[bb.Index] = true
        for _, id := range bb.Out {
            if !ret[id] {
                s.Push(fn.Block(id))
            }
        }
    }
    return ret
}

// removeUnreachableBlocks deletes the blocks that can not be reached from
// the entry block or from an exception handler.
func removeUnreachableBlocks(fn *ir.Function) int {
    roots := []*ir.BasicBlock{fn.Entry()}
    for _, bb := range fn.Blocks {
        if bb.Catch != ir.NoBlock {
            roots = append(roots, fn.Block(bb.Catch))
        }
    }

    /* mark the live blocks */
    live := reachable(fn, roots...)
    dead := make([]*ir.BasicBlock, 0, len(fn.Blocks)-len(live))
    for _, bb := range fn.Blocks {
        if !live[bb.Index] {
            dead = append(dead, bb)
        }
    }

    /* then sweep the rest */
    for _, bb := range dead {
        fn.RemoveBlock(bb)
    }
    return len(dead)
}

// lowerTemps maps every virtual register 1:1 onto a stack slot, numbered
// in order of first appearance.
func lowerTemps(fn *ir.Function) int {
    slots := make(map[int]int)
    lower := func(t *ir.Temp) {
        if t.Kind != ir.VirtualRegister {
            return
        }
        idx, ok := slots[t.Index]
        if !ok {
            idx = len(slots)
            slots[t.Index] = idx
        }
        t.Kind = ir.StackSlot
        t.Index = idx
    }

    /* definitions and uses */
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        for _, t := range ir.UsedTemps(s) {
            lower(t)
        }
        if d := s.Def(); d != nil {
            lower(d)
        }
    })
    return len(slots)
}
