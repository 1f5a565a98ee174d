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
    `github.com/cloudwego/vmopt/ir`
)

// OptionalJumps finds the jumps whose target is the block laid out right
// after them, possibly through empty blocks whose own jumps are optional.
// The backend can fall through instead of emitting them.
type OptionalJumps struct{}

func optionalJumps(fn *ir.Function) map[*ir.Jump]bool {
    ret := make(map[*ir.Jump]bool)
    next := make(map[ir.BlockID]bool)

    /* walk the schedule backwards */
    for i := len(fn.Blocks) - 1; i >= 0; i-- {
        bb := fn.Blocks[i]
        if j, ok := bb.Terminator().(*ir.Jump); ok && next[j.Target] {
            if len(bb.Stmts) > 1 {
                next = make(map[ir.BlockID]bool)
            }
            ret[j] = true
            next[bb.Index] = true
            continue
        }

        /* only this block is reached by falling through */
        next = map[ir.BlockID]bool{bb.Index: true}
    }
    return ret
}

func (OptionalJumps) Apply(cfg *CFG) error {
    cfg.OptionalJumps = optionalJumps(cfg.Func)
    cfg.tracef("%s: %d optional jumps", cfg.Func.Name, len(cfg.OptionalJumps))
    return nil
}
