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

func keyTemp(k ir.TempKey) *ir.Temp {
    return ir.NewTemp(k.Kind, k.Index, k.Scope)
}

func newPhi(bb *ir.BasicBlock, k ir.TempKey) *ir.Phi {
    src := make([]ir.Expr, len(bb.In))
    for i := range src {
        src[i] = keyTemp(k)
    }
    return ir.NewPhi(keyTemp(k), src)
}

// insertPhiNodes places phi nodes for every variable that is live across
// blocks, at the iterated dominance frontier of its definition sites.
func insertPhiNodes(cfg *CFG, vars *_Variables) int {
    nb := 0
    fn := cfg.Func

    /* process every non-local variable */
    for _, k := range vars.vars {
        if !vars.NonLocal(k) {
            continue
        }

        /* seed with the definition sites */
        q := lane.NewQueue()
        phi := make(map[ir.BlockID]bool)
        for _, id := range vars.defsites[k] {
            q.Enqueue(id)
        }

        /* walk the iterated dominance frontier */
        for !q.Empty() {
            for _, y := range cfg.DominanceFrontier[q.Dequeue().(ir.BlockID)] {
                if phi[y] {
                    continue
                }

                /* insert after the phis already there */
                bb := fn.Block(y)
                bb.InsertAt(bb.PhiCount(), newPhi(bb, k))
                phi[y] = true
                nb++

                /* the phi is a new definition of the variable */
                if !vars.DefinedIn(y, k) {
                    q.Enqueue(y)
                }
            }
        }
    }

    statAdd(&PhiCount, nb)
    return nb
}
