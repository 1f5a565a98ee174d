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
    `math`

    `github.com/cloudwego/vmopt/ir`
)

// BranchElim turns conditional branches on a literal into jumps, then
// deletes the blocks that can no longer be reached.
type BranchElim struct{}

func truthy(c *ir.Const) bool {
    return !isNullish(c) && c.Value != 0 && !math.IsNaN(c.Value)
}

// dropPhiOperands forgets the reads of the phi operands that flow into a
// block from the given predecessor.
func dropPhiOperands(du *DefUses, bb *ir.BasicBlock, pred ir.BlockID) {
    i := bb.PredIndex(pred)
    if i < 0 {
        return
    }
    for _, phi := range bb.Phis() {
        if t, ok := phi.Incoming[i].(*ir.Temp); ok {
            du.RemoveUse(phi, t.Key())
        }
    }
}

// unlink removes the edge between two blocks, along with the phi operands
// flowing through it.
func (self BranchElim) unlink(cfg *CFG, from *ir.BasicBlock, to *ir.BasicBlock) {
    dropPhiOperands(cfg.DefUses, to, from.Index)

    /* the successor side */
    if i := to.PredIndex(from.Index); i >= 0 {
        to.In = append(to.In[:i], to.In[i+1:]...)
        for _, phi := range to.Phis() {
            phi.Incoming = append(phi.Incoming[:i], phi.Incoming[i+1:]...)
        }
    }

    /* the predecessor side */
    if i := from.SuccIndex(to.Index); i >= 0 {
        from.Out = append(from.Out[:i], from.Out[i+1:]...)
    }
}

// sweep deletes the blocks that are not reachable from the entry.
func (self BranchElim) sweep(cfg *CFG) int {
    fn := cfg.Func
    du := cfg.DefUses
    live := reachable(fn, fn.Entry())

    /* find the dead blocks */
    var dead []*ir.BasicBlock
    for _, bb := range fn.Blocks {
        if !live[bb.Index] {
            dead = append(dead, bb)
        }
    }

    /* forget everything they define and read */
    for _, bb := range dead {
        for _, id := range bb.Out {
            if live[id] {
                dropPhiOperands(du, fn.Block(id), bb.Index)
            }
        }
        for _, s := range bb.Stmts {
            du.RemoveStmt(s)
            if d := s.Def(); d != nil && cfg.Collectable(d) {
                du.RemoveDef(d.Key())
            }
        }
    }

    /* then remove them */
    for _, bb := range dead {
        fn.RemoveBlock(bb)
    }
    return len(dead)
}

func (self BranchElim) Apply(cfg *CFG) error {
    nb := 0
    fn := cfg.Func

    /* rewrite the branches */
    for _, bb := range fn.Blocks {
        if s, ok := bb.Terminator().(*ir.CJump); ok {
            if c, ok := s.Cond.(*ir.Const); ok {
                taken, dropped := s.IfTrue, s.IfFalse
                if !truthy(c) {
                    taken, dropped = dropped, taken
                }
                if dropped != taken {
                    self.unlink(cfg, bb, cfg.Block(dropped))
                }
                bb.Stmts[len(bb.Stmts)-1] = &ir.Jump{Target: taken}
                cfg.DefUses.RemoveStmt(s)
                nb++
            }
        }
    }

    /* nothing changed */
    if nb == 0 {
        cfg.tracef("%s: no constant branches", fn.Name)
        return nil
    }

    /* the dominator tree is stale once blocks are gone */
    n := self.sweep(cfg)
    cfg.Rebuild()
    statAdd(&BranchCount, nb)
    cfg.tracef("%s: folded %d branches, removed %d blocks", fn.Name, nb, n)
    return nil
}
