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

type _Move struct {
    to   *ir.Temp
    from ir.Expr
}

// MoveMapping is a set of moves that happen simultaneously, like the phi
// nodes of a block along one incoming edge.
type MoveMapping struct {
    moves []_Move
}

func sameStorage(e ir.Expr, t *ir.Temp) bool {
    if v, ok := e.(*ir.Temp); ok {
        return v.Is(t)
    } else {
        return false
    }
}

// Add records to <- from. Moves between the same storage are dropped.
func (self *MoveMapping) Add(from ir.Expr, to *ir.Temp) {
    if sameStorage(from, to) {
        return
    }
    self.moves = append(self.moves, _Move{to: to, from: from})
}

func (self *MoveMapping) Len() int {
    return len(self.moves)
}

func (self *MoveMapping) isSource(t *ir.Temp, skip int) bool {
    for i, m := range self.moves {
        if i != skip && sameStorage(m.from, t) {
            return true
        }
    }
    return false
}

// Order sequentializes the moves. A move is emitted as soon as its target
// is no longer read by a pending move; the cycles left over are broken
// with swaps.
func (self *MoveMapping) Order() []*ir.Move {
    var ret []*ir.Move
    for len(self.moves) != 0 {
        ready := -1

        /* find a move whose target is not needed anymore */
        for i, m := range self.moves {
            if !self.isSource(m.to, i) {
                ready = i
                break
            }
        }

        /* emit the copy */
        if ready >= 0 {
            m := self.moves[ready]
            ret = append(ret, ir.NewMove(ir.CloneExpr(m.to), ir.CloneExpr(m.from)))
            self.moves = append(self.moves[:ready], self.moves[ready+1:]...)
            continue
        }

        /* only cycles are left, exchange the first pair */
        m := self.moves[0]
        src := m.from.(*ir.Temp)
        swap := ir.NewMove(ir.CloneExpr(m.to), ir.CloneExpr(src))
        swap.Swap = true
        ret = append(ret, swap)
        self.moves = self.moves[1:]

        /* the old value of the target now lives in the source */
        rest := self.moves[:0]
        for _, v := range self.moves {
            if sameStorage(v.from, m.to) {
                v.from = src
            }
            if !sameStorage(v.from, v.to) {
                rest = append(rest, v)
            }
        }
        self.moves = rest
    }
    return ret
}

// OutOfSSA replaces the phi nodes with moves at the end of the predecessor
// blocks. The CFG must be free of critical edges.
type OutOfSSA struct{}

func (self OutOfSSA) Apply(cfg *CFG) error {
    fn := cfg.Func
    if cfg.Opts.KeepSSA {
        return nil
    }

    /* resolve the phis of every block, edge by edge */
    for _, bb := range fn.Blocks {
        phis := bb.Phis()
        if len(phis) == 0 {
            continue
        }

        /* the moves of each incoming edge happen simultaneously */
        for i, id := range bb.In {
            mm := new(MoveMapping)
            for _, phi := range phis {
                mm.Add(phi.Incoming[i], phi.Target)
            }
            if mm.Len() == 0 {
                continue
            }

            /* insert before the jump */
            moves := mm.Order()
            stmts := make([]ir.Stmt, len(moves))
            for j, m := range moves {
                stmts[j] = m
            }
            fn.Block(id).InsertBeforeTerminator(stmts...)
        }

        /* the phis are gone */
        bb.Stmts = bb.Stmts[len(phis):]
    }

    cfg.InSSA = false
    cfg.DefUses = nil
    cfg.dump("out of SSA")
    return nil
}
