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

// _Worklist is a queue of statements without duplicates. Statements that
// were removed in the meantime are skipped.
type _Worklist struct {
    q       *lane.Queue
    queued  map[ir.Stmt]bool
    removed map[ir.Stmt]bool
}

func newWorklist() *_Worklist {
    return &_Worklist{
        q:       lane.NewQueue(),
        queued:  make(map[ir.Stmt]bool),
        removed: make(map[ir.Stmt]bool),
    }
}

func (self *_Worklist) add(s ir.Stmt) {
    if !self.queued[s] && !self.removed[s] {
        self.q.Enqueue(s)
        self.queued[s] = true
    }
}

func (self *_Worklist) drop(s ir.Stmt) {
    self.removed[s] = true
}

func (self *_Worklist) next() ir.Stmt {
    for !self.q.Empty() {
        s := self.q.Dequeue().(ir.Stmt)
        self.queued[s] = false
        if !self.removed[s] {
            return s
        }
    }
    return nil
}

// _Rewriter edits the statements of a function in SSA form and keeps the
// def-use chains in sync.
type _Rewriter struct {
    cfg *CFG
    du  *DefUses
    w   *_Worklist
    nb  int
}

func newRewriter(cfg *CFG) *_Rewriter {
    ret := &_Rewriter{
        cfg: cfg,
        du:  cfg.DefUses,
        w:   newWorklist(),
    }

    /* every statement is visited at least once */
    cfg.Func.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        ret.w.add(s)
    })
    return ret
}

// tracked returns e as a temp when it is an SSA temp with a known
// definition, nil otherwise.
func (self *_Rewriter) tracked(e ir.Expr) *ir.Temp {
    if t, ok := e.(*ir.Temp); !ok || !self.cfg.Collectable(t) || self.du.Get(t.Key()) == nil {
        return nil
    } else {
        return t
    }
}

// changed marks the statement for another visit.
func (self *_Rewriter) changed(s ir.Stmt) {
    self.nb++
    self.w.add(s)
}

// replaceUses substitutes a copy of e for every read of the temp. The
// readers are visited again.
func (self *_Rewriter) replaceUses(k ir.TempKey, e ir.Expr) {
    seen := make(map[ir.Stmt]bool)
    for _, s := range self.du.Uses(k) {
        if seen[s] {
            continue
        }

        /* a statement may read the temp more than once */
        seen[s] = true
        ir.ForEachUse(s, func(slot *ir.Expr) {
            if t, ok := (*slot).(*ir.Temp); ok && self.cfg.Collectable(t) && t.Key() == k {
                *slot = ir.CloneExpr(e)
                self.du.RemoveUse(s, k)
                if v := self.tracked(e); v != nil {
                    self.du.AddUse(v.Key(), s)
                }
            }
        })
        self.changed(s)
    }
}

// remove deletes the definition of an SSA temp along with its reads.
func (self *_Rewriter) remove(s ir.Stmt) {
    k := s.Def().Key()
    d := self.du.Get(k)
    d.Block.RemoveStmt(s)
    self.du.RemoveStmt(s)
    self.du.RemoveDef(k)
    self.w.drop(s)
    self.nb++
}
