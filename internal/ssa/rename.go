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

type _Renamer struct {
    cfg   *CFG
    stack map[ir.TempKey][]int
}

func (self *_Renamer) pushr(k ir.TempKey) int {
    fn := self.cfg.Func
    ret := fn.TempCount
    fn.TempCount++
    self.stack[k] = append(self.stack[k], ret)
    return ret
}

func (self *_Renamer) popr(k ir.TempKey) {
    n := len(self.stack[k])
    self.stack[k] = self.stack[k][:n-1]
}

func (self *_Renamer) topr(k ir.TempKey) (int, bool) {
    if n := len(self.stack[k]); n == 0 {
        return 0, false
    } else {
        return self.stack[k][n-1], true
    }
}

// rename points a use to the reaching version. A use without a reaching
// definition reads the original storage and is left alone.
func (self *_Renamer) rename(t *ir.Temp) {
    if !isCollectable(self.cfg.Func, t) {
        return
    }
    if v, ok := self.topr(t.Key()); ok {
        t.Kind = ir.VirtualRegister
        t.Index = v
    }
}

func (self *_Renamer) renameuse(slot *ir.Expr) {
    if t, ok := (*slot).(*ir.Temp); ok {
        self.rename(t)
    }
}

func (self *_Renamer) renameblock(bb *ir.BasicBlock) {
    var defs []ir.TempKey
    fn := self.cfg.Func

    /* rename the statements of this block */
    for _, s := range bb.Stmts {
        if _, ok := s.(*ir.Phi); !ok {
            ir.ForEachUse(s, self.renameuse)
        }

        /* every definition creates a new version */
        if d := s.Def(); d != nil && isCollectable(fn, d) {
            k := d.Key()
            d.Kind = ir.VirtualRegister
            d.Index = self.pushr(k)
            defs = append(defs, k)
        }
    }

    /* the phi operands flowing out of this block */
    for _, id := range bb.Out {
        succ := fn.Block(id)
        j := succ.PredIndex(bb.Index)
        for _, phi := range succ.Phis() {
            self.renameuse(&phi.Incoming[j])
        }
    }

    /* rename the dominated blocks */
    for _, id := range self.cfg.DominatorOf[bb.Index] {
        self.renameblock(fn.Block(id))
    }

    /* restore the versions of this block */
    for i := len(defs) - 1; i >= 0; i-- {
        self.popr(defs[i])
    }
}

// reserveTemps moves the temp counter past every virtual register in use,
// so fresh versions never alias an unversioned register.
func reserveTemps(fn *ir.Function) {
    bump := func(t *ir.Temp) {
        if t.Kind == ir.VirtualRegister && t.Index >= fn.TempCount {
            fn.TempCount = t.Index + 1
        }
    }

    /* scan definitions and uses */
    fn.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        if d := s.Def(); d != nil {
            bump(d)
        }
        for _, t := range ir.UsedTemps(s) {
            bump(t)
        }
    })
}

func renameVariables(cfg *CFG) {
    reserveTemps(cfg.Func)
    rn := &_Renamer{
        cfg:   cfg,
        stack: make(map[ir.TempKey][]int),
    }
    rn.renameblock(cfg.Root)
}
