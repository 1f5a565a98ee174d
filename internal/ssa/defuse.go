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
    `sort`

    `github.com/cloudwego/vmopt/ir`
)

// DefUse is the defining statement and the uses of an SSA temp. A
// statement that reads the temp twice is listed twice.
type DefUse struct {
    Temp  ir.TempKey
    Def   ir.Stmt
    Block *ir.BasicBlock
    uses  []ir.Stmt
    pos   map[ir.Stmt][]int
    live  int
}

func newDefUse(k ir.TempKey) *DefUse {
    return &DefUse{
        Temp: k,
        pos:  make(map[ir.Stmt][]int),
    }
}

// Uses returns the uses in the order they were recorded.
func (self *DefUse) Uses() []ir.Stmt {
    ret := make([]ir.Stmt, 0, self.live)
    for _, s := range self.uses {
        if s != nil {
            ret = append(ret, s)
        }
    }
    return ret
}

func (self *DefUse) UseCount() int {
    return self.live
}

func (self *DefUse) addUse(s ir.Stmt) {
    self.pos[s] = append(self.pos[s], len(self.uses))
    self.uses = append(self.uses, s)
    self.live++
}

func (self *DefUse) removeUse(s ir.Stmt) bool {
    p := self.pos[s]
    n := len(p)

    /* not used by this statement */
    if n == 0 {
        return false
    }

    /* tombstone the last occurrence */
    self.uses[p[n-1]] = nil
    self.live--
    if n == 1 {
        delete(self.pos, s)
    } else {
        self.pos[s] = p[:n-1]
    }

    /* compact when mostly tombstones */
    if len(self.uses) > 2*self.live+8 {
        self.compact()
    }
    return true
}

func (self *DefUse) compact() {
    buf := self.uses
    self.uses = make([]ir.Stmt, 0, self.live)
    self.pos = make(map[ir.Stmt][]int, len(self.pos))
    for _, s := range buf {
        if s != nil {
            self.pos[s] = append(self.pos[s], len(self.uses))
            self.uses = append(self.uses, s)
        }
    }
}

// DefUses indexes the definitions and uses of every SSA temp.
type DefUses struct {
    fn    *ir.Function
    temps map[ir.TempKey]*DefUse
    used  map[ir.Stmt][]ir.TempKey
}

func newDefUses(fn *ir.Function) *DefUses {
    return &DefUses{
        fn:    fn,
        temps: make(map[ir.TempKey]*DefUse),
        used:  make(map[ir.Stmt][]ir.TempKey),
    }
}

// BuildDefUses scans every statement of the function. Temps that are read
// but never defined are not tracked.
func BuildDefUses(fn *ir.Function) *DefUses {
    ret := newDefUses(fn)

    /* record all the definitions and uses */
    for _, bb := range fn.Blocks {
        for _, s := range bb.Stmts {
            if d := s.Def(); d != nil && isCollectable(fn, d) {
                ret.AddTemp(d, s, bb)
            }
            for _, t := range ir.UsedTemps(s) {
                if isCollectable(fn, t) {
                    ret.AddUse(t.Key(), s)
                }
            }
        }
    }

    /* drop the temps without a definition */
    for k, du := range ret.temps {
        if du.Def == nil {
            delete(ret.temps, k)
        }
    }
    return ret
}

func (self *DefUses) get(k ir.TempKey) *DefUse {
    du := self.temps[k]
    if du == nil {
        du = newDefUse(k)
        self.temps[k] = du
    }
    return du
}

// AddTemp records the definition of a temp.
func (self *DefUses) AddTemp(t *ir.Temp, def ir.Stmt, bb *ir.BasicBlock) {
    du := self.get(t.Key())
    du.Def = def
    du.Block = bb
}

// AddUse records one more read of a temp by a statement.
func (self *DefUses) AddUse(k ir.TempKey, s ir.Stmt) {
    self.get(k).addUse(s)
    self.used[s] = append(self.used[s], k)
}

// RemoveUse forgets one read of the temp by the statement.
func (self *DefUses) RemoveUse(s ir.Stmt, k ir.TempKey) {
    if du := self.temps[k]; du != nil {
        du.removeUse(s)
    }

    /* also drop it from the statement's list */
    v := self.used[s]
    for i := len(v) - 1; i >= 0; i-- {
        if v[i] == k {
            self.used[s] = append(v[:i:i], v[i+1:]...)
            break
        }
    }
    if len(self.used[s]) == 0 {
        delete(self.used, s)
    }
}

// RemoveDef forgets the temp entirely.
func (self *DefUses) RemoveDef(k ir.TempKey) {
    delete(self.temps, k)
}

// RemoveStmt forgets every read made by the statement, and returns the
// temps it read.
func (self *DefUses) RemoveStmt(s ir.Stmt) []ir.TempKey {
    ret := self.used[s]
    for _, k := range ret {
        if du := self.temps[k]; du != nil {
            du.removeUse(s)
        }
    }
    delete(self.used, s)
    return ret
}

func (self *DefUses) Get(k ir.TempKey) *DefUse {
    return self.temps[k]
}

func (self *DefUses) DefStmt(k ir.TempKey) ir.Stmt {
    if du := self.temps[k]; du == nil {
        return nil
    } else {
        return du.Def
    }
}

func (self *DefUses) Uses(k ir.TempKey) []ir.Stmt {
    if du := self.temps[k]; du == nil {
        return nil
    } else {
        return du.Uses()
    }
}

// UsedTemps returns the tracked temps read by a statement.
func (self *DefUses) UsedTemps(s ir.Stmt) []ir.TempKey {
    return self.used[s]
}

// Defs returns every tracked temp in a stable order.
func (self *DefUses) Defs() []ir.TempKey {
    ret := make([]ir.TempKey, 0, len(self.temps))
    for k := range self.temps {
        ret = append(ret, k)
    }
    sort.Slice(ret, func(i int, j int) bool {
        return ret[i].Less(ret[j])
    })
    return ret
}

func (self *DefUses) Len() int {
    return len(self.temps)
}
