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

package ir

import (
    `fmt`
)

// BlockID is the stable index of a basic block inside its function.
type BlockID int

// NoBlock marks an absent block reference.
const NoBlock BlockID = -1

type BasicBlock struct {
    Index BlockID
    Stmts []Stmt
    In    []BlockID
    Out   []BlockID

    // Catch is the exception handler covering this block.
    Catch BlockID

    // Group is the loop header this block belongs to, NoBlock for the
    // function body. GroupStart marks loop headers themselves; a header's
    // own Group is the enclosing group.
    Group      BlockID
    GroupStart bool

    removed bool
}

// Removed reports whether the block was deleted from its function.
func (self *BasicBlock) Removed() bool {
    return self.removed
}

// SuccessorGroup returns the group that a block emitted right after this
// one would belong to.
func (self *BasicBlock) SuccessorGroup() BlockID {
    if self.GroupStart {
        return self.Index
    } else {
        return self.Group
    }
}

func (self *BasicBlock) Terminator() Terminator {
    if n := len(self.Stmts); n == 0 {
        return nil
    } else if t, ok := self.Stmts[n-1].(Terminator); !ok {
        return nil
    } else {
        return t
    }
}

func (self *BasicBlock) IsTerminated() bool {
    return self.Terminator() != nil
}

// PhiCount returns the number of leading phi statements.
func (self *BasicBlock) PhiCount() int {
    for i, s := range self.Stmts {
        if _, ok := s.(*Phi); !ok {
            return i
        }
    }
    return len(self.Stmts)
}

func (self *BasicBlock) Phis() []*Phi {
    n := self.PhiCount()
    ret := make([]*Phi, n)
    for i := 0; i < n; i++ {
        ret[i] = self.Stmts[i].(*Phi)
    }
    return ret
}

// PredIndex returns the position of id in the predecessor list, or -1.
func (self *BasicBlock) PredIndex(id BlockID) int {
    for i, p := range self.In {
        if p == id {
            return i
        }
    }
    return -1
}

// SuccIndex returns the position of id in the successor list, or -1.
func (self *BasicBlock) SuccIndex(id BlockID) int {
    for i, p := range self.Out {
        if p == id {
            return i
        }
    }
    return -1
}

func (self *BasicBlock) Append(s Stmt) {
    if self.IsTerminated() {
        panic(fmt.Sprintf("ir: appending to terminated block L%d", self.Index))
    }
    self.Stmts = append(self.Stmts, s)
}

// InsertAt inserts s before the statement at position i.
func (self *BasicBlock) InsertAt(i int, s Stmt) {
    self.Stmts = append(self.Stmts, nil)
    copy(self.Stmts[i+1:], self.Stmts[i:])
    self.Stmts[i] = s
}

// InsertBeforeTerminator inserts the statements right before the
// terminator, or appends them when the block is not yet terminated.
func (self *BasicBlock) InsertBeforeTerminator(s ...Stmt) {
    n := len(self.Stmts)
    if self.IsTerminated() {
        n--
    }

    /* make room and copy */
    buf := make([]Stmt, 0, len(self.Stmts)+len(s))
    buf = append(buf, self.Stmts[:n]...)
    buf = append(buf, s...)
    self.Stmts = append(buf, self.Stmts[n:]...)
}

// RemoveStmt removes s from the block, reporting whether it was found.
func (self *BasicBlock) RemoveStmt(s Stmt) bool {
    for i, v := range self.Stmts {
        if v == s {
            self.Stmts = append(self.Stmts[:i], self.Stmts[i+1:]...)
            return true
        }
    }
    return false
}

func (self *BasicBlock) AddMove(target Expr, source Expr) *Move {
    s := NewMove(target, source)
    self.Append(s)
    return s
}

func (self *BasicBlock) AddExp(e Expr) *Exp {
    s := &Exp{Expr: e}
    self.Append(s)
    return s
}

// Function is the unit of optimization: a CFG of basic blocks plus the
// facts about the source function the passes depend on.
type Function struct {
    Name      string
    Formals   []string
    Locals    []string
    TempCount int

    HasTry             bool
    HasWith            bool
    UsesEval           bool
    HasNestedFunctions bool
    IsStrict           bool
    DebugMode          bool

    // Blocks is the ordered sequence of live blocks. The first one is the
    // entry block.
    Blocks []*BasicBlock
    arena  []*BasicBlock
}

func NewFunction(name string) *Function {
    return &Function{Name: name}
}

// VariablesCanEscape reports whether locals may be observed outside of
// the function body, through eval, closures or a debugger.
func (self *Function) VariablesCanEscape() bool {
    return self.UsesEval || self.HasNestedFunctions || self.DebugMode
}

// NewBlock creates a block at the end of the block sequence.
func (self *Function) NewBlock(group BlockID, catch BlockID) *BasicBlock {
    bb := &BasicBlock{
        Index: BlockID(len(self.arena)),
        Catch: catch,
        Group: group,
    }
    self.arena = append(self.arena, bb)
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// Block resolves a block reference. Removed blocks are still resolvable.
func (self *Function) Block(id BlockID) *BasicBlock {
    if id < 0 || int(id) >= len(self.arena) {
        panic(fmt.Sprintf("ir: invalid block reference L%d", id))
    }
    return self.arena[id]
}

func (self *Function) Entry() *BasicBlock {
    if len(self.arena) == 0 {
        return nil
    }
    return self.arena[0]
}

// MaxBlock returns the number of block ids allocated so far.
func (self *Function) MaxBlock() int {
    return len(self.arena)
}

// NewTemp allocates a fresh virtual register.
func (self *Function) NewTemp() *Temp {
    t := NewTemp(VirtualRegister, self.TempCount, 0)
    self.TempCount++
    return t
}

// Link adds the edge from -> to without touching terminators.
func (self *Function) Link(from *BasicBlock, to *BasicBlock) {
    from.Out = append(from.Out, to.Index)
    to.In = append(to.In, from.Index)
}

func (self *Function) AddJump(from *BasicBlock, to *BasicBlock) *Jump {
    s := &Jump{Target: to.Index}
    from.Append(s)
    self.Link(from, to)
    return s
}

// AddCJump terminates the block with a conditional branch. Identical
// targets degrade to an unconditional jump and the condition is evaluated
// for its side effects.
func (self *Function) AddCJump(from *BasicBlock, cond Expr, iftrue *BasicBlock, iffalse *BasicBlock) Terminator {
    if iftrue == iffalse {
        from.AddExp(cond)
        return self.AddJump(from, iftrue)
    }

    /* two distinct successors */
    s := &CJump{Cond: cond, IfTrue: iftrue.Index, IfFalse: iffalse.Index}
    from.Append(s)
    self.Link(from, iftrue)
    self.Link(from, iffalse)
    return s
}

func (self *Function) AddRet(from *BasicBlock, e Expr) *Ret {
    s := &Ret{Expr: e}
    from.Append(s)
    return s
}

// RemoveBlock unlinks a block from the CFG. Phi operands flowing from it
// into its successors are dropped along with the edges.
func (self *Function) RemoveBlock(bb *BasicBlock) {
    for _, id := range bb.Out {
        succ := self.Block(id)
        if i := succ.PredIndex(bb.Index); i >= 0 {
            succ.In = append(succ.In[:i], succ.In[i+1:]...)
            for _, phi := range succ.Phis() {
                phi.Incoming = append(phi.Incoming[:i], phi.Incoming[i+1:]...)
            }
        }
    }

    /* remove from the predecessors */
    for _, id := range bb.In {
        pred := self.Block(id)
        if i := pred.SuccIndex(bb.Index); i >= 0 {
            pred.Out = append(pred.Out[:i], pred.Out[i+1:]...)
        }
    }

    /* drop it from the block sequence */
    for i, p := range self.Blocks {
        if p == bb {
            self.Blocks = append(self.Blocks[:i], self.Blocks[i+1:]...)
            break
        }
    }

    bb.In = nil
    bb.Out = nil
    bb.Stmts = nil
    bb.removed = true
}

// SetSchedule replaces the block sequence. The entry block must stay first.
func (self *Function) SetSchedule(seq []*BasicBlock) {
    if len(seq) != 0 && seq[0] != self.Entry() {
        panic("ir: schedule must start with the entry block")
    }
    self.Blocks = seq
}

// ForEachStmt visits every statement of every live block in order.
func (self *Function) ForEachStmt(fn func(bb *BasicBlock, s Stmt)) {
    for _, bb := range self.Blocks {
        for _, s := range bb.Stmts {
            fn(bb, s)
        }
    }
}
