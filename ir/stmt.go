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
    `strings`
)

// Stmt is a statement of a basic block. Like Expr the set of
// implementations is closed.
type Stmt interface {
    fmt.Stringer

    // ID is the position assigned by the life-time interval builder, zero
    // until then.
    ID() int
    SetID(id int)

    // Def returns the temp defined by this statement, if any.
    Def() *Temp

    // Operands calls fn with every top-level expression slot the
    // statement reads. A temp that is the target of a Move is a
    // definition and is not reported.
    Operands(fn func(slot *Expr))
    irstmt()
}

// Terminator is a statement that ends a basic block.
type Terminator interface {
    Stmt
    Successors() []BlockID
    Retarget(from BlockID, to BlockID)
}

type stmtBase struct {
    id int
}

func (self *stmtBase) ID() int      { return self.id }
func (self *stmtBase) SetID(id int) { self.id = id }
func (self *stmtBase) irstmt()      {}

type (
    // Move stores Source into Target. When Swap is set the backend
    // exchanges the two temps instead of copying.
    Move struct {
        stmtBase
        Target Expr
        Source Expr
        Swap   bool
    }

    // Exp evaluates an expression for its side effects.
    Exp struct {
        stmtBase
        Expr Expr
    }

    Jump struct {
        stmtBase
        Target BlockID
    }

    CJump struct {
        stmtBase
        Cond    Expr
        IfTrue  BlockID
        IfFalse BlockID
    }

    Ret struct {
        stmtBase
        Expr Expr
    }

    // Phi selects Incoming[i] when control arrives from the i-th
    // predecessor of the block that contains it.
    Phi struct {
        stmtBase
        Target   *Temp
        Incoming []Expr
    }
)

func NewMove(target Expr, source Expr) *Move {
    return &Move{Target: target, Source: source}
}

func NewPhi(target *Temp, incoming []Expr) *Phi {
    return &Phi{Target: target, Incoming: incoming}
}

func (self *Move) Def() *Temp {
    if t, ok := self.Target.(*Temp); ok {
        return t
    } else {
        return nil
    }
}

func (self *Exp) Def() *Temp   { return nil }
func (self *Jump) Def() *Temp  { return nil }
func (self *CJump) Def() *Temp { return nil }
func (self *Ret) Def() *Temp   { return nil }
func (self *Phi) Def() *Temp   { return self.Target }

func (self *Move) Operands(fn func(*Expr)) {
    if _, ok := self.Target.(*Temp); !ok {
        fn(&self.Target)
    }
    fn(&self.Source)
}

func (self *Exp) Operands(fn func(*Expr))   { fn(&self.Expr) }
func (self *Jump) Operands(fn func(*Expr))  {}
func (self *CJump) Operands(fn func(*Expr)) { fn(&self.Cond) }
func (self *Ret) Operands(fn func(*Expr))   { fn(&self.Expr) }

func (self *Phi) Operands(fn func(*Expr)) {
    for i := range self.Incoming {
        fn(&self.Incoming[i])
    }
}

func (self *Jump) Successors() []BlockID  { return []BlockID{self.Target} }
func (self *CJump) Successors() []BlockID { return []BlockID{self.IfTrue, self.IfFalse} }
func (self *Ret) Successors() []BlockID   { return nil }

func (self *Jump) Retarget(from BlockID, to BlockID) {
    if self.Target == from {
        self.Target = to
    }
}

func (self *CJump) Retarget(from BlockID, to BlockID) {
    if self.IfTrue == from {
        self.IfTrue = to
    }
    if self.IfFalse == from {
        self.IfFalse = to
    }
}

func (self *Ret) Retarget(_ BlockID, _ BlockID) {}

func (self *Move) String() string {
    if self.Swap {
        return fmt.Sprintf("%s <=> %s", self.Target, self.Source)
    } else {
        return fmt.Sprintf("%s = %s", self.Target, self.Source)
    }
}

func (self *Exp) String() string   { return "eval " + self.Expr.String() }
func (self *Jump) String() string  { return fmt.Sprintf("goto L%d", self.Target) }
func (self *Ret) String() string   { return "return " + self.Expr.String() }

func (self *CJump) String() string {
    return fmt.Sprintf("if %s goto L%d else L%d", self.Cond, self.IfTrue, self.IfFalse)
}

func (self *Phi) String() string {
    args := make([]string, len(self.Incoming))
    for i, v := range self.Incoming {
        args[i] = v.String()
    }
    return fmt.Sprintf("%s = phi(%s)", self.Target, strings.Join(args, ", "))
}

// WalkExpr calls fn for every expression slot in the tree rooted at *e,
// children before parents. The callback may replace *slot.
func WalkExpr(e *Expr, fn func(slot *Expr)) {
    switch v := (*e).(type) {
    case *Const, *String, *RegExp, *Name, *Temp, *Closure:
        break
    case *Convert:
        WalkExpr(&v.Expr, fn)
    case *Unop:
        WalkExpr(&v.Expr, fn)
    case *Binop:
        WalkExpr(&v.Left, fn)
        WalkExpr(&v.Right, fn)
    case *Call:
        WalkExpr(&v.Base, fn)
        for i := range v.Args {
            WalkExpr(&v.Args[i], fn)
        }
    case *New:
        WalkExpr(&v.Base, fn)
        for i := range v.Args {
            WalkExpr(&v.Args[i], fn)
        }
    case *Subscript:
        WalkExpr(&v.Base, fn)
        WalkExpr(&v.Index, fn)
    case *Member:
        WalkExpr(&v.Base, fn)
    default:
        panic(fmt.Sprintf("ir: unexpected expression type %T", v))
    }
    fn(e)
}

// ForEachUse calls fn for every expression slot read by the statement.
func ForEachUse(s Stmt, fn func(slot *Expr)) {
    s.Operands(func(slot *Expr) {
        WalkExpr(slot, fn)
    })
}

// UsedTemps returns every temp read by the statement, in evaluation order.
// A temp read twice is reported twice.
func UsedTemps(s Stmt) []*Temp {
    var ret []*Temp
    ForEachUse(s, func(slot *Expr) {
        if t, ok := (*slot).(*Temp); ok {
            ret = append(ret, t)
        }
    })
    return ret
}
