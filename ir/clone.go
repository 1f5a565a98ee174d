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

// CloneExpr returns a deep copy of the expression tree.
func CloneExpr(e Expr) Expr {
    switch v := e.(type) {
    case *Const:
        p := *v
        return &p
    case *String:
        p := *v
        return &p
    case *RegExp:
        p := *v
        return &p
    case *Name:
        p := *v
        return &p
    case *Temp:
        p := *v
        return &p
    case *Closure:
        p := *v
        return &p
    case *Convert:
        return &Convert{Typed: v.Typed, Expr: CloneExpr(v.Expr)}
    case *Unop:
        return &Unop{Typed: v.Typed, Op: v.Op, Expr: CloneExpr(v.Expr)}
    case *Binop:
        return &Binop{Typed: v.Typed, Op: v.Op, Left: CloneExpr(v.Left), Right: CloneExpr(v.Right)}
    case *Call:
        return &Call{Typed: v.Typed, Base: CloneExpr(v.Base), Args: cloneExprs(v.Args)}
    case *New:
        return &New{Typed: v.Typed, Base: CloneExpr(v.Base), Args: cloneExprs(v.Args)}
    case *Subscript:
        return &Subscript{Typed: v.Typed, Base: CloneExpr(v.Base), Index: CloneExpr(v.Index)}
    case *Member:
        return &Member{Typed: v.Typed, Base: CloneExpr(v.Base), Name: v.Name}
    default:
        panic(fmt.Sprintf("ir: unexpected expression type %T", v))
    }
}

func cloneExprs(v []Expr) []Expr {
    if v == nil {
        return nil
    }
    ret := make([]Expr, len(v))
    for i, e := range v {
        ret[i] = CloneExpr(e)
    }
    return ret
}

// CloneStmt returns a deep copy of the statement, id included.
func CloneStmt(s Stmt) Stmt {
    var ret Stmt
    switch v := s.(type) {
    case *Move:
        ret = &Move{Target: CloneExpr(v.Target), Source: CloneExpr(v.Source), Swap: v.Swap}
    case *Exp:
        ret = &Exp{Expr: CloneExpr(v.Expr)}
    case *Jump:
        ret = &Jump{Target: v.Target}
    case *CJump:
        ret = &CJump{Cond: CloneExpr(v.Cond), IfTrue: v.IfTrue, IfFalse: v.IfFalse}
    case *Ret:
        ret = &Ret{Expr: CloneExpr(v.Expr)}
    case *Phi:
        ret = &Phi{Target: CloneExpr(v.Target).(*Temp), Incoming: cloneExprs(v.Incoming)}
    default:
        panic(fmt.Sprintf("ir: unexpected statement type %T", v))
    }
    ret.SetID(s.ID())
    return ret
}

// Clone returns a deep copy of the function. Block ids are preserved.
func (self *Function) Clone() *Function {
    ret := *self
    ret.Formals = append([]string(nil), self.Formals...)
    ret.Locals = append([]string(nil), self.Locals...)
    ret.arena = make([]*BasicBlock, len(self.arena))
    ret.Blocks = make([]*BasicBlock, len(self.Blocks))

    /* copy every block, removed ones included, so the ids stay dense */
    for i, bb := range self.arena {
        nb := *bb
        nb.In = append([]BlockID(nil), bb.In...)
        nb.Out = append([]BlockID(nil), bb.Out...)
        nb.Stmts = make([]Stmt, len(bb.Stmts))
        for j, s := range bb.Stmts {
            nb.Stmts[j] = CloneStmt(s)
        }
        ret.arena[i] = &nb
    }

    /* rebuild the block sequence */
    for i, bb := range self.Blocks {
        ret.Blocks[i] = ret.arena[bb.Index]
    }
    return &ret
}

// Restore overwrites the function with the contents of a clone.
func (self *Function) Restore(from *Function) {
    *self = *from
}

// Unshare makes sure no expression node is reachable from two slots, so
// passes can rewrite nodes in place.
func (self *Function) Unshare() {
    seen := make(map[Expr]bool)
    visit := func(slot *Expr) {
        if seen[*slot] {
            *slot = CloneExpr(*slot)
        }
        seen[*slot] = true
    }

    /* walk every expression of every statement */
    self.ForEachStmt(func(_ *BasicBlock, s Stmt) {
        if p, ok := s.(*Phi); ok {
            var e Expr = p.Target
            if seen[e] {
                p.Target = CloneExpr(e).(*Temp)
            }
            seen[p.Target] = true
        } else if m, ok := s.(*Move); ok {
            if _, ok := m.Target.(*Temp); ok {
                WalkExpr(&m.Target, visit)
            }
        }
        ForEachUse(s, visit)
    })
}
