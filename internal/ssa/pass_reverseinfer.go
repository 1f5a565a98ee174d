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

    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

// ReverseInference narrows temps to 32-bit integers when every reader
// truncates the value to 32 bits anyway, as bitwise operators do. The
// computation of such a temp can then be carried out in integers.
type ReverseInference struct{}

type _ReverseInfer struct {
    cfg   *CFG
    ok    map[ir.TempKey]bool
    order []ir.TempKey
    stack *lane.Stack
}

// isNumericOperand reports whether adding the expression can not turn
// into a string concatenation.
func isNumericOperand(e ir.Expr) bool {
    ty := e.Type()
    return ty != ir.UnknownType && ty&(ir.StringType|ir.ObjectType) == 0
}

// isIntegral reports whether the expression always yields an integer
// that converts to 32 bits without changing the low bits of a sum.
func (self *_ReverseInfer) isIntegral(e ir.Expr) bool {
    switch v := e.(type) {
    case *ir.Const:
        return isNumeric(v.Ty) && !math.IsInf(v.Value, 0) && v.Value == math.Trunc(v.Value)
    case *ir.Temp:
        if self.ok[v.Key()] {
            return true
        }
    }
    ty := e.Type()
    return ty == ir.SInt32Type || ty == ir.UInt32Type || ty == ir.BoolType
}

func (self *_ReverseInfer) push(e ir.Expr) {
    if t, ok := e.(*ir.Temp); ok && self.cfg.Collectable(t) && self.cfg.DefUses.Get(t.Key()) != nil {
        self.stack.Push(t.Key())
    }
}

func (self *_ReverseInfer) narrowed(t *ir.Temp) bool {
    return t != nil && self.ok[t.Key()]
}

// usedAsInt32 reports whether every reader of the temp only needs its
// 32-bit integer value.
func (self *_ReverseInfer) usedAsInt32(k ir.TempKey) bool {
    uses := self.cfg.DefUses.Uses(k)
    if len(uses) == 0 {
        return false
    }

    /* every reader must be a move */
    for _, s := range uses {
        m, ok := s.(*ir.Move)
        if !ok {
            return false
        }
        switch v := m.Source.(type) {
        case *ir.Temp:
            if !self.narrowed(m.Def()) {
                return false
            }
        case *ir.Convert:
            break
        case *ir.Binop:
            switch v.Op {
            case ir.OpAdd, ir.OpSub:
                if !self.narrowed(m.Def()) {
                    return false
                }
            case ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpLShift, ir.OpRShift, ir.OpURShift:
                break
            default:
                return false
            }
        case *ir.Unop:
            switch v.Op {
            case ir.OpUPlus:
                if !self.narrowed(m.Def()) {
                    return false
                }
            case ir.OpCompl:
                break
            default:
                return false
            }
        default:
            return false
        }
    }
    return true
}

// accept checks the definition of a candidate, and queues the temps it
// is computed from.
func (self *_ReverseInfer) accept(k ir.TempKey) bool {
    m, ok := self.cfg.DefUses.DefStmt(k).(*ir.Move)
    if !ok || m.Def() == nil || self.cfg.Types[k] == ir.SInt32Type {
        return false
    }

    /* the computation must be expressible in 32-bit integers */
    switch v := m.Source.(type) {
    case *ir.Temp:
        self.push(v)
    case *ir.Convert:
        break
    case *ir.Binop:
        switch v.Op {
        case ir.OpAdd:
            if !isNumericOperand(v.Left) || !isNumericOperand(v.Right) {
                return false
            }
        case ir.OpSub, ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpLShift, ir.OpRShift, ir.OpURShift:
            break
        default:
            return false
        }
        self.push(v.Left)
        self.push(v.Right)
    case *ir.Unop:
        if v.Op != ir.OpCompl && v.Op != ir.OpUPlus {
            return false
        }
        self.push(v.Expr)
    default:
        return false
    }
    return true
}

// exact reports whether computing the temp in 32-bit integers gives the
// low bits of the result computed in doubles.
func (self *_ReverseInfer) exact(k ir.TempKey) bool {
    m := self.cfg.DefUses.DefStmt(k).(*ir.Move)
    if e, ok := m.Source.(*ir.Binop); ok && (e.Op == ir.OpAdd || e.Op == ir.OpSub) {
        return self.isIntegral(e.Left) && self.isIntegral(e.Right)
    }
    return true
}

// prune drops the temps that can not be narrowed after all, until the
// set is stable.
func (self *_ReverseInfer) prune() {
    for changed := true; changed; {
        changed = false
        for _, k := range self.order {
            if self.ok[k] && (!self.usedAsInt32(k) || !self.exact(k)) {
                delete(self.ok, k)
                changed = true
            }
        }
    }
}

// narrow retypes every occurrence of the temp, and the expression that
// computes it.
func (self *_ReverseInfer) narrow(k ir.TempKey) {
    du := self.cfg.DefUses
    self.cfg.Types[k] = ir.SInt32Type

    /* the readers */
    for _, s := range du.Uses(k) {
        for _, t := range ir.UsedTemps(s) {
            if self.cfg.Collectable(t) && t.Key() == k {
                t.Ty = ir.SInt32Type
            }
        }
    }

    /* the definition */
    m := du.DefStmt(k).(*ir.Move)
    m.Def().Ty = ir.SInt32Type
    switch v := m.Source.(type) {
    case *ir.Convert:
        v.Ty = ir.SInt32Type
    case *ir.Unop:
        if v.Op != ir.OpUMinus {
            v.Ty = ir.SInt32Type
        }
    case *ir.Binop:
        v.Ty = ir.SInt32Type
    }
}

func (self ReverseInference) Apply(cfg *CFG) error {
    ri := &_ReverseInfer{
        cfg:   cfg,
        ok:    make(map[ir.TempKey]bool),
        stack: lane.NewStack(),
    }

    /* every temp is a candidate, the last ones first */
    for _, k := range cfg.DefUses.Defs() {
        ri.stack.Push(k)
    }

    /* find the temps that can be narrowed */
    for !ri.stack.Empty() {
        k := ri.stack.Pop().(ir.TempKey)
        if ri.ok[k] || !ri.usedAsInt32(k) || !ri.accept(k) {
            continue
        }
        ri.ok[k] = true
        ri.order = append(ri.order, k)
    }

    /* then retype the ones that survived */
    nb := 0
    ri.prune()
    for _, k := range ri.order {
        if ri.ok[k] {
            ri.narrow(k)
            nb++
        }
    }

    statAdd(&NarrowCount, nb)
    cfg.tracef("%s: narrowed %d temps to int32", cfg.Func.Name, nb)
    return nil
}
