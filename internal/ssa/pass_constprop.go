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

// ConstProp folds expressions over literals and propagates the literals
// into their readers until nothing changes.
type ConstProp struct{}

func isNumeric(ty ir.Type) bool {
    return ty.IsNumber() || ty == ir.BoolType
}

func isNullish(c *ir.Const) bool {
    return c.Ty == ir.NullType || c.Ty == ir.UndefinedType
}

func toNumber(c *ir.Const) float64 {
    switch c.Ty {
    case ir.NullType:
        return 0
    case ir.UndefinedType:
        return math.NaN()
    default:
        return c.Value
    }
}

func int32Const(v int32) *ir.Const {
    return &ir.Const{Typed: ir.Typed{Ty: ir.SInt32Type}, Value: float64(v)}
}

// fitConst changes the representation of a folded literal to the type of
// the temp it is stored into.
func fitConst(c *ir.Const, ty ir.Type) {
    if c.Ty != ty && isNumeric(ty) {
        convertConst(c, ty)
    }
}

// sameConst reports whether two literals always produce the same value.
// Numbers compare bit by bit whatever their representation, so 0 and -0
// are different.
func sameConst(a *ir.Const, b *ir.Const) bool {
    if a.Ty.IsNumber() && b.Ty.IsNumber() {
        return math.Float64bits(a.Value) == math.Float64bits(b.Value)
    } else if a.Ty != b.Ty {
        return false
    } else {
        return isNullish(a) || a.Value == b.Value
    }
}

func looseEqual(l *ir.Const, r *ir.Const) bool {
    if isNullish(l) || isNullish(r) {
        return isNullish(l) && isNullish(r)
    } else {
        return toNumber(l) == toNumber(r)
    }
}

func strictEqual(l *ir.Const, r *ir.Const) bool {
    if l.Ty.IsNumber() && r.Ty.IsNumber() {
        return l.Value == r.Value
    } else if l.Ty != r.Ty {
        return false
    } else {
        return isNullish(l) || l.Value == r.Value
    }
}

// compareConst evaluates a comparison of two literals. The second result
// is false when the operator is not a comparison.
func compareConst(op ir.AluOp, l *ir.Const, r *ir.Const) (bool, bool) {
    switch op {
    case ir.OpGt:
        return toNumber(l) > toNumber(r), true
    case ir.OpLt:
        return toNumber(l) < toNumber(r), true
    case ir.OpGe:
        return toNumber(l) >= toNumber(r), true
    case ir.OpLe:
        return toNumber(l) <= toNumber(r), true
    case ir.OpEqual:
        return looseEqual(l, r), true
    case ir.OpNotEqual:
        return !looseEqual(l, r), true
    case ir.OpStrictEqual:
        return strictEqual(l, r), true
    case ir.OpStrictNotEqual:
        return !strictEqual(l, r), true
    default:
        return false, false
    }
}

func foldUnop(op ir.AluOp, c *ir.Const) *ir.Const {
    if !isNumeric(c.Ty) {
        return nil
    }
    switch op {
    case ir.OpNot:
        return ir.NewBool(c.Value == 0 || math.IsNaN(c.Value))
    case ir.OpUMinus:
        return ir.NewNumber(-c.Value)
    case ir.OpUPlus:
        return ir.NewNumber(c.Value)
    case ir.OpCompl:
        return int32Const(^int32(toInt32(c.Value)))
    default:
        return nil
    }
}

func foldBinop(op ir.AluOp, l *ir.Const, r *ir.Const) *ir.Const {
    if v, ok := compareConst(op, l, r); ok {
        return ir.NewBool(v)
    }

    /* arithmetics are done in doubles, bitwise operators in 32 bits */
    x, y := toNumber(l), toNumber(r)
    switch op {
    case ir.OpAdd:
        return ir.NewNumber(x + y)
    case ir.OpSub:
        return ir.NewNumber(x - y)
    case ir.OpMul:
        return ir.NewNumber(x * y)
    case ir.OpDiv:
        return ir.NewNumber(x / y)
    case ir.OpMod:
        return ir.NewNumber(math.Mod(x, y))
    case ir.OpBitAnd:
        return int32Const(int32(toInt32(x)) & int32(toInt32(y)))
    case ir.OpBitOr:
        return int32Const(int32(toInt32(x)) | int32(toInt32(y)))
    case ir.OpBitXor:
        return int32Const(int32(toInt32(x)) ^ int32(toInt32(y)))
    case ir.OpLShift:
        return int32Const(int32(toInt32(x)) << (uint32(toUInt32(y)) & 0x1f))
    case ir.OpRShift:
        return int32Const(int32(toInt32(x)) >> (uint32(toUInt32(y)) & 0x1f))
    case ir.OpURShift:
        return &ir.Const{Typed: ir.Typed{Ty: ir.UInt32Type}, Value: float64(uint32(toUInt32(x)) >> (uint32(toUInt32(y)) & 0x1f))}
    default:
        return nil
    }
}

// isInt32Identity reports whether applying the operator with the literal
// leaves a 32-bit integer unchanged, as in x & 0xffffffff or x | 0.
func isInt32Identity(op ir.AluOp, c *ir.Const) bool {
    switch op {
    case ir.OpBitAnd:
        return isNumeric(c.Ty) && toUInt32(c.Value) == math.MaxUint32
    case ir.OpBitOr, ir.OpBitXor:
        return isNumeric(c.Ty) && toInt32(c.Value) == 0
    default:
        return false
    }
}

func isShift(op ir.AluOp) bool {
    return op == ir.OpLShift || op == ir.OpRShift || op == ir.OpURShift
}

// conversions drops the conversions that can be done right away: those of
// literals, and those of temps already in the wanted representation.
func (self ConstProp) conversions(rw *_Rewriter, s ir.Stmt) {
    ir.ForEachUse(s, func(slot *ir.Expr) {
        if c, ok := (*slot).(*ir.Convert); ok {
            switch v := c.Expr.(type) {
            case *ir.Const:
                if convertConst(v, c.Ty) {
                    *slot = v
                    rw.changed(s)
                }
            case *ir.Temp:
                if v.Ty == c.Ty {
                    *slot = v
                    rw.changed(s)
                }
            }
        }
    })
}

func (self ConstProp) phi(rw *_Rewriter, p *ir.Phi) {
    var first *ir.Const
    if rw.tracked(p.Target) == nil {
        return
    }

    /* a phi is a literal if all the incoming values are the same literal */
    for _, e := range p.Incoming {
        if c, ok := e.(*ir.Const); !ok {
            return
        } else if first == nil {
            first = c
        } else if !sameConst(first, c) {
            return
        }
    }

    /* no incoming values at all */
    if first == nil {
        return
    }

    c := ir.CloneExpr(first).(*ir.Const)
    fitConst(c, p.Target.Ty)
    rw.replaceUses(p.Target.Key(), c)
    rw.remove(p)
}

func (self ConstProp) fold(rw *_Rewriter, m *ir.Move, c *ir.Const, ty ir.Type) {
    fitConst(c, ty)
    m.Source = c
    rw.changed(m)
}

func (self ConstProp) binop(rw *_Rewriter, m *ir.Move, e *ir.Binop, ty ir.Type) {
    l, lc := e.Left.(*ir.Const)
    r, rc := e.Right.(*ir.Const)

    /* both sides are known */
    if lc && rc {
        if c := foldBinop(e.Op, l, r); c != nil {
            self.fold(rw, m, c, ty)
        }
        return
    }

    /* casts of 32-bit integers to themselves */
    if ty == ir.SInt32Type {
        if rc && e.Left.Type() == ir.SInt32Type && isInt32Identity(e.Op, r) {
            m.Source = e.Left
            rw.changed(m)
            return
        }
        if lc && e.Right.Type() == ir.SInt32Type && isInt32Identity(e.Op, l) {
            m.Source = e.Right
            rw.changed(m)
            return
        }
    }

    /* shift counts only use the low 5 bits */
    if rc && isShift(e.Op) && isNumeric(r.Ty) {
        r.Value = float64(int32(toInt32(r.Value)) & 0x1f)
        r.Ty = ir.SInt32Type
    }
}

func (self ConstProp) move(rw *_Rewriter, m *ir.Move) {
    t := rw.tracked(m.Target)
    if t == nil {
        return
    }

    /* literals are propagated into every reader */
    switch v := m.Source.(type) {
    case *ir.Const:
        rw.replaceUses(t.Key(), v)
        rw.remove(m)
    case *ir.Unop:
        if c, ok := v.Expr.(*ir.Const); ok {
            if r := foldUnop(v.Op, c); r != nil {
                self.fold(rw, m, r, t.Ty)
            }
        }
    case *ir.Binop:
        self.binop(rw, m, v, t.Ty)
    }
}

func (self ConstProp) branch(rw *_Rewriter, s *ir.CJump) {
    if e, ok := s.Cond.(*ir.Binop); ok {
        l, lc := e.Left.(*ir.Const)
        r, rc := e.Right.(*ir.Const)
        if lc && rc {
            if v, ok := compareConst(e.Op, l, r); ok {
                s.Cond = ir.NewBool(v)
                rw.changed(s)
            }
        }
    }
}

func (self ConstProp) Apply(cfg *CFG) error {
    rw := newRewriter(cfg)
    for s := rw.w.next(); s != nil; s = rw.w.next() {
        self.conversions(rw, s)
        switch v := s.(type) {
        case *ir.Phi:
            self.phi(rw, v)
        case *ir.Move:
            self.move(rw, v)
        case *ir.CJump:
            self.branch(rw, v)
        }
    }

    statAdd(&FoldCount, rw.nb)
    cfg.tracef("%s: constant propagation made %d changes", cfg.Func.Name, rw.nb)
    return nil
}
