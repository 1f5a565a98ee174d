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
    `fmt`
    `math`

    `github.com/cloudwego/vmopt/ir`
)

// TypePropagation makes representation changes explicit: wherever a
// numeric or boolean value is consumed as a different type, a Convert is
// inserted or a constant is folded.
type TypePropagation struct{}

type _Conversion struct {
    slot *ir.Expr
    ty   ir.Type
    stmt ir.Stmt
}

type _TypeProp struct {
    cfg   *CFG
    bb    *ir.BasicBlock
    stmt  ir.Stmt
    convs []_Conversion
    err   error
}

func toInt32(v float64) float64 {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return 0
    }
    return float64(int32(uint32(int64(math.Mod(math.Trunc(v), 4294967296)))))
}

func toUInt32(v float64) float64 {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return 0
    }
    return float64(uint32(int64(math.Mod(math.Trunc(v), 4294967296))))
}

// convertConst folds a conversion of a literal to a number or a boolean.
func convertConst(c *ir.Const, ty ir.Type) bool {
    v := c.Value

    /* the numeric value of the literal */
    switch c.Ty {
    case ir.NullType:
        v = 0
    case ir.UndefinedType:
        v = math.NaN()
    }

    /* then the target representation */
    switch ty {
    case ir.DoubleType:
        c.Value = v
    case ir.SInt32Type:
        c.Value = toInt32(v)
    case ir.UInt32Type:
        c.Value = toUInt32(v)
    case ir.BoolType:
        if v == 0 || math.IsNaN(v) {
            c.Value = 0
        } else {
            c.Value = 1
        }
    default:
        return false
    }

    c.Ty = ty
    return true
}

// run visits an expression in a context that expects the given type, and
// reports whether a conversion is needed.
func (self *_TypeProp) run(slot *ir.Expr, want ir.Type, insert bool) bool {
    self.visit(*slot)

    /* only numbers and booleans are unboxed */
    if want == ir.UnknownType || (*slot).Type() == want {
        return false
    }
    if want&ir.NumberType == 0 && want != ir.BoolType {
        return false
    }

    /* constants are folded right away */
    if c, ok := (*slot).(*ir.Const); ok && insert && convertConst(c, want) {
        return true
    }

    /* everything else is converted once the block is done */
    if insert {
        self.convs = append(self.convs, _Conversion{slot: slot, ty: want, stmt: self.stmt})
    }
    return true
}

func (self *_TypeProp) visit(e ir.Expr) {
    switch v := e.(type) {
    case *ir.Const, *ir.String, *ir.RegExp, *ir.Name, *ir.Temp, *ir.Closure:
        break
    case *ir.Convert:
        self.run(&v.Expr, v.Ty, true)
    case *ir.Unop:
        self.run(&v.Expr, v.Ty, true)
    case *ir.Binop:
        self.binop(v)
    case *ir.Call:
        self.run(&v.Base, ir.UnknownType, true)
        for i := range v.Args {
            self.run(&v.Args[i], ir.UnknownType, true)
        }
    case *ir.New:
        self.run(&v.Base, ir.UnknownType, true)
        for i := range v.Args {
            self.run(&v.Args[i], ir.UnknownType, true)
        }
    case *ir.Subscript:
        self.run(&v.Base, ir.UnknownType, true)
        self.run(&v.Index, ir.UnknownType, true)
    case *ir.Member:
        self.run(&v.Base, ir.UnknownType, true)
    default:
        panic(fmt.Sprintf("ssa: unexpected expression type %T", v))
    }
}

func (self *_TypeProp) binop(e *ir.Binop) {
    switch e.Op {
    case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
        self.run(&e.Left, e.Ty, true)
        self.run(&e.Right, e.Ty, true)
    case ir.OpLShift, ir.OpRShift, ir.OpURShift:
        self.run(&e.Left, ir.SInt32Type, true)
        self.run(&e.Right, ir.SInt32Type, true)
    case ir.OpGt, ir.OpLt, ir.OpGe, ir.OpLe, ir.OpEqual, ir.OpNotEqual:
        if e.Left.Type() == ir.DoubleType {
            self.run(&e.Left, ir.UnknownType, true)
            self.run(&e.Right, ir.DoubleType, true)
        } else if e.Right.Type() == ir.DoubleType {
            self.run(&e.Left, ir.DoubleType, true)
            self.run(&e.Right, ir.UnknownType, true)
        } else {
            self.run(&e.Left, e.Left.Type(), true)
            self.run(&e.Right, e.Right.Type(), true)
        }
    case ir.OpStrictEqual, ir.OpStrictNotEqual, ir.OpInstanceof, ir.OpIn, ir.OpAnd, ir.OpOr:
        self.run(&e.Left, e.Left.Type(), true)
        self.run(&e.Right, e.Right.Type(), true)
    default:
        if self.err == nil {
            self.err = errUnsupported(self.cfg.Func.Name, "binary operator %q in %s", e.Op, e)
        }
    }
}

func (self *_TypeProp) move(s *ir.Move) {
    if _, ok := s.Source.(*ir.Convert); ok {
        return
    }

    /* the target is evaluated without expectations */
    self.run(&s.Target, ir.UnknownType, true)
    ty := s.Target.Type()

    /* a unary plus into a typed temp is a plain conversion */
    if u, ok := s.Source.(*ir.Unop); ok && u.Op == ir.OpUPlus && ty.IsNumber() {
        if _, ok := s.Target.(*ir.Temp); ok {
            if self.run(&u.Expr, ty, false) {
                s.Source = ir.NewConvert(u.Expr, ty)
            } else {
                s.Source = u.Expr
            }
            return
        }
    }

    /* the source must match the target */
    self.run(&s.Source, ty, true)
}

func (self *_TypeProp) visitStmt(s ir.Stmt) {
    self.stmt = s
    switch v := s.(type) {
    case *ir.Move:
        self.move(v)
    case *ir.Exp:
        self.run(&v.Expr, ir.UnknownType, true)
    case *ir.Jump:
        break
    case *ir.CJump:
        self.run(&v.Cond, ir.BoolType, true)
    case *ir.Ret:
        self.run(&v.Expr, ir.UnknownType, true)
    case *ir.Phi:
        for i := range v.Incoming {
            self.run(&v.Incoming[i], v.Target.Ty, true)
        }
    default:
        panic(fmt.Sprintf("ssa: unexpected statement type %T", v))
    }
}

// phiPred returns the predecessor a phi operand slot flows from.
func (self *_TypeProp) phiPred(phi *ir.Phi, slot *ir.Expr) *ir.BasicBlock {
    for i := range phi.Incoming {
        if &phi.Incoming[i] == slot {
            return self.cfg.Block(self.bb.In[i])
        }
    }
    panic("ssa: phi operand not found")
}

// insert places a new statement so that it executes right before the
// statement being converted.
func (self *_TypeProp) insert(c _Conversion, s ir.Stmt) *ir.BasicBlock {
    if phi, ok := c.stmt.(*ir.Phi); ok {
        pred := self.phiPred(phi, c.slot)
        pred.InsertBeforeTerminator(s)
        return pred
    }

    /* find the statement being converted */
    for i, v := range self.bb.Stmts {
        if v == c.stmt {
            self.bb.InsertAt(i, s)
            return self.bb
        }
    }
    panic("ssa: converted statement not found")
}

func (self *_TypeProp) useTemp(t *ir.Temp, s ir.Stmt) {
    if self.cfg.Collectable(t) {
        self.cfg.DefUses.AddUse(t.Key(), s)
    }
}

func (self *_TypeProp) unuseTemp(t *ir.Temp, s ir.Stmt) {
    if self.cfg.Collectable(t) {
        self.cfg.DefUses.RemoveUse(s, t.Key())
    }
}

// newTemp allocates a typed temp and returns two nodes for it, one for the
// definition and one for the use.
func (self *_TypeProp) newTemp(ty ir.Type) (*ir.Temp, *ir.Temp) {
    def := self.cfg.Func.NewTemp()
    def.Ty = ty
    use := *def
    self.cfg.Types[def.Key()] = ty
    return def, &use
}

func (self *_TypeProp) materialize(c _Conversion) {
    du := self.cfg.DefUses
    mv, _ := c.stmt.(*ir.Move)

    /* a plain temp moved around is converted in place */
    if mv != nil && c.slot == &mv.Source {
        if _, ok := mv.Source.(*ir.Temp); ok {
            *c.slot = ir.NewConvert(*c.slot, c.ty)
            return
        }
    }

    /* converting a temp needs a fresh temp holding the new representation */
    if t, ok := (*c.slot).(*ir.Temp); ok {
        def, use := self.newTemp(c.ty)
        conv := ir.NewMove(def, ir.NewConvert(t, c.ty))
        bb := self.insert(c, conv)

        /* update the def-use chains */
        du.AddTemp(def, conv, bb)
        self.unuseTemp(t, c.stmt)
        self.useTemp(t, conv)
        du.AddUse(use.Key(), c.stmt)
        *c.slot = use
        return
    }

    /* anything else is computed into a temp first, then converted */
    e := *c.slot
    def, use := self.newTemp(e.Type())
    hoist := ir.NewMove(def, e)
    bb := self.insert(c, hoist)
    du.AddTemp(def, hoist, bb)

    /* the operands now belong to the hoisted computation */
    ir.WalkExpr(&hoist.Source, func(slot *ir.Expr) {
        if t, ok := (*slot).(*ir.Temp); ok {
            self.unuseTemp(t, c.stmt)
            self.useTemp(t, hoist)
        }
    })

    du.AddUse(use.Key(), c.stmt)
    *c.slot = ir.NewConvert(use, c.ty)
}

func (self TypePropagation) Apply(cfg *CFG) error {
    nb := 0
    tp := &_TypeProp{cfg: cfg}

    /* blocks may grow while converting phi operands, so iterate over a copy */
    blocks := append([]*ir.BasicBlock(nil), cfg.Func.Blocks...)
    for _, bb := range blocks {
        tp.bb = bb
        tp.convs = tp.convs[:0]

        /* collect the conversions of this block */
        stmts := append([]ir.Stmt(nil), bb.Stmts...)
        for _, s := range stmts {
            tp.visitStmt(s)
        }
        if tp.err != nil {
            return tp.err
        }

        /* then materialize them */
        for _, c := range tp.convs {
            tp.materialize(c)
        }
        nb += len(tp.convs)
    }

    statAdd(&ConvertCount, nb)
    cfg.tracef("%s: inserted %d conversions", cfg.Func.Name, nb)
    return nil
}
