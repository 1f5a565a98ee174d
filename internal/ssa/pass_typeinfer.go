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

    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

// TypeInference computes the type of every SSA temp by iterating the
// transfer functions of the statements to a fixpoint.
type TypeInference struct{}

// _Typing is the type of an expression, and whether every temp it
// depends on already has a type.
type _Typing struct {
    ty    ir.Type
    fully bool
}

func typing(ty ir.Type) _Typing {
    return _Typing{ty: ty, fully: ty != ir.UnknownType}
}

func canConvertToSignedInteger(v float64) bool {
    return v >= math.MinInt32 && v <= math.MaxInt32 && v == math.Trunc(v) && !(v == 0 && math.Signbit(v))
}

func canConvertToUnsignedInteger(v float64) bool {
    return v >= 0 && v <= math.MaxUint32 && v == math.Trunc(v) && !math.Signbit(v)
}

type _TypeInfer struct {
    cfg     *CFG
    err     error
    changed bool
    queue   *lane.Queue
    queued  map[ir.Stmt]bool
}

func (self *_TypeInfer) enqueue(s ir.Stmt) {
    if !self.queued[s] {
        self.queued[s] = true
        self.queue.Enqueue(s)
    }
}

func (self *_TypeInfer) fail(err error) {
    if self.err == nil {
        self.err = err
    }
}

func (self *_TypeInfer) setType(t *ir.Temp, ty ir.Type) {
    if !self.cfg.Collectable(t) {
        return
    }

    /* reschedule the readers when the type changes */
    k := t.Key()
    if self.cfg.Types[k] != ty {
        self.cfg.Types[k] = ty
        self.changed = true
        for _, s := range self.cfg.DefUses.Uses(k) {
            self.enqueue(s)
        }
    }
}

func (self *_TypeInfer) temp(t *ir.Temp) _Typing {
    if !self.cfg.Collectable(t) || self.cfg.DefUses.Get(t.Key()) == nil {
        return typing(ir.ObjectType)
    } else {
        return typing(self.cfg.Types[t.Key()])
    }
}

func (self *_TypeInfer) constant(c *ir.Const) _Typing {
    if c.Ty != ir.DoubleType {
        return typing(c.Ty)
    } else if canConvertToSignedInteger(c.Value) {
        return typing(ir.SInt32Type)
    } else if canConvertToUnsignedInteger(c.Value) {
        return typing(ir.UInt32Type)
    } else {
        return typing(ir.DoubleType)
    }
}

func (self *_TypeInfer) unop(e *ir.Unop) _Typing {
    ret := self.run(e.Expr)
    switch e.Op {
    case ir.OpUMinus, ir.OpUPlus:
        ret.ty = ir.DoubleType
    case ir.OpNot, ir.OpIfTrue:
        ret.ty = ir.BoolType
    case ir.OpCompl:
        ret.ty = ir.SInt32Type
    default:
        self.fail(errUnsupported(self.cfg.Func.Name, "unary operator %q in %s", e.Op, e))
    }
    return _Typing{ty: ret.ty, fully: true}
}

func (self *_TypeInfer) binop(e *ir.Binop) _Typing {
    var ty ir.Type
    l := self.run(e.Left)
    r := self.run(e.Right)

    /* the transfer function of the operator */
    switch e.Op {
    case ir.OpAdd:
        if l.ty&ir.ObjectType != 0 || r.ty&ir.ObjectType != 0 {
            ty = ir.ObjectType
        } else if l.ty&ir.StringType != 0 || r.ty&ir.StringType != 0 {
            ty = ir.StringType
        } else if l.ty != ir.UnknownType && r.ty != ir.UnknownType {
            ty = ir.DoubleType
        } else {
            ty = ir.UnknownType
        }
    case ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
        ty = ir.DoubleType
    case ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpLShift, ir.OpRShift:
        ty = ir.SInt32Type
    case ir.OpURShift:
        ty = ir.UInt32Type
    case ir.OpGt, ir.OpLt, ir.OpGe, ir.OpLe, ir.OpEqual, ir.OpNotEqual, ir.OpStrictEqual, ir.OpStrictNotEqual:
        ty = ir.BoolType
    case ir.OpAnd, ir.OpOr, ir.OpInstanceof, ir.OpIn:
        ty = ir.BoolType
    default:
        self.fail(errUnsupported(self.cfg.Func.Name, "binary operator %q in %s", e.Op, e))
    }
    return _Typing{ty: ty, fully: l.fully && r.fully}
}

func (self *_TypeInfer) call(base ir.Expr, args []ir.Expr) _Typing {
    ret := self.run(base)
    for _, a := range args {
        ret.fully = self.run(a).fully && ret.fully
    }
    return _Typing{ty: ir.ObjectType, fully: ret.fully}
}

func (self *_TypeInfer) run(e ir.Expr) (ret _Typing) {
    switch v := e.(type) {
    case *ir.Temp:
        return self.temp(v)
    case *ir.Const:
        ret = self.constant(v)
    case *ir.String:
        ret = typing(ir.StringType)
    case *ir.RegExp, *ir.Name, *ir.Closure:
        ret = typing(ir.ObjectType)
    case *ir.Convert:
        self.run(v.Expr)
        ret = typing(v.Ty)
    case *ir.Unop:
        ret = self.unop(v)
    case *ir.Binop:
        ret = self.binop(v)
    case *ir.Call:
        ret = self.call(v.Base, v.Args)
    case *ir.New:
        ret = self.call(v.Base, v.Args)
    case *ir.Subscript:
        ret = self.call(v.Base, []ir.Expr{v.Index})
    case *ir.Member:
        ret = self.call(v.Base, nil)
    default:
        panic(fmt.Sprintf("ssa: unexpected expression type %T", v))
    }

    /* temps are typed through their definition */
    e.SetType(ret.ty)
    return
}

func collapsePhiType(ty ir.Type) ir.Type {
    if ty.IsSingle() {
        return ty
    } else if ty.IsNumber() {
        return ir.DoubleType
    } else {
        return ir.ObjectType
    }
}

// visit types a statement and reports whether it is fully typed.
func (self *_TypeInfer) visit(s ir.Stmt) bool {
    switch v := s.(type) {
    case *ir.Move:
        src := self.run(v.Source)
        if t, ok := v.Target.(*ir.Temp); ok {
            self.setType(t, src.ty)
            return src.fully
        } else {
            return self.run(v.Target).fully && src.fully
        }
    case *ir.Exp:
        return self.run(v.Expr).fully
    case *ir.Jump:
        return true
    case *ir.CJump:
        return self.run(v.Cond).fully
    case *ir.Ret:
        return self.run(v.Expr).fully
    case *ir.Phi:
        ret := _Typing{fully: true}
        for _, e := range v.Incoming {
            ty := self.run(e)
            ret.ty |= ty.ty
            ret.fully = ret.fully && ty.fully
        }
        self.setType(v.Target, collapsePhiType(ret.ty))
        return ret.fully
    default:
        panic(fmt.Sprintf("ssa: unexpected statement type %T", v))
    }
}

// propagate stores the final type on every temp node.
func (self *_TypeInfer) propagate() {
    set := func(t *ir.Temp) {
        if ty := self.temp(t).ty; ty == ir.UnknownType {
            t.Ty = ir.ObjectType
        } else {
            t.Ty = ty
        }
    }

    /* both definitions and uses */
    self.cfg.Func.ForEachStmt(func(_ *ir.BasicBlock, s ir.Stmt) {
        if d := s.Def(); d != nil {
            set(d)
        }
        for _, t := range ir.UsedTemps(s) {
            set(t)
        }
    })
}

func (self TypeInference) Apply(cfg *CFG) error {
    ti := &_TypeInfer{
        cfg:    cfg,
        queue:  lane.NewQueue(),
        queued: make(map[ir.Stmt]bool),
    }

    /* start with every statement */
    for _, bb := range cfg.Func.Blocks {
        for _, s := range bb.Stmts {
            ti.enqueue(s)
        }
    }

    /* iterate in rounds, a round consumes the current worklist */
    for rounds := 0; !ti.queue.Empty(); rounds++ {
        if rounds >= cfg.Opts.MaxInferenceRounds {
            return errBudget(cfg.Func.Name, rounds)
        }

        /* process the pending statements */
        ti.changed = false
        for n := ti.queue.Size(); n > 0; n-- {
            s := ti.queue.Dequeue().(ir.Stmt)
            ti.queued[s] = false

            /* wait for the operands to be typed */
            if !ti.visit(s) {
                ti.enqueue(s)
            }
            if ti.err != nil {
                return ti.err
            }
        }

        /* the remaining statements can not make progress */
        if !ti.changed {
            break
        }
    }

    /* unresolved temps stay boxed */
    for _, k := range cfg.DefUses.Defs() {
        if cfg.Types[k] == ir.UnknownType {
            cfg.Types[k] = ir.ObjectType
        }
    }

    ti.propagate()
    if cfg.Opts.Trace() {
        cfg.Opts.Sink.DumpValue(cfg.Func.Name+": temp types", cfg.Types)
    }
    return nil
}
