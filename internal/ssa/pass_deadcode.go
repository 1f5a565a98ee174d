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

    `github.com/oleiade/lane`

    `github.com/cloudwego/vmopt/ir`
)

// DeadCode removes definitions of SSA temps that are never read, as long
// as computing the value cannot be observed.
type DeadCode struct{}

func exprHasSideEffect(e ir.Expr) bool {
    switch v := e.(type) {
    case *ir.Const, *ir.String, *ir.RegExp, *ir.Temp, *ir.Closure:
        return false
    case *ir.Name:
        return !v.FreeOfSideEffects
    case *ir.Unop:
        return v.Op == ir.OpIncrement || v.Op == ir.OpDecrement || exprHasSideEffect(v.Expr)
    case *ir.Binop:
        return exprHasSideEffect(v.Left) || exprHasSideEffect(v.Right)
    case *ir.Convert, *ir.Call, *ir.New, *ir.Subscript, *ir.Member:
        return true
    default:
        panic(fmt.Sprintf("ssa: unexpected expression type %T", v))
    }
}

func (self DeadCode) hasSideEffect(cfg *CFG, s ir.Stmt) bool {
    switch v := s.(type) {
    case *ir.Phi:
        return false
    case *ir.Move:
        if t, ok := v.Target.(*ir.Temp); !ok || !cfg.Collectable(t) {
            return true
        } else {
            return exprHasSideEffect(v.Source)
        }
    default:
        return true
    }
}

func (self DeadCode) Apply(cfg *CFG) error {
    nb := 0
    du := cfg.DefUses
    q := lane.NewQueue()
    queued := make(map[ir.TempKey]bool)

    /* start with every definition */
    for _, k := range du.Defs() {
        q.Enqueue(k)
        queued[k] = true
    }

    /* remove unused definitions until nothing changes */
    for !q.Empty() {
        k := q.Dequeue().(ir.TempKey)
        queued[k] = false

        /* still used, or already gone */
        d := du.Get(k)
        if d == nil || d.UseCount() != 0 || self.hasSideEffect(cfg, d.Def) {
            continue
        }

        /* the statement goes away, and so do its uses */
        d.Block.RemoveStmt(d.Def)
        for _, u := range du.RemoveStmt(d.Def) {
            if !queued[u] && du.Get(u) != nil {
                q.Enqueue(u)
                queued[u] = true
            }
        }

        /* forget the definition */
        du.RemoveDef(k)
        nb++
    }

    statAdd(&StmtRemoved, nb)
    cfg.tracef("%s: removed %d dead definitions", cfg.Func.Name, nb)
    return nil
}
