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

// CopyElim forwards copies between SSA temps of the same type to their
// readers, and removes phi nodes that are left with a single incoming
// value.
type CopyElim struct{}

func (self CopyElim) forward(rw *_Rewriter, s ir.Stmt, t *ir.Temp, e ir.Expr) {
    if v, ok := e.(*ir.Temp); ok {
        if !rw.cfg.Collectable(v) {
            return
        }
        if rw.tracked(v) == nil || v.Key() == t.Key() || v.Ty != t.Ty {
            return
        }
    }
    rw.replaceUses(t.Key(), e)
    rw.remove(s)
}

func (self CopyElim) Apply(cfg *CFG) error {
    rw := newRewriter(cfg)
    for s := rw.w.next(); s != nil; s = rw.w.next() {
        switch v := s.(type) {
        case *ir.Phi:
            if len(v.Incoming) == 1 && rw.tracked(v.Target) != nil {
                self.forward(rw, v, v.Target, v.Incoming[0])
            }
        case *ir.Move:
            if t := rw.tracked(v.Target); t != nil {
                if _, ok := v.Source.(*ir.Temp); ok {
                    self.forward(rw, v, t, v.Source)
                }
            }
        }
    }

    statAdd(&CopyCount, rw.nb)
    cfg.tracef("%s: copy elimination made %d changes", cfg.Func.Name, rw.nb)
    return nil
}
