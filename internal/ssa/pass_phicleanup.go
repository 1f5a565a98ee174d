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

// PhiCleanup removes phi nodes whose values only ever flow into other phi
// nodes, including cycles of phis through loop headers.
type PhiCleanup struct{}

func (self PhiCleanup) hasPhiOnlyUses(du *DefUses, phi *ir.Phi, collected map[*ir.Phi]bool) bool {
    if collected[phi] {
        return true
    }

    /* every use must be a phi whose uses are phis as well */
    collected[phi] = true
    for _, u := range du.Uses(phi.Target.Key()) {
        if p, ok := u.(*ir.Phi); !ok || !self.hasPhiOnlyUses(du, p, collected) {
            return false
        }
    }
    return true
}

func (self PhiCleanup) Apply(cfg *CFG) error {
    du := cfg.DefUses
    dead := make(map[*ir.Phi]bool)

    /* find all the closures of phi-only uses */
    for _, bb := range cfg.Func.Blocks {
        for _, phi := range bb.Phis() {
            if dead[phi] {
                continue
            }
            collected := make(map[*ir.Phi]bool)
            if self.hasPhiOnlyUses(du, phi, collected) {
                for p := range collected {
                    dead[p] = true
                }
            }
        }
    }

    /* remove them, in block order */
    for _, bb := range cfg.Func.Blocks {
        for _, phi := range bb.Phis() {
            if dead[phi] {
                k := phi.Target.Key()
                bb.RemoveStmt(phi)
                du.RemoveStmt(phi)
                du.RemoveDef(k)
            }
        }
    }

    statAdd(&PhiRemoved, len(dead))
    cfg.tracef("%s: removed %d phi nodes", cfg.Func.Name, len(dead))
    return nil
}
