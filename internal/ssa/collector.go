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
    `sort`

    `github.com/cloudwego/vmopt/ir`
)

// isCollectable reports whether the temp can be put into SSA form. Formals
// and scoped variables are always reachable through the activation object,
// locals only when something may observe the frame.
func isCollectable(fn *ir.Function, t *ir.Temp) bool {
    if t.Scope != 0 {
        return false
    }
    switch t.Kind {
    case ir.VirtualRegister:
        return true
    case ir.Local:
        return !fn.VariablesCanEscape()
    default:
        return false
    }
}

type _Variables struct {
    vars      []ir.TempKey
    defsites  map[ir.TempKey][]ir.BlockID
    killed    map[ir.BlockID]map[ir.TempKey]bool
    nonLocals map[ir.TempKey]bool
}

// NonLocal reports whether the variable is read in some block before being
// assigned there, which is when it may need a phi.
func (self *_Variables) NonLocal(k ir.TempKey) bool {
    return self.nonLocals[k]
}

// DefinedIn reports whether the block assigns the variable.
func (self *_Variables) DefinedIn(bb ir.BlockID, k ir.TempKey) bool {
    return self.killed[bb][k]
}

func collectVariables(fn *ir.Function) *_Variables {
    ret := &_Variables{
        defsites:  make(map[ir.TempKey][]ir.BlockID),
        killed:    make(map[ir.BlockID]map[ir.TempKey]bool),
        nonLocals: make(map[ir.TempKey]bool),
    }

    /* scan every block */
    for _, bb := range fn.Blocks {
        kill := make(map[ir.TempKey]bool)
        ret.killed[bb.Index] = kill

        for _, s := range bb.Stmts {
            /* uses are evaluated before the definition */
            for _, t := range ir.UsedTemps(s) {
                if k := t.Key(); isCollectable(fn, t) && !kill[k] {
                    ret.nonLocals[k] = true
                }
            }

            /* then the definition */
            if d := s.Def(); d != nil && isCollectable(fn, d) {
                k := d.Key()
                if !kill[k] {
                    kill[k] = true
                    ret.defsites[k] = append(ret.defsites[k], bb.Index)
                }
            }
        }
    }

    /* keep the variables in a stable order */
    for k := range ret.defsites {
        ret.vars = append(ret.vars, k)
    }
    sort.Slice(ret.vars, func(i int, j int) bool {
        return ret.vars[i].Less(ret.vars[j])
    })
    return ret
}
