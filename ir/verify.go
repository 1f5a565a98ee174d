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

    `go.uber.org/multierr`
)

func (self *Function) validRef(id BlockID) bool {
    return id >= 0 && int(id) < len(self.arena) && !self.arena[id].removed
}

func countOf(v []BlockID, id BlockID) int {
    n := 0
    for _, p := range v {
        if p == id {
            n++
        }
    }
    return n
}

// Verify checks the structural well-formedness of the CFG and returns
// every violation found, combined into a single error.
func (self *Function) Verify() error {
    var err error
    fail := func(format string, args ...interface{}) {
        err = multierr.Append(err, fmt.Errorf(format, args...))
    }

    /* the entry block leads the sequence and has no predecessors */
    if len(self.Blocks) == 0 {
        return fmt.Errorf("function %q has no blocks", self.Name)
    } else if self.Blocks[0] != self.Entry() {
        fail("entry block L0 is not the first block")
    } else if len(self.Entry().In) != 0 {
        fail("entry block has predecessors: %s", blockList(self.Entry().In))
    }

    for _, bb := range self.Blocks {
        if bb.removed || self.arena[bb.Index] != bb {
            fail("L%d: block is not owned by the function", bb.Index)
            continue
        }

        /* terminators only at the end, phis only at the beginning */
        phis := true
        for i, s := range bb.Stmts {
            if _, ok := s.(*Phi); !ok {
                phis = false
            } else if !phis {
                fail("L%d: phi after a non-phi statement: %s", bb.Index, s)
            } else if len(s.(*Phi).Incoming) != len(bb.In) {
                fail("L%d: phi has %d operands for %d predecessors: %s", bb.Index, len(s.(*Phi).Incoming), len(bb.In), s)
            }
            if _, ok := s.(Terminator); ok && i != len(bb.Stmts)-1 {
                fail("L%d: statement after terminator: %s", bb.Index, s)
            }
        }

        /* the successor list mirrors the terminator */
        term := bb.Terminator()
        if term == nil {
            fail("L%d: block is not terminated", bb.Index)
        } else if succ := term.Successors(); len(succ) != len(bb.Out) {
            fail("L%d: terminator targets %s, successors are %s", bb.Index, blockList(succ), blockList(bb.Out))
        } else {
            for i := range succ {
                if succ[i] != bb.Out[i] {
                    fail("L%d: terminator targets %s, successors are %s", bb.Index, blockList(succ), blockList(bb.Out))
                    break
                }
            }
        }

        /* edges are symmetric */
        for _, id := range bb.Out {
            if !self.validRef(id) {
                fail("L%d: edge to missing block L%d", bb.Index, id)
            } else if n := countOf(self.arena[id].In, bb.Index); n != 1 {
                fail("L%d: successor L%d lists it %d times as predecessor", bb.Index, id, n)
            }
        }
        for _, id := range bb.In {
            if !self.validRef(id) {
                fail("L%d: edge from missing block L%d", bb.Index, id)
            } else if n := countOf(self.arena[id].Out, bb.Index); n != 1 {
                fail("L%d: predecessor L%d lists it %d times as successor", bb.Index, id, n)
            }
        }
    }
    return err
}
