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
    `strings`
)

func blockList(v []BlockID) string {
    ret := make([]string, len(v))
    for i, id := range v {
        ret[i] = fmt.Sprintf("L%d", id)
    }
    return strings.Join(ret, ", ")
}

func (self *BasicBlock) String() string {
    var sb strings.Builder
    fmt.Fprintf(&sb, "L%d:", self.Index)

    /* block annotations */
    if len(self.In) != 0 {
        fmt.Fprintf(&sb, " ; preds: %s", blockList(self.In))
    }
    if self.GroupStart {
        sb.WriteString(" ; loop header")
    }
    if self.Group != NoBlock {
        fmt.Fprintf(&sb, " ; group: L%d", self.Group)
    }
    if self.Catch != NoBlock {
        fmt.Fprintf(&sb, " ; catch: L%d", self.Catch)
    }

    /* statements, with the id when assigned */
    for _, s := range self.Stmts {
        if id := s.ID(); id != 0 {
            fmt.Fprintf(&sb, "\n%6d    %s", id, s)
        } else {
            fmt.Fprintf(&sb, "\n          %s", s)
        }
        if d := s.Def(); d != nil && d.Ty != UnknownType {
            fmt.Fprintf(&sb, " ; %s", d.Ty)
        }
    }
    return sb.String()
}

func (self *Function) String() string {
    var sb strings.Builder
    fmt.Fprintf(&sb, "function %s(%s) {", self.Name, strings.Join(self.Formals, ", "))
    for _, bb := range self.Blocks {
        sb.WriteString("\n")
        sb.WriteString(bb.String())
    }
    sb.WriteString("\n}")
    return sb.String()
}
