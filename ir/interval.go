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

const (
    InvalidPosition = -1
    InvalidRegister = -1
)

// Range is an inclusive span of statement ids.
type Range struct {
    Start int
    End   int
}

func (self Range) Covers(pos int) bool {
    return self.Start <= pos && pos <= self.End
}

func (self Range) String() string {
    return fmt.Sprintf("[%d, %d]", self.Start, self.End)
}

// LifeTimeInterval is the set of statement positions where a temp holds a
// live value. Ranges are sorted, disjoint and never adjacent.
type LifeTimeInterval struct {
    Temp      Temp
    Ranges    []Range
    End       int
    Reg       int
    Fixed     bool
    SplitFrom bool
}

func NewLifeTimeInterval(t *Temp) *LifeTimeInterval {
    return &LifeTimeInterval{
        Temp: *t,
        End:  InvalidPosition,
        Reg:  InvalidRegister,
    }
}

func (self *LifeTimeInterval) IsValid() bool {
    return self.End != InvalidPosition
}

func (self *LifeTimeInterval) Start() int {
    if len(self.Ranges) == 0 {
        return InvalidPosition
    } else {
        return self.Ranges[0].Start
    }
}

// SetFrom moves the start of the first range to pos, which is where the
// temp is defined.
func (self *LifeTimeInterval) SetFrom(pos int) {
    if len(self.Ranges) == 0 {
        self.Ranges = []Range{{Start: pos, End: pos}}
        self.End = pos
    } else {
        self.Ranges[0].Start = pos
    }
}

// AddRange adds [from, to] to the interval, merging with every range it
// overlaps or touches.
func (self *LifeTimeInterval) AddRange(from int, to int) {
    nr := Range{Start: from, End: to}
    ret := make([]Range, 0, len(self.Ranges)+1)

    /* copy ranges strictly before the new one */
    i := 0
    for i < len(self.Ranges) && self.Ranges[i].End+1 < nr.Start {
        ret = append(ret, self.Ranges[i])
        i++
    }

    /* absorb everything overlapping or adjacent */
    for i < len(self.Ranges) && self.Ranges[i].Start <= nr.End+1 {
        if self.Ranges[i].Start < nr.Start {
            nr.Start = self.Ranges[i].Start
        }
        if self.Ranges[i].End > nr.End {
            nr.End = self.Ranges[i].End
        }
        i++
    }

    /* the rest follows unchanged */
    ret = append(ret, nr)
    ret = append(ret, self.Ranges[i:]...)
    self.Ranges = ret
    self.End = ret[len(ret)-1].End
}

func (self *LifeTimeInterval) Covers(pos int) bool {
    for _, r := range self.Ranges {
        if r.Covers(pos) {
            return true
        } else if r.Start > pos {
            break
        }
    }
    return false
}

// Split cuts the interval at atPos and returns the part that becomes live
// again at newStart, or nil when nothing is live from there on. The
// receiver keeps everything up to atPos.
func (self *LifeTimeInterval) Split(atPos int, newStart int) *LifeTimeInterval {
    var head []Range
    var tail []Range

    /* distribute the ranges */
    for _, r := range self.Ranges {
        if r.Start <= atPos {
            if r.End > atPos {
                head = append(head, Range{Start: r.Start, End: atPos})
            } else {
                head = append(head, r)
            }
        }
        if r.End >= newStart {
            if r.Start < newStart {
                tail = append(tail, Range{Start: newStart, End: r.End})
            } else {
                tail = append(tail, r)
            }
        }
    }

    /* update the receiver */
    self.Ranges = head
    if len(head) == 0 {
        self.End = InvalidPosition
    } else {
        self.End = head[len(head)-1].End
    }

    /* nothing to re-activate */
    if len(tail) == 0 {
        return nil
    }
    return &LifeTimeInterval{
        Temp:      self.Temp,
        Ranges:    tail,
        End:       tail[len(tail)-1].End,
        Reg:       InvalidRegister,
        Fixed:     self.Fixed,
        SplitFrom: true,
    }
}

func (self *LifeTimeInterval) String() string {
    ret := make([]string, len(self.Ranges))
    for i, r := range self.Ranges {
        ret[i] = r.String()
    }
    return fmt.Sprintf("%s (%s): %s", &self.Temp, self.Temp.Ty, strings.Join(ret, " "))
}

// IntervalLess orders intervals by start position. On equal starts split
// intervals come first, then the shorter one.
func IntervalLess(a *LifeTimeInterval, b *LifeTimeInterval) bool {
    if sa, sb := a.Start(), b.Start(); sa != sb {
        return sa < sb
    } else if a.SplitFrom != b.SplitFrom {
        return a.SplitFrom
    } else if a.End != b.End {
        return a.End < b.End
    } else {
        return a.Temp.Key().Less(b.Temp.Key())
    }
}
