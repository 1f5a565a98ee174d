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

// Package vmopt is the middle-end optimizer of a dynamic-language VM. It
// takes the control flow graph of a function through SSA form, infers and
// propagates value types, folds constants and removes dead code, then
// schedules the blocks and computes the life-time intervals a register
// allocator needs.
package vmopt

import (
    `context`
    `errors`

    `go.uber.org/multierr`
    `golang.org/x/sync/errgroup`

    `github.com/cloudwego/vmopt/internal/ssa`
    `github.com/cloudwego/vmopt/ir`
)

// Optimizer runs the pass pipeline over a single function. The function
// is modified in place.
type Optimizer struct {
    fn   *ir.Function
    cfg  *ssa.CFG
    opts []Option
}

func NewOptimizer(fn *ir.Function, options ...Option) *Optimizer {
    return &Optimizer{fn: fn, opts: options}
}

// Run optimizes the function. On any error other than MalformedCfg the
// function has been restored and lowered through the non-SSA path, so it
// is still usable; the error is returned for the caller to report.
func (self *Optimizer) Run() error {
    var ce CompileError
    o := buildOptions(self.opts)
    saved := self.fn.Clone()

    /* the SSA pipeline */
    cfg, err := ssa.Compile(self.fn, &o)
    if err == nil {
        self.cfg = cfg
        return nil
    }

    /* a malformed input was never touched */
    if !errors.As(err, &ce) || ce.Kind == MalformedCfg {
        return err
    }

    /* start over without SSA form */
    if cfg, err = ssa.Fallback(self.fn, saved, &o); err != nil {
        return multierr.Append(ce, err)
    }
    self.cfg = cfg
    return ce
}

// InSSA reports whether the function is still in SSA form, which is only
// the case when the phi nodes were kept.
func (self *Optimizer) InSSA() bool {
    return self.cfg != nil && self.cfg.InSSA
}

// LifeTimeIntervals returns the intervals of the SSA temps, sorted by
// start position. It is empty when SSA form was skipped.
func (self *Optimizer) LifeTimeIntervals() []*ir.LifeTimeInterval {
    if self.cfg == nil {
        return nil
    }
    return self.cfg.Intervals
}

// Types returns the inferred type of every SSA temp.
func (self *Optimizer) Types() map[ir.TempKey]ir.Type {
    if self.cfg == nil {
        return nil
    }
    return self.cfg.Types
}

// LoopEnds maps every loop header to the last block of its loop in the
// final schedule.
func (self *Optimizer) LoopEnds() map[ir.BlockID]ir.BlockID {
    if self.cfg == nil {
        return nil
    }
    return self.cfg.LoopEnds
}

// OptionalJumps returns the jumps to the block that follows them in the
// final block order. A backend can fall through instead.
func (self *Optimizer) OptionalJumps() map[*ir.Jump]bool {
    if self.cfg == nil {
        return nil
    }
    return self.cfg.OptionalJumps
}

func (self *Optimizer) Function() *ir.Function {
    return self.fn
}

// Optimize is a shorthand for NewOptimizer(fn, options...).Run().
func Optimize(fn *ir.Function, options ...Option) error {
    return NewOptimizer(fn, options...).Run()
}

// OptimizeAll optimizes independent functions concurrently. A failing
// function does not stop the others; all the errors are combined.
func OptimizeAll(ctx context.Context, fns []*ir.Function, options ...Option) error {
    o := buildOptions(options)
    eg, ctx := errgroup.WithContext(ctx)
    errs := make([]error, len(fns))

    /* bound the number of workers */
    if o.Workers > 0 {
        eg.SetLimit(o.Workers)
    }

    /* one task per function */
    for i, fn := range fns {
        i, fn := i, fn
        eg.Go(func() error {
            if err := ctx.Err(); err != nil {
                return err
            }
            errs[i] = Optimize(fn, options...)
            return nil
        })
    }

    /* cancellation wins over the individual errors */
    if err := eg.Wait(); err != nil {
        return err
    }
    return multierr.Combine(errs...)
}
