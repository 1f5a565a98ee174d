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
    `github.com/cloudwego/vmopt/internal/opts`
    `github.com/cloudwego/vmopt/ir`
)

type Pass interface {
    Apply(*CFG) error
}

type PassDescriptor struct {
    Pass     Pass
    Name     string
    Optional bool
}

var Passes = [...]PassDescriptor{
    {Name: "Phi Cleanup", Pass: new(PhiCleanup)},
    {Name: "Dead Code Elimination", Pass: new(DeadCode), Optional: true},
    {Name: "Type Inference", Pass: new(TypeInference)},
    {Name: "Reverse Inference", Pass: new(ReverseInference)},
    {Name: "Type Propagation", Pass: new(TypePropagation)},
    {Name: "Critical Edge Splitting", Pass: new(SplitCritical)},
    {Name: "Constant Propagation", Pass: new(ConstProp), Optional: true},
    {Name: "Branch Elimination", Pass: new(BranchElim), Optional: true},
    {Name: "Copy Elimination", Pass: new(CopyElim), Optional: true},
    {Name: "Late Constant Propagation", Pass: new(ConstProp), Optional: true},
    {Name: "Late Dead Code Elimination", Pass: new(DeadCode), Optional: true},
    {Name: "Block Scheduling", Pass: new(Layout)},
    {Name: "Critical Edge Check", Pass: new(CheckCritical)},
    {Name: "Life-time Intervals", Pass: new(LiveIntervals)},
    {Name: "Out of SSA", Pass: new(OutOfSSA)}, // The CFG is no longer in SSA form after this pass.
    {Name: "Optional Jumps", Pass: new(OptionalJumps)},
}

func executeSSAPasses(cfg *CFG) error {
    for _, p := range Passes {
        if p.Optional && cfg.Opts.NoOpt {
            continue
        }
        cfg.tracef("%s: running pass %q", cfg.Func.Name, p.Name)
        if err := p.Pass.Apply(cfg); err != nil {
            return err
        }
    }
    return nil
}

// CanUseSSA reports whether the function can be taken into SSA form.
// Exception handlers, with scopes and eval make temps observable from
// places the CFG does not show.
func CanUseSSA(fn *ir.Function, o *opts.Options) bool {
    return !o.NoSSA && !fn.HasTry && !fn.HasWith && !fn.UsesEval && !fn.DebugMode
}

func prepare(fn *ir.Function, o *opts.Options) (*CFG, error) {
    if err := fn.Verify(); err != nil {
        return nil, errMalformed(fn.Name, err, "invalid control flow graph")
    }

    /* drop the dead blocks and make sure no expression is shared */
    if n := removeUnreachableBlocks(fn); n != 0 {
        o.Tracef("%s: removed %d unreachable blocks", fn.Name, n)
    }
    fn.Unshare()
    return newCFG(fn, o), nil
}

// Lower takes the function through the non-SSA path: every virtual
// register gets its own stack slot.
func Lower(fn *ir.Function, o *opts.Options) (*CFG, error) {
    cfg, err := prepare(fn, o)
    if err != nil {
        return nil, err
    }
    lower(cfg)
    return cfg, nil
}

func lower(cfg *CFG) {
    n := lowerTemps(cfg.Func)
    cfg.OptionalJumps = optionalJumps(cfg.Func)
    cfg.tracef("%s: lowered %d temps to stack slots", cfg.Func.Name, n)
    cfg.dump("lowered")
}

// Compile optimizes a single function in place. The function is either
// taken through SSA form and back, or lowered directly when SSA is not
// applicable. The returned CFG carries the analysis results.
func Compile(fn *ir.Function, o *opts.Options) (*CFG, error) {
    cfg, err := prepare(fn, o)
    if err != nil {
        return nil, err
    }

    /* count every function that made it this far */
    statAdd(&FuncCount, 1)
    cfg.dump("input")

    /* functions that can't be in SSA form */
    if !CanUseSSA(fn, o) {
        statAdd(&SkipCount, 1)
        cfg.tracef("%s: SSA form skipped", fn.Name)
        lower(cfg)
        return cfg, nil
    }

    /* every block that survived has to be reachable through plain edges */
    live := reachable(fn, fn.Entry())
    for _, bb := range fn.Blocks {
        if !live[bb.Index] {
            return nil, errMalformed(fn.Name, nil, "block L%d is only reachable through exception edges", bb.Index)
        }
    }

    /* build the SSA form */
    cfg.Rebuild()
    insertPhiNodes(cfg, collectVariables(fn))
    renameVariables(cfg)
    cfg.InSSA = true
    cfg.DefUses = BuildDefUses(fn)
    cfg.dump("SSA")

    /* run all the passes */
    if err = executeSSAPasses(cfg); err != nil {
        return nil, err
    }
    return cfg, nil
}

// Fallback restores the function from a snapshot taken before Compile
// and lowers it through the non-SSA path.
func Fallback(fn *ir.Function, saved *ir.Function, o *opts.Options) (*CFG, error) {
    statAdd(&FallbackCount, 1)
    fn.Restore(saved)
    o.Tracef("%s: falling back to the non-SSA path", fn.Name)
    return Lower(fn, o)
}
