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

package vmopt

import (
    `fmt`

    `github.com/cloudwego/vmopt/diag`
    `github.com/cloudwego/vmopt/internal/opts`
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithDiagnostics sends traces and IR dumps to the sink.
//
// A nil sink discards everything, which is also the default.
func WithDiagnostics(sink diag.Sink) Option {
    if sink == nil {
        sink = diag.Nop{}
    }
    return func(o *opts.Options) { o.Sink = sink }
}

// WithoutSSA lowers every function through the non-SSA path.
//
// This value can also be configured with the `VMOPT_NO_SSA` environment
// variable.
func WithoutSSA(v bool) Option {
    return func(o *opts.Options) { o.NoSSA = v }
}

// WithoutOptimization skips phi cleanup and dead code elimination. The
// mandatory passes still run.
//
// This value can also be configured with the `VMOPT_NO_OPT` environment
// variable.
func WithoutOptimization(v bool) Option {
    return func(o *opts.Options) { o.NoOpt = v }
}

// WithKeepSSA leaves the phi nodes in place after the last pass, for
// backends that do their own out-of-SSA translation.
//
// This value can also be configured with the `VMOPT_KEEP_SSA` environment
// variable.
func WithKeepSSA(v bool) Option {
    return func(o *opts.Options) { o.KeepSSA = v }
}

// WithMaxInferenceRounds limits the number of rounds type inference may
// take before giving up with FixpointBudgetExceeded.
//
// The default value of this option is "10000".
func WithMaxInferenceRounds(n int) Option {
    if n <= 0 {
        panic(fmt.Sprintf("vmopt: invalid inference round limit: %d", n))
    } else {
        return func(o *opts.Options) { o.MaxInferenceRounds = n }
    }
}

// WithWorkers sets how many functions OptimizeAll optimizes concurrently.
//
// Set this option to "0" removes the limit.
//
// The default value of this option is "4".
func WithWorkers(n int) Option {
    if n < 0 {
        panic(fmt.Sprintf("vmopt: invalid worker count: %d", n))
    } else {
        return func(o *opts.Options) { o.Workers = n }
    }
}

// SetMaxInferenceRounds sets the default inference round limit for all
// functions from now on.
//
// Returns the old opts.MaxInferenceRounds value.
func SetMaxInferenceRounds(n int) int {
    n, opts.MaxInferenceRounds = opts.MaxInferenceRounds, n
    return n
}

func buildOptions(options []Option) opts.Options {
    o := opts.GetDefaultOptions()
    for _, fn := range options {
        fn(&o)
    }
    return o
}
