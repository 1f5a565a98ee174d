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
    `github.com/cloudwego/vmopt/internal/ssa`
)

// CompileError aborts the optimization of a single function. The function
// is left in a state the non-optimizing path can still run, except for
// MalformedCfg, where it was never touched.
type CompileError = ssa.CompileError

// ErrorKind classifies a CompileError.
type ErrorKind = ssa.ErrorKind

const (
    // MalformedCfg means the input violated a structural precondition.
    MalformedCfg = ssa.MalformedCfg

    // UnsupportedConstruct means SSA form was abandoned for this function.
    // It has been lowered through the non-SSA path instead.
    UnsupportedConstruct = ssa.UnsupportedConstruct

    // FixpointBudgetExceeded means type inference did not converge. The
    // function has been lowered through the non-SSA path as well.
    FixpointBudgetExceeded = ssa.FixpointBudgetExceeded
)
