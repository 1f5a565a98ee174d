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
    `fmt`
)

type ErrorKind uint8

const (
    MalformedCfg ErrorKind = iota + 1
    UnsupportedConstruct
    FixpointBudgetExceeded
)

func (self ErrorKind) String() string {
    switch self {
    case MalformedCfg:
        return "malformed CFG"
    case UnsupportedConstruct:
        return "unsupported construct"
    case FixpointBudgetExceeded:
        return "fixpoint budget exceeded"
    default:
        return fmt.Sprintf("ErrorKind(%d)", self)
    }
}

// CompileError aborts the optimization of a single function.
type CompileError struct {
    Kind   ErrorKind
    Func   string
    Reason string
    Cause  error
}

func (self CompileError) Error() string {
    if self.Cause != nil {
        return fmt.Sprintf("%s in function %q: %s: %v", self.Kind, self.Func, self.Reason, self.Cause)
    } else {
        return fmt.Sprintf("%s in function %q: %s", self.Kind, self.Func, self.Reason)
    }
}

func (self CompileError) Unwrap() error {
    return self.Cause
}

func errMalformed(fn string, cause error, reason string, args ...interface{}) CompileError {
    return CompileError{
        Kind:   MalformedCfg,
        Func:   fn,
        Reason: fmt.Sprintf(reason, args...),
        Cause:  cause,
    }
}

func errUnsupported(fn string, reason string, args ...interface{}) CompileError {
    return CompileError{
        Kind:   UnsupportedConstruct,
        Func:   fn,
        Reason: fmt.Sprintf(reason, args...),
    }
}

func errBudget(fn string, rounds int) CompileError {
    return CompileError{
        Kind:   FixpointBudgetExceeded,
        Func:   fn,
        Reason: fmt.Sprintf("type inference did not converge within %d rounds", rounds),
    }
}
