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
    `math`
    `strconv`
    `strings`
)

// Expr is a node of an expression tree. The set of implementations is
// closed: every Expr is one of the pointer types declared in this file.
type Expr interface {
    fmt.Stringer
    Type() Type
    SetType(t Type)
    irexpr()
}

// Typed carries the inferred type of an expression node.
type Typed struct {
    Ty Type
}

func (self *Typed) Type() Type     { return self.Ty }
func (self *Typed) SetType(t Type) { self.Ty = t }
func (self *Typed) irexpr()        {}

type AluOp uint8

const (
    OpInvalid AluOp = iota
    OpIfTrue
    OpNot
    OpUMinus
    OpUPlus
    OpCompl
    OpIncrement
    OpDecrement
    OpBitAnd
    OpBitOr
    OpBitXor
    OpAdd
    OpSub
    OpMul
    OpDiv
    OpMod
    OpLShift
    OpRShift
    OpURShift
    OpGt
    OpLt
    OpGe
    OpLe
    OpEqual
    OpNotEqual
    OpStrictEqual
    OpStrictNotEqual
    OpInstanceof
    OpIn
    OpAnd
    OpOr
)

var aluOpNames = [...]string{
    OpInvalid:        "<invalid>",
    OpIfTrue:         "(bool)",
    OpNot:            "!",
    OpUMinus:         "-",
    OpUPlus:          "+",
    OpCompl:          "~",
    OpIncrement:      "++",
    OpDecrement:      "--",
    OpBitAnd:         "&",
    OpBitOr:          "|",
    OpBitXor:         "^",
    OpAdd:            "+",
    OpSub:            "-",
    OpMul:            "*",
    OpDiv:            "/",
    OpMod:            "%",
    OpLShift:         "<<",
    OpRShift:         ">>",
    OpURShift:        ">>>",
    OpGt:             ">",
    OpLt:             "<",
    OpGe:             ">=",
    OpLe:             "<=",
    OpEqual:          "==",
    OpNotEqual:       "!=",
    OpStrictEqual:    "===",
    OpStrictNotEqual: "!==",
    OpInstanceof:     "instanceof",
    OpIn:             "in",
    OpAnd:            "&&",
    OpOr:             "||",
}

func (self AluOp) String() string {
    if int(self) < len(aluOpNames) {
        return aluOpNames[self]
    } else {
        return fmt.Sprintf("<op %d>", self)
    }
}

// TempKind is the storage class of a Temp.
type TempKind uint8

const (
    Formal TempKind = iota
    ScopedFormal
    Local
    ScopedLocal
    VirtualRegister
    StackSlot
)

var tempKindNames = [...]string{
    Formal:          "formal",
    ScopedFormal:    "scoped_formal",
    Local:           "local",
    ScopedLocal:     "scoped_local",
    VirtualRegister: "vreg",
    StackSlot:       "slot",
}

func (self TempKind) String() string {
    if int(self) < len(tempKindNames) {
        return tempKindNames[self]
    } else {
        return fmt.Sprintf("<kind %d>", self)
    }
}

// TempKey identifies the storage a Temp refers to. Two Temp nodes with the
// same key are the same variable.
type TempKey struct {
    Kind  TempKind
    Index int
    Scope int
}

// Less orders keys by kind, then scope, then index.
func (self TempKey) Less(other TempKey) bool {
    if self.Kind != other.Kind {
        return self.Kind < other.Kind
    } else if self.Scope != other.Scope {
        return self.Scope < other.Scope
    } else {
        return self.Index < other.Index
    }
}

func (self TempKey) String() string {
    var sb strings.Builder
    switch self.Kind {
    case Formal:
        sb.WriteString("$a")
    case ScopedFormal:
        sb.WriteString("$sa")
    case Local:
        sb.WriteString("$l")
    case ScopedLocal:
        sb.WriteString("$sl")
    case VirtualRegister:
        sb.WriteString("%")
    case StackSlot:
        sb.WriteString("&")
    default:
        sb.WriteString("?")
    }
    sb.WriteString(strconv.Itoa(self.Index))
    if self.Scope != 0 {
        sb.WriteString("@")
        sb.WriteString(strconv.Itoa(self.Scope))
    }
    return sb.String()
}

// BuiltinKind identifies runtime helpers referenced by name.
type BuiltinKind uint8

const (
    BuiltinInvalid BuiltinKind = iota
    BuiltinTypeof
    BuiltinDelete
    BuiltinThrow
    BuiltinRethrow
    BuiltinFinishTry
    BuiltinForeachIteratorObject
    BuiltinForeachNextPropertyName
    BuiltinPushWithScope
    BuiltinPopScope
    BuiltinDeclareVars
    BuiltinDefineArray
    BuiltinDefineObjectLiteral
    BuiltinSetupArgumentsObject
    BuiltinConvertThisToObject
)

type (
    // Const is a numeric, boolean, null or undefined literal. Its type is
    // the literal type; booleans are stored as 0 or 1 and null/undefined
    // carry NaN.
    Const struct {
        Typed
        Value float64
    }

    String struct {
        Typed
        Value string
    }

    RegExp struct {
        Typed
        Pattern string
        Flags   string
    }

    // Name is a lookup of an identifier, or a reference to a runtime
    // builtin when Builtin is not BuiltinInvalid.
    Name struct {
        Typed
        Id                string
        Builtin           BuiltinKind
        Global            bool
        FreeOfSideEffects bool
    }

    Temp struct {
        Typed
        Kind  TempKind
        Index int
        Scope int
    }

    Closure struct {
        Typed
        Func string
    }

    // Convert changes the representation of Expr to the node's own type.
    Convert struct {
        Typed
        Expr Expr
    }

    Unop struct {
        Typed
        Op   AluOp
        Expr Expr
    }

    Binop struct {
        Typed
        Op    AluOp
        Left  Expr
        Right Expr
    }

    Call struct {
        Typed
        Base Expr
        Args []Expr
    }

    New struct {
        Typed
        Base Expr
        Args []Expr
    }

    Subscript struct {
        Typed
        Base  Expr
        Index Expr
    }

    Member struct {
        Typed
        Base Expr
        Name string
    }
)

func NewNumber(v float64) *Const {
    return &Const{Typed: Typed{DoubleType}, Value: v}
}

func NewBool(v bool) *Const {
    if v {
        return &Const{Typed: Typed{BoolType}, Value: 1}
    } else {
        return &Const{Typed: Typed{BoolType}, Value: 0}
    }
}

func NewNull() *Const {
    return &Const{Typed: Typed{NullType}, Value: math.NaN()}
}

func NewUndefined() *Const {
    return &Const{Typed: Typed{UndefinedType}, Value: math.NaN()}
}

func NewString(v string) *String {
    return &String{Value: v}
}

func NewName(id string) *Name {
    return &Name{Id: id}
}

func NewBuiltin(kind BuiltinKind) *Name {
    return &Name{Builtin: kind}
}

func NewTemp(kind TempKind, index int, scope int) *Temp {
    return &Temp{Kind: kind, Index: index, Scope: scope}
}

func NewConvert(e Expr, t Type) *Convert {
    return &Convert{Typed: Typed{t}, Expr: e}
}

func NewUnop(op AluOp, e Expr) *Unop {
    return &Unop{Op: op, Expr: e}
}

func NewBinop(op AluOp, l Expr, r Expr) *Binop {
    return &Binop{Op: op, Left: l, Right: r}
}

func NewCall(base Expr, args ...Expr) *Call {
    return &Call{Base: base, Args: args}
}

func NewMember(base Expr, name string) *Member {
    return &Member{Base: base, Name: name}
}

func NewSubscript(base Expr, index Expr) *Subscript {
    return &Subscript{Base: base, Index: index}
}

// Key returns the storage identity of the temp.
func (self *Temp) Key() TempKey {
    return TempKey{Kind: self.Kind, Index: self.Index, Scope: self.Scope}
}

// Is reports whether both temps refer to the same storage.
func (self *Temp) Is(other *Temp) bool {
    return self.Kind == other.Kind && self.Index == other.Index && self.Scope == other.Scope
}

func (self *Const) String() string {
    switch self.Ty {
    case BoolType:
        return strconv.FormatBool(self.Value != 0)
    case NullType:
        return "null"
    case UndefinedType:
        return "undefined"
    default:
        return strconv.FormatFloat(self.Value, 'g', -1, 64)
    }
}

func (self *String) String() string  { return strconv.Quote(self.Value) }
func (self *RegExp) String() string  { return "/" + self.Pattern + "/" + self.Flags }
func (self *Temp) String() string    { return self.Key().String() }
func (self *Closure) String() string { return "closure(" + self.Func + ")" }
func (self *Member) String() string  { return self.Base.String() + "." + self.Name }

func (self *Name) String() string {
    if self.Builtin != BuiltinInvalid {
        return fmt.Sprintf("builtin#%d", self.Builtin)
    } else {
        return self.Id
    }
}

func (self *Convert) String() string {
    return fmt.Sprintf("convert<%s>(%s)", self.Ty, self.Expr)
}

func (self *Unop) String() string {
    return self.Op.String() + self.Expr.String()
}

func (self *Binop) String() string {
    return fmt.Sprintf("(%s %s %s)", self.Left, self.Op, self.Right)
}

func (self *Call) String() string {
    return self.Base.String() + "(" + joinExprs(self.Args) + ")"
}

func (self *New) String() string {
    return "new " + self.Base.String() + "(" + joinExprs(self.Args) + ")"
}

func (self *Subscript) String() string {
    return self.Base.String() + "[" + self.Index.String() + "]"
}

func joinExprs(v []Expr) string {
    ret := make([]string, len(v))
    for i, e := range v {
        ret[i] = e.String()
    }
    return strings.Join(ret, ", ")
}
