// Copyright 2022-2026 The N42 Authors
// This file is part of the N42 library.
//
// The N42 library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The N42 library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the N42 library. If not, see <http://www.gnu.org/licenses/>.

// Package errors defines the Meplang compiler's error kinds and the
// span-carrying CompileError type used throughout the pipeline, plus
// thin Wrap/Wrapf helpers backed by github.com/pkg/errors for stack
// traces on internal (non-source) failures.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies one of the compiler's diagnosable error categories
// (spec §7). Every CompileError carries exactly one Kind.
type Kind int

const (
	ParseError Kind = iota
	NameAlreadyUsed
	UnknownName
	UnknownAttribute
	InvalidAttributePlacement
	InvalidAttributeArg
	AssumableOpcodeRequired
	ConstantTooLarge
	MissingMain
	MultiplePins
	StarOnAbstract
	EspOnConcrete
	StarTwice
	StarInsideAbstract
	RecursiveBlocks
	RecursiveContracts
	HoleOverflow
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case NameAlreadyUsed:
		return "NameAlreadyUsed"
	case UnknownName:
		return "UnknownName"
	case UnknownAttribute:
		return "UnknownAttribute"
	case InvalidAttributePlacement:
		return "InvalidAttributePlacement"
	case InvalidAttributeArg:
		return "InvalidAttributeArg"
	case AssumableOpcodeRequired:
		return "AssumableOpcodeRequired"
	case ConstantTooLarge:
		return "ConstantTooLarge"
	case MissingMain:
		return "MissingMain"
	case MultiplePins:
		return "MultiplePins"
	case StarOnAbstract:
		return "StarOnAbstract"
	case EspOnConcrete:
		return "EspOnConcrete"
	case StarTwice:
		return "StarTwice"
	case StarInsideAbstract:
		return "StarInsideAbstract"
	case RecursiveBlocks:
		return "RecursiveBlocks"
	case RecursiveContracts:
		return "RecursiveContracts"
	case HoleOverflow:
		return "HoleOverflow"
	default:
		return "Unknown"
	}
}

// Span locates a diagnostic in the original source text. Both offsets
// are byte offsets into the source, Start inclusive and End exclusive.
type Span struct {
	Start int
	End   int
	Line  int // 1-based
	Col   int // 1-based, byte column of Start on Line
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Col)
}

// CompileError is a user-facing, source-spanned diagnostic.
type CompileError struct {
	Kind Kind
	Span Span
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Span, e.Msg)
}

// New constructs a CompileError of the given kind at the given span.
func New(kind Kind, span Span, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps an internal (non-source) error with additional context,
// capturing a stack trace the first time an error is wrapped.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, message)
}

// Wrapf wraps an internal error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return pkgerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return pkgerrors.As(err, target)
}

// Errorf formats according to a format specifier, capturing a stack trace.
func Errorf(format string, a ...interface{}) error {
	return pkgerrors.Errorf(format, a...)
}
