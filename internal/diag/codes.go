package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown error
	UnknownCode Code = 0

	// Syntax problems found while resolving types
	SynInfo              Code = 2000
	SynNotClassValue     Code = 2001
	SynNotAssignable     Code = 2002
	SynVoidValue         Code = 2003
	SynUnknownMember     Code = 2004
	SynBadTypeReference  Code = 2005
	SynBadUniverseEntry  Code = 2006
	SynDuplicateDeclName Code = 2007
	SynNotIndexable      Code = 2008
	SynNotCallable       Code = 2009

	// Semantic
	SemaInfo                Code = 3000
	SemaTypeMismatch        Code = 3001
	SemaPrimitiveInterface  Code = 3002
	SemaNarrowingCast       Code = 3003
	SemaLiteralConversion   Code = 3004
	SemaInvalidOperands     Code = 3005
	SemaNoOverload          Code = 3010
	SemaAmbiguousOverload   Code = 3011
	SemaUninferredParams    Code = 3012
	SemaInferenceConflict   Code = 3013
	SemaUnknownEnumValue    Code = 3014
	SemaBoxNoCtor           Code = 3015
	SemaBoundViolation      Code = 3020
	SemaArgCount            Code = 3021
	SemaWildcardArgument    Code = 3022
	SemaCyclicInstantiation Code = 3023
	SemaCyclicDeclaration   Code = 3024
	SemaNotGeneric          Code = 3025

	// Lowering into register programs
	LowerInfo        Code = 5000
	LowerUnitAborted Code = 5001
	LowerEmitFailure Code = 5002
	LowerExpectation Code = 5003
	LowerUnreadable  Code = 5004
	ObsInfo          Code = 6000
	ObsTimings       Code = 6001
	ConfigInvalid    Code = 7001
	ConfigUnreadable Code = 7002
	ConfigUnknownKey Code = 7003
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	SynInfo:                 "Syntax information",
	SynNotClassValue:        "Expression is not a class value",
	SynNotAssignable:        "Expression is not assignable",
	SynVoidValue:            "Void result used as a value",
	SynUnknownMember:        "Unknown member",
	SynBadTypeReference:     "Malformed type reference",
	SynBadUniverseEntry:     "Malformed declaration entry",
	SynDuplicateDeclName:    "Duplicate declaration name",
	SynNotIndexable:         "Expression is not indexable",
	SynNotCallable:          "Expression is not callable",
	SemaInfo:                "Semantic information",
	SemaTypeMismatch:        "Type mismatch",
	SemaPrimitiveInterface:  "Primitive interface is not a storage type",
	SemaNarrowingCast:       "Narrowing conversion requires an explicit cast",
	SemaLiteralConversion:   "Literal cannot be converted",
	SemaInvalidOperands:     "Invalid operands",
	SemaNoOverload:          "No applicable overload",
	SemaAmbiguousOverload:   "Ambiguous overload",
	SemaUninferredParams:    "Generic parameters cannot be inferred",
	SemaInferenceConflict:   "Conflicting generic argument inference",
	SemaUnknownEnumValue:    "Unknown enum value",
	SemaBoxNoCtor:           "Boxing target has no parameterless constructor",
	SemaBoundViolation:      "Generic argument violates parameter bound",
	SemaArgCount:            "Wrong number of generic arguments",
	SemaWildcardArgument:    "Wildcard interval used as generic argument",
	SemaCyclicInstantiation: "Self-referential generic instantiation",
	SemaCyclicDeclaration:   "Cyclic declaration",
	SemaNotGeneric:          "Declaration is not generic",
	LowerInfo:               "Lowering information",
	LowerUnitAborted:        "Compilation unit abandoned",
	LowerEmitFailure:        "Code sink failure",
	LowerExpectation:        "Unit outcome differs from its expectation",
	LowerUnreadable:         "Universe cannot be loaded",
	ObsInfo:                 "Observability",
	ObsTimings:              "Pipeline timings",
	ConfigInvalid:           "Invalid configuration",
	ConfigUnreadable:        "Configuration cannot be read",
	ConfigUnknownKey:        "Unknown configuration key",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
