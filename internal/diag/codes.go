package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Дерево и компаратор
	TreeInfo         Code = 1000
	TreeUnknownKind  Code = 1001
	TreeMissingField Code = 1002
	TreeBadPath      Code = 1003
	TreeMissingID    Code = 1004
	TreeDuplicateID  Code = 1005

	// Канонизация
	CanonInfo           Code = 2000
	CanonUnknownKind    Code = 2001
	CanonNoFixedPoint   Code = 2002
	CanonFoldFailed     Code = 2003
	CanonHelperSkipped  Code = 2004
	CanonMetadataMerge  Code = 2005
	CanonBadGivenCode   Code = 2006
	CanonUnresolvedName Code = 2007

	// Векторы изменений
	ChangeInfo          Code = 3000
	ChangeBadPath       Code = 3001
	ChangeUnknownKind   Code = 3002
	ChangeUpdateFailed  Code = 3003
	ChangeMoveConflict  Code = 3004
	ChangeNotApplicable Code = 3005

	// Diff
	DiffInfo         Code = 4000
	DiffRootMismatch Code = 4001
	DiffListAlign    Code = 4002
	DiffNilSide      Code = 4003

	// Поиск
	SearchInfo           Code = 5000
	SearchNoGoal         Code = 5001
	SearchNoNextState    Code = 5002
	SearchRetry          Code = 5003
	SearchOracleFailed   Code = 5004
	SearchMapTooLarge    Code = 5005
	SearchApproximate    Code = 5006
	SearchUnparsableStep Code = 5007
	SearchBadRemap       Code = 5008

	// Индивидуализация
	IndivInfo        Code = 6000
	IndivHelperEdit  Code = 6001
	IndivMismatch    Code = 6002
	IndivMissingID   Code = 6003
	IndivCanceled    Code = 6004
	IndivUnsupported Code = 6005

	// Границы
	BndInfo        Code = 7000
	BndParse       Code = 7001
	BndUnsupported Code = 7002
	BndStore       Code = 7003
	BndOracle      Code = 7004
	BndCache       Code = 7005
	BndConfig      Code = 7006
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	TreeInfo:         "Tree information",
	TreeUnknownKind:  "Unknown node kind",
	TreeMissingField: "Missing expected field",
	TreeBadPath:      "Path falls off the tree",
	TreeMissingID:    "Node without id or provenance tag",
	TreeDuplicateID:  "Node id used twice",

	CanonInfo:           "Canonicalization information",
	CanonUnknownKind:    "Canonical pass met an unexpected node",
	CanonNoFixedPoint:   "Canonicalization did not reach a fixed point",
	CanonFoldFailed:     "Constant folding skipped",
	CanonHelperSkipped:  "Helper function not inlined",
	CanonMetadataMerge:  "Metadata disagree at merge point",
	CanonBadGivenCode:   "Given code does not parse",
	CanonUnresolvedName: "Name could not be resolved",

	ChangeInfo:          "Change vector information",
	ChangeBadPath:       "Change vector path does not resolve",
	ChangeUnknownKind:   "Unknown change vector kind",
	ChangeUpdateFailed:  "Change vector could not be remapped",
	ChangeMoveConflict:  "Conflicting relocation of one element",
	ChangeNotApplicable: "Change vector does not apply",

	DiffInfo:         "Diff information",
	DiffRootMismatch: "Trees have different root kinds",
	DiffListAlign:    "List alignment left elements unmatched",
	DiffNilSide:      "Diff against a missing tree",

	SearchInfo:           "Search information",
	SearchNoGoal:         "No goal state for submission",
	SearchNoNextState:    "No valid next state",
	SearchRetry:          "Next state search retried",
	SearchOracleFailed:   "Test oracle failed",
	SearchMapTooLarge:    "Name distribution too large, mapping one to one",
	SearchApproximate:    "Edit set minimised approximately",
	SearchUnparsableStep: "Candidate step does not render to valid code",
	SearchBadRemap:       "Renamed goal no longer passes",

	IndivInfo:        "Individualization information",
	IndivHelperEdit:  "Edit touches helper-inlining bookkeeping",
	IndivMismatch:    "Canonical and original trees disagree",
	IndivMissingID:   "Edited node has no original counterpart",
	IndivCanceled:    "Edit cancelled itself out",
	IndivUnsupported: "Provenance combination not handled",

	BndInfo:        "Boundary information",
	BndParse:       "Source does not parse",
	BndUnsupported: "Unsupported Python construct",
	BndStore:       "Solution store error",
	BndOracle:      "Oracle error",
	BndCache:       "Canonical cache error",
	BndConfig:      "Configuration error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TRE%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CAN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CHG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("DIF%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("SRC%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IND%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("BND%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
