package pyast

import "strings"

// Tag is a provenance annotation left by a canonicalization pass.
type Tag uint8

const (
	TagDontChangeName Tag = iota
	TagRandomVar
	TagPropagatedVariable
	TagLoadedVariable
	TagReversed
	TagNegated
	TagNumNegated
	TagInverted
	TagAugAssignVal
	TagAugAssignBinOp
	TagCombinedConditional
	TagCombinedConditionalOp
	TagMultiComp
	TagMultiCompPart
	TagMultiCompMiddle
	TagMultiCompOp
	TagAddedNot
	TagAddedNotOp
	TagAddedOther
	TagAddedOtherOp
	TagAddedNeg
	TagCollapsedExpr
	TagRemovedLines
	TagHelperVar
	TagHelperReturnVal
	TagHelperParamAssign
	TagHelperReturnAssign
	TagOrderedBinOp
	TagTypeCastFunction
	TagMovedLine
	TagSecondID

	tagCount
)

var tagNames = [...]string{
	TagDontChangeName:        "dontChangeName",
	TagRandomVar:             "randomVar",
	TagPropagatedVariable:    "propagatedVariable",
	TagLoadedVariable:        "loadedVariable",
	TagReversed:              "reversed",
	TagNegated:               "negated",
	TagNumNegated:            "numNegated",
	TagInverted:              "inverted",
	TagAugAssignVal:          "augAssignVal",
	TagAugAssignBinOp:        "augAssignBinOp",
	TagCombinedConditional:   "combinedConditional",
	TagCombinedConditionalOp: "combinedConditionalOp",
	TagMultiComp:             "multiComp",
	TagMultiCompPart:         "multiCompPart",
	TagMultiCompMiddle:       "multiCompMiddle",
	TagMultiCompOp:           "multiCompOp",
	TagAddedNot:              "addedNot",
	TagAddedNotOp:            "addedNotOp",
	TagAddedOther:            "addedOther",
	TagAddedOtherOp:          "addedOtherOp",
	TagAddedNeg:              "addedNeg",
	TagCollapsedExpr:         "collapsedExpr",
	TagRemovedLines:          "removedLines",
	TagHelperVar:             "helperVar",
	TagHelperReturnVal:       "helperReturnVal",
	TagHelperParamAssign:     "helperParamAssign",
	TagHelperReturnAssign:    "helperReturnAssign",
	TagOrderedBinOp:          "orderedBinOp",
	TagTypeCastFunction:      "typeCastFunction",
	TagMovedLine:             "movedLine",
	TagSecondID:              "secondID",
}

func (t Tag) String() string {
	if t < tagCount {
		return tagNames[t]
	}
	return "tag?"
}

// Tags is a bitset of provenance tags.
type Tags uint64

func (s Tags) Has(t Tag) bool { return s&(1<<t) != 0 }

func (s *Tags) Set(t Tag) { *s |= 1 << t }

func (s *Tags) Clear(t Tag) { *s &^= 1 << t }

// Toggle flips t and reports the new state.
func (s *Tags) Toggle(t Tag) bool {
	*s ^= 1 << t
	return s.Has(t)
}

// SetTo sets or clears t.
func (s *Tags) SetTo(t Tag, on bool) {
	if on {
		s.Set(t)
	} else {
		s.Clear(t)
	}
}

// Any reports whether s shares a tag with other.
func (s Tags) Any(other Tags) bool { return s&other != 0 }

// Of builds a set from a tag list.
func Of(tags ...Tag) Tags {
	var s Tags
	for _, t := range tags {
		s.Set(t)
	}
	return s
}

func (s Tags) String() string {
	if s == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for t := Tag(0); t < tagCount; t++ {
		if !s.Has(t) {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(t.String())
	}
	b.WriteByte('}')
	return b.String()
}

// SynthesizedTags are the provenance tags that may legitimately mark a node without an id.
var SynthesizedTags = Of(
	TagPropagatedVariable, TagOrderedBinOp,
	TagAugAssignVal, TagAugAssignBinOp,
	TagCombinedConditional, TagCombinedConditionalOp,
	TagMultiCompPart, TagMultiCompOp,
	TagSecondID, TagMovedLine,
	TagAddedNot, TagAddedNotOp, TagAddedOther, TagAddedOtherOp,
	TagCollapsedExpr, TagRemovedLines,
	TagHelperVar, TagHelperReturnVal, TagHelperReturnAssign, TagHelperParamAssign,
	TagTypeCastFunction,
)

// HelperTags mark nodes that exist only as helper-inlining bookkeeping.
var HelperTags = Of(TagHelperVar, TagHelperReturnVal, TagHelperParamAssign, TagHelperReturnAssign)
