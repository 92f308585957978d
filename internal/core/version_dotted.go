package core

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"

	"lpm/internal/shared"
)

// DottedNumberFormat handles versions such as "12.3.4", "12.3.4-r1" and
// "2.0 (stable)": a dotted numeric run, an optional patch descriptor with
// its number, and an optional branch tag.
type DottedNumberFormat struct{}

type dottedNumber struct {
	numbers     []uint64
	patchDesc   string
	patchNumber uint64
	branch      string
}

var dottedNumberPattern = regexp.MustCompile(
	`^((?:0|[1-9][0-9]*)(?:\.(?:0|[1-9][0-9]*))*)` +
		`(?:-([A-Za-z]+)([1-9][0-9]*))?` +
		`(?:\s*\(([A-Za-z0-9_.+/-]+)\))?$`)

func (DottedNumberFormat) Name() string {
	return "dotted-number"
}

func (DottedNumberFormat) Parse(text string) (any, bool) {
	match := dottedNumberPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	parts := strings.Split(match[1], ".")
	numbers := make([]uint64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, false
		}
		numbers = append(numbers, n)
	}
	value := dottedNumber{numbers: numbers, patchDesc: match[2], branch: match[4]}
	if value.patchDesc != "" {
		n, err := strconv.ParseUint(match[3], 10, 64)
		if err != nil {
			return nil, false
		}
		value.patchNumber = n
	}
	return value, true
}

func (DottedNumberFormat) Render(value any) string {
	v := value.(dottedNumber)
	var b strings.Builder
	b.WriteString(joinNumbers(v.numbers, "."))
	if v.patchDesc != "" {
		b.WriteString("-")
		b.WriteString(v.patchDesc)
		b.WriteString(strconv.FormatUint(v.patchNumber, 10))
	}
	if v.branch != "" {
		b.WriteString(" (")
		b.WriteString(v.branch)
		b.WriteString(")")
	}
	return b.String()
}

// SafeName renders "dn_" + numbers joined by "_" + the patch without a
// separator. Numbers never contain letters and the patch always starts with
// one, so only the branch needs a marker ("_b") to stay unambiguous.
func (DottedNumberFormat) SafeName(value any) string {
	v := value.(dottedNumber)
	var b strings.Builder
	b.WriteString("dn_")
	b.WriteString(joinNumbers(v.numbers, "_"))
	if v.patchDesc != "" {
		b.WriteString(v.patchDesc)
		b.WriteString(strconv.FormatUint(v.patchNumber, 10))
	}
	if v.branch != "" {
		b.WriteString("_b")
		b.WriteString(shared.SafeIdentifier(v.branch))
	}
	return b.String()
}

// Compare orders by the numeric run (a shorter run is lower once the shared
// prefix is equal), then by patch (absent first, descriptor lexically, number
// numerically), then by branch tag (absent first, lexically).
func (DottedNumberFormat) Compare(a, b any) int {
	x, y := a.(dottedNumber), b.(dottedNumber)
	for i := 0; i < len(x.numbers) || i < len(y.numbers); i++ {
		switch {
		case i >= len(x.numbers):
			return -1
		case i >= len(y.numbers):
			return 1
		}
		if c := cmp.Compare(x.numbers[i], y.numbers[i]); c != 0 {
			return c
		}
	}
	if c := compareOptional(x.patchDesc, y.patchDesc); c != 0 {
		return c
	}
	if c := cmp.Compare(x.patchNumber, y.patchNumber); c != 0 {
		return c
	}
	return compareOptional(x.branch, y.branch)
}

// compareOptional orders the empty string before any other value.
func compareOptional(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func joinNumbers(numbers []uint64, sep string) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, strconv.FormatUint(n, 10))
	}
	return strings.Join(parts, sep)
}
