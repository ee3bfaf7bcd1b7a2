package workflow

import (
	"strconv"
	"strings"
)

// DefaultBranchPrefix is prepended to a pull request number to name its
// local branch.
const DefaultBranchPrefix = "pr-"

// BranchCodec maps pull request numbers to local branch names and back.
// Prefix must be non-empty for the mapping to be injective; configuration
// validation guarantees that.
type BranchCodec struct {
	Prefix string
}

// NewBranchCodec returns a codec for prefix, or for DefaultBranchPrefix when
// prefix is empty.
func NewBranchCodec(prefix string) BranchCodec {
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	return BranchCodec{Prefix: prefix}
}

// Encode returns the local branch name for pull request number.
func (c BranchCodec) Encode(number int) string {
	return c.Prefix + strconv.Itoa(number)
}

// Decode strips the prefix from branch. It reports false when branch does
// not start with the prefix. The remainder is returned as-is and may not be
// numeric.
func (c BranchCodec) Decode(branch string) (string, bool) {
	if !strings.HasPrefix(branch, c.Prefix) {
		return "", false
	}
	return branch[len(c.Prefix):], true
}

// Number decodes branch and parses the remainder as a non-negative decimal
// number. Anything else, including a zero-padded remainder that Encode would
// never produce, is reported as unresolved.
func (c BranchCodec) Number(branch string) (int, bool) {
	rest, ok := c.Decode(branch)
	if !ok || rest == "" {
		return 0, false
	}
	if len(rest) > 1 && rest[0] == '0' {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
