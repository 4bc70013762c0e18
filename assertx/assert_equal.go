package assertx

import (
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// Equal is assert.Equal backed by go-cmp, so options such as cmpopts.IgnoreFields or
// cmpopts.EquateEmpty apply. The failure message is the cmp diff.
func Equal(t assert.TestingT, expected interface{}, actual interface{}, opts ...cmp.Option) (ok bool) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if !cmp.Equal(expected, actual, opts...) {
		return assert.Fail(t, "Not equal: \n"+cmp.Diff(expected, actual, opts...))
	}
	return true
}
