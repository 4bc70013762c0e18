package assertx

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type tHelper interface {
	Helper()
}

var dump = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	DisableMethods:          true,
	MaxDepth:                10,
}

// ElementsMatch asserts that two slices or arrays hold the same elements regardless of order,
// comparing elements with go-cmp. Duplicates must appear the same number of times in both.
//
// assertx.ElementsMatch(t, []string{"b", "a"}, ids)
func ElementsMatch(t assert.TestingT, expected, actual interface{}, opts ...cmp.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	ev, ok := listValue(t, expected)
	if !ok {
		return false
	}
	av, ok := listValue(t, actual)
	if !ok {
		return false
	}

	missing, extra := unmatched(ev, av, opts)
	if len(missing) == 0 && len(extra) == 0 {
		return true
	}

	var msg strings.Builder
	msg.WriteString("elements differ")
	if len(missing) > 0 {
		msg.WriteString("\n\nmissing from actual:\n" + dump.Sdump(missing))
	}
	if len(extra) > 0 {
		msg.WriteString("\n\nunexpected in actual:\n" + dump.Sdump(extra))
	}
	msg.WriteString("\n\nexpected:\n" + dump.Sdump(expected))
	msg.WriteString("\n\nactual:\n" + dump.Sdump(actual))
	return assert.Fail(t, msg.String())
}

// listValue accepts nil as an empty list.
func listValue(t assert.TestingT, list interface{}) (reflect.Value, bool) {
	if list == nil {
		return reflect.Value{}, true
	}
	v := reflect.ValueOf(list)
	if k := v.Kind(); k != reflect.Array && k != reflect.Slice {
		return v, assert.Fail(t, fmt.Sprintf("%#v is a %s, expected an array or a slice", list, k))
	}
	return v, true
}

func length(v reflect.Value) int {
	if !v.IsValid() {
		return 0
	}
	return v.Len()
}

// unmatched pairs every expected element with a distinct equal actual element and returns
// the leftovers of both sides.
func unmatched(expected, actual reflect.Value, opts []cmp.Option) (missing, extra []interface{}) {
	used := make([]bool, length(actual))
	for i := 0; i < length(expected); i++ {
		e := expected.Index(i).Interface()
		found := false
		for j := range used {
			if !used[j] && cmp.Equal(e, actual.Index(j).Interface(), opts...) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, e)
		}
	}
	for j, u := range used {
		if !u {
			extra = append(extra, actual.Index(j).Interface())
		}
	}
	return missing, extra
}
