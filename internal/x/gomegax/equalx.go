package gomegax

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// EqualX is an alternative to gomega.Equal() that compares values using
// go-cmp.
//
// If no options are given, nil and empty slices and maps are considered equal.
// Times are always compared using their Equal() method, so events that have
// been through a transport compare equal to the originals.
func EqualX(expected interface{}, options ...cmp.Option) types.GomegaMatcher {
	if len(options) == 0 {
		options = append(options, cmpopts.EquateEmpty())
	}

	return &equalMatcher{
		expected: expected,
		options:  options,
	}
}

type equalMatcher struct {
	expected interface{}
	options  cmp.Options
}

func (m *equalMatcher) Match(actual interface{}) (bool, error) {
	return cmp.Equal(actual, m.expected, m.options), nil
}

func (m *equalMatcher) FailureMessage(actual interface{}) string {
	return m.message(actual, "to equal")
}

func (m *equalMatcher) NegatedFailureMessage(actual interface{}) string {
	return m.message(actual, "not to equal")
}

func (m *equalMatcher) message(actual interface{}, verb string) string {
	diff := cmp.Diff(m.expected, actual, m.options)

	return format.Message(actual, verb, m.expected) +
		"\n\nDiff (-expected +actual):\n" +
		format.IndentString(diff, 1)
}
