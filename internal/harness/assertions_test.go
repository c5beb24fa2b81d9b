package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddInvocationTrace("Cart.add", map[string]interface{}{"code": "B001", "quantity": 2}, 1)
	r.AddCompletionTrace(CaseSuccess, nil, 2)
	r.AddInvocationTrace("Cart.add", map[string]interface{}{"code": "K001", "quantity": 1}, 3)
	r.AddCompletionTrace(CaseSuccess, nil, 4)
	r.AddInvocationTrace("Sales.checkout", map[string]interface{}{"payment": "cash", "cash": 70000.0}, 5)
	r.AddCompletionTrace(CaseSuccess, nil, 6)
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceContains(trace, Assertion{Action: "Cart.add", Args: map[string]interface{}{"code": "K001"}}))
	// YAML ints and stored float64 compare equal.
	require.NoError(t, assertTraceContains(trace, Assertion{Action: "Sales.checkout", Args: map[string]interface{}{"cash": 70000}}))

	err := assertTraceContains(trace, Assertion{Action: "Cart.add", Args: map[string]interface{}{"code": "Z999"}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, err.Error(), "Full trace")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"Cart.add", "Sales.checkout"}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{"Sales.checkout", "Cart.add"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"Cart.add", "Clock.advance"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: Clock.advance")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceCount(trace, Assertion{Action: "Cart.add", Count: 2}))
	require.NoError(t, assertTraceCount(trace, Assertion{Action: "Cart.clear", Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: "Sales.checkout", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestMatchArgs(t *testing.T) {
	actual := map[string]interface{}{"code": "B001", "stockLevel": 8.0, "extra": true}

	assert.True(t, matchArgs(actual, nil))
	assert.True(t, matchArgs(actual, map[string]interface{}{"stockLevel": 8}))
	assert.False(t, matchArgs(actual, map[string]interface{}{"stockLevel": 9}))
	assert.False(t, matchArgs(actual, map[string]interface{}{"missing": 1}))
	assert.False(t, matchArgs("not a map", map[string]interface{}{"code": "B001"}))
}

func TestEvaluateAssertions_FinalStateNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertFinalState, Table: "products", Expect: map[string]interface{}{"code": "B001"}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a store")
}
