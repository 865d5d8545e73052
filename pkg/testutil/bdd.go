package testutil

import "testing"

// Given, When, and Then wrap t.Run with scenario wording, for flow tests
// that read as a narrative. Unit tests stay table-driven; these helpers are
// for the handful of end-to-end paths worth telling as a story.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
