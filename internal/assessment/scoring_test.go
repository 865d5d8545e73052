package assessment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
)

// vector builds an answer slice of n items summing to total by filling from
// the front. Keeps later items (notably the PHQ-9 ninth) at zero so band
// tests do not accidentally cross crisis rules.
func vector(t *testing.T, n, total int) []int {
	t.Helper()
	require.LessOrEqual(t, total, n*MaxItemValue, "total not reachable with %d items", n)
	answers := make([]int, n)
	for i := 0; i < n && total > 0; i++ {
		v := total
		if v > MaxItemValue {
			v = MaxItemValue
		}
		answers[i] = v
		total -= v
	}
	return answers
}

// TestValidate_SeverityBands pins the fixed band tables at every boundary.
// Bands are inclusive; an off-by-one here changes a clinical severity label.
func TestValidate_SeverityBands(t *testing.T) {
	tests := []struct {
		name       string
		instrument id.Instrument
		total      int
		want       Severity
	}{
		{"phq9 zero is minimal", id.InstrumentPHQ9, 0, SeverityMinimal},
		{"phq9 4 is minimal", id.InstrumentPHQ9, 4, SeverityMinimal},
		{"phq9 5 is mild", id.InstrumentPHQ9, 5, SeverityMild},
		{"phq9 9 is mild", id.InstrumentPHQ9, 9, SeverityMild},
		{"phq9 10 is moderate", id.InstrumentPHQ9, 10, SeverityModerate},
		{"phq9 14 is moderate", id.InstrumentPHQ9, 14, SeverityModerate},
		{"phq9 15 is moderately severe", id.InstrumentPHQ9, 15, SeverityModeratelySevere},
		{"phq9 19 is moderately severe", id.InstrumentPHQ9, 19, SeverityModeratelySevere},
		{"phq9 20 is severe", id.InstrumentPHQ9, 20, SeveritySevere},
		{"phq9 max 27 is severe", id.InstrumentPHQ9, 27, SeveritySevere},
		{"gad7 zero is minimal", id.InstrumentGAD7, 0, SeverityMinimal},
		{"gad7 4 is minimal", id.InstrumentGAD7, 4, SeverityMinimal},
		{"gad7 5 is mild", id.InstrumentGAD7, 5, SeverityMild},
		{"gad7 9 is mild", id.InstrumentGAD7, 9, SeverityMild},
		{"gad7 10 is moderate", id.InstrumentGAD7, 10, SeverityModerate},
		{"gad7 14 is moderate", id.InstrumentGAD7, 14, SeverityModerate},
		{"gad7 15 is severe", id.InstrumentGAD7, 15, SeveritySevere},
		{"gad7 max 21 is severe", id.InstrumentGAD7, 21, SeveritySevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := vector(t, tt.instrument.ItemCount(), tt.total)
			result, err := Validate(tt.instrument, answers)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.Total, "total must equal the answer sum")
			assert.Equal(t, tt.want, result.Severity)
			assert.Equal(t, tt.instrument, result.Instrument)
		})
	}
}

func TestValidate_WrongAnswerCount(t *testing.T) {
	tests := []struct {
		name       string
		instrument id.Instrument
		count      int
		want       int
	}{
		{"phq9 with 3 answers", id.InstrumentPHQ9, 3, 9},
		{"phq9 with 10 answers", id.InstrumentPHQ9, 10, 9},
		{"phq9 with none", id.InstrumentPHQ9, 0, 9},
		{"gad7 with 9 answers", id.InstrumentGAD7, 9, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.instrument, make([]int, tt.count))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

			var wrongCount *WrongAnswerCountError
			require.True(t, errors.As(err, &wrongCount))
			assert.Equal(t, tt.count, wrongCount.Got)
			assert.Equal(t, tt.want, wrongCount.Want)
		})
	}
}

// TestValidate_AnswerOutOfRange verifies rejection without clamping: an
// out-of-range item must fail the whole submission, and the error must name
// the exact index and value.
func TestValidate_AnswerOutOfRange(t *testing.T) {
	t.Run("value above range", func(t *testing.T) {
		answers := []int{0, 1, 2, 3, 4, 0, 0, 0, 0}
		_, err := Validate(id.InstrumentPHQ9, answers)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		var outOfRange *AnswerOutOfRangeError
		require.True(t, errors.As(err, &outOfRange))
		assert.Equal(t, 4, outOfRange.Index)
		assert.Equal(t, 4, outOfRange.Value)
	})

	t.Run("negative value", func(t *testing.T) {
		answers := []int{0, 0, -1, 0, 0, 0, 0}
		_, err := Validate(id.InstrumentGAD7, answers)
		require.Error(t, err)

		var outOfRange *AnswerOutOfRangeError
		require.True(t, errors.As(err, &outOfRange))
		assert.Equal(t, 2, outOfRange.Index)
		assert.Equal(t, -1, outOfRange.Value)
	})

	t.Run("first invalid index wins", func(t *testing.T) {
		answers := []int{0, 5, 0, 7, 0, 0, 0, 0, 0}
		_, err := Validate(id.InstrumentPHQ9, answers)
		require.Error(t, err)

		var outOfRange *AnswerOutOfRangeError
		require.True(t, errors.As(err, &outOfRange))
		assert.Equal(t, 1, outOfRange.Index)
		assert.Equal(t, 5, outOfRange.Value)
	})
}

func TestValidate_UnknownInstrumentRejected(t *testing.T) {
	_, err := Validate(id.Instrument("eq5d"), []int{1, 2, 3})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestValidate_Deterministic pins the purity property: identical input must
// produce identical output, call after call.
func TestValidate_Deterministic(t *testing.T) {
	answers := []int{3, 0, 2, 1, 3, 2, 0, 1, 2}

	first, err := Validate(id.InstrumentPHQ9, answers)
	require.NoError(t, err)
	second, err := Validate(id.InstrumentPHQ9, answers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 14, first.Total)
}

func TestValidate_ResultDoesNotAliasInput(t *testing.T) {
	answers := []int{1, 1, 1, 1, 1, 1, 1, 1, 1}
	result, err := Validate(id.InstrumentPHQ9, answers)
	require.NoError(t, err)

	answers[0] = 3
	assert.Equal(t, 1, result.Answers[0], "mutating the input slice must not change the result")
	assert.Equal(t, 9, result.Total)
}
