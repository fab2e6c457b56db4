package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatorTermTag(t *testing.T) {
	validate := NewValidator()

	valid := RecordCreateRequest{StudentID: 1, PlaceID: 1, Activity: "Tutoring", Date: "2024-03-01", Hours: 2, Term: "2024-1"}
	require.NoError(t, validate.Struct(valid))

	for _, term := range []string{"2024-3", "24-1", "2024/1", ""} {
		invalid := valid
		invalid.Term = term
		require.Error(t, validate.Struct(invalid), term)
	}
}

func TestValidatorRecordFields(t *testing.T) {
	validate := NewValidator()

	base := RecordCreateRequest{StudentID: 1, PlaceID: 1, Activity: "Tutoring", Date: "2024-03-01", Hours: 2, Term: "2024-2"}

	badDate := base
	badDate.Date = "01/03/2024"
	require.Error(t, validate.Struct(badDate))

	zeroHours := base
	zeroHours.Hours = 0
	require.Error(t, validate.Struct(zeroHours))

	negative := base
	negative.Hours = -1
	require.Error(t, validate.Struct(negative))
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(0, 10, 25)
	require.Equal(t, 1, meta.Page)
	require.Equal(t, 3, meta.TotalPages)

	unpaged := NewPaginationMeta(1, 0, 25)
	require.Equal(t, 1, unpaged.TotalPages)
}
