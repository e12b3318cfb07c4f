package content_test

import (
	"errors"
	"testing"

	"folio/internal/content"
	"folio/internal/services"
)

func TestCheckOrder(t *testing.T) {
	cases := []struct {
		name    string
		indices []int
		want    error
	}{
		{"empty", nil, nil},
		{"contiguous shuffled", []int{2, 0, 1}, nil},
		{"duplicate", []int{0, 1, 1}, services.ErrConflictingOrder},
		{"duplicate before gap", []int{1, 1}, services.ErrConflictingOrder},
		{"gap", []int{0, 2}, services.ErrValidation},
		{"not zero based", []int{1, 2}, services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := content.CheckOrder(tc.indices)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
