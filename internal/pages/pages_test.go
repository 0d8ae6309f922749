package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		pageCount int
		want      []int
		wantErr   error
	}{
		{
			name:      "mixed singles and range",
			expr:      "1,3,5-7",
			pageCount: 8,
			want:      []int{1, 3, 5, 6, 7},
		},
		{
			name:      "duplicates collapse",
			expr:      "2,2,1-3",
			pageCount: 5,
			want:      []int{1, 2, 3},
		},
		{
			name:      "reversed range is swapped",
			expr:      "7-5",
			pageCount: 10,
			want:      []int{5, 6, 7},
		},
		{
			name:      "out of range dropped",
			expr:      "2,9,12",
			pageCount: 3,
			want:      []int{2},
		},
		{
			name:      "range clamped to document",
			expr:      "3-100",
			pageCount: 5,
			want:      []int{3, 4, 5},
		},
		{
			name:      "huge range clamped without iterating",
			expr:      "1-9223372036854775807",
			pageCount: 3,
			want:      []int{1, 2, 3},
		},
		{
			name:      "huge range past the document",
			expr:      "1000000000-9223372036854775807",
			pageCount: 3,
			wantErr:   model.ErrNoValidPages,
		},
		{
			name:      "whitespace tolerated",
			expr:      " 1 , 3 - 4 ",
			pageCount: 5,
			want:      []int{1, 3, 4},
		},
		{
			name:      "nothing survives",
			expr:      "7-9",
			pageCount: 3,
			wantErr:   model.ErrNoValidPages,
		},
		{
			name:      "empty expression",
			expr:      "",
			pageCount: 3,
			wantErr:   model.ErrNoValidPages,
		},
		{
			name:      "garbage",
			expr:      "1,abc",
			pageCount: 3,
			wantErr:   model.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.expr, tt.pageCount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveList(t *testing.T) {
	got, err := ResolveList([]int{3, 1, 3, 8}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, got)

	_, err = ResolveList([]int{0, 6}, 5)
	assert.ErrorIs(t, err, model.ErrNoValidPages)
}

func TestOrder(t *testing.T) {
	got, err := Order([]int{3, 1, 1, 2, 9, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1, 2}, got)

	_, err = Order([]int{4, 5}, 3)
	assert.ErrorIs(t, err, model.ErrNoValidPages)

	_, err = Order(nil, 3)
	assert.ErrorIs(t, err, model.ErrNoValidPages)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"1", "5", "12"}, Strings([]int{1, 5, 12}))
	assert.Empty(t, Strings(nil))
}
