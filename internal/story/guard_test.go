package story

import (
	"testing"

	"talehub/internal/apperr"
	"talehub/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	const a, b = uint(1), uint(2)

	tests := []struct {
		name      string
		story     domain.Story
		actor     uint
		canMutate bool
		want      error
		wantDel   error
	}{
		{"owner editable", domain.Story{Owners: []uint{a}, Editable: true}, a, true, nil, nil},
		{"non-owner editable", domain.Story{Owners: []uint{a}, Editable: true}, b, false, apperr.ErrForbidden, apperr.ErrForbidden},
		{"owner locked", domain.Story{Owners: []uint{a}}, a, false, apperr.ErrNotEditable, nil},
		{"non-owner locked", domain.Story{Owners: []uint{a}}, b, false, apperr.ErrForbidden, apperr.ErrForbidden},
		{"co-owner", domain.Story{Owners: []uint{a, b}, Editable: true}, b, true, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canMutate, CanMutate(tt.story, tt.actor))

			err := Authorize(tt.story, tt.actor)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}

			err = AuthorizeDelete(tt.story, tt.actor)
			if tt.wantDel == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantDel)
			}
		})
	}
}
