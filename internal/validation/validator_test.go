package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bookwarden/bookwarden-server/internal/errors"
	"github.com/bookwarden/bookwarden-server/internal/validation"
)

type createBookRequest struct {
	Title  string `json:"title" validate:"required,max=512"`
	Author string `json:"author" validate:"max=256"`
	ISBN   string `json:"isbn" validate:"omitempty,isbn"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := createBookRequest{
		Title:  "The Dispossessed",
		Author: "Ursula K. Le Guin",
		ISBN:   "978-0-06-051275-0",
	}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       createBookRequest
		wantField string
	}{
		{
			name:      "missing title",
			req:       createBookRequest{Author: "Anonymous"},
			wantField: "title",
		},
		{
			name:      "malformed isbn",
			req:       createBookRequest{Title: "Untitled", ISBN: "not-an-isbn"},
			wantField: "isbn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}
