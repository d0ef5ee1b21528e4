package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from BookStatus
		to   BookStatus
		want bool
	}{
		{"available to on_loan", BookAvailable, BookOnLoan, true},
		{"available to overdue", BookAvailable, BookOverdue, false},
		{"shelf book reported lost", BookAvailable, BookLost, true},
		{"shelf book reported damaged", BookAvailable, BookDamaged, true},
		{"on_loan to available", BookOnLoan, BookAvailable, true},
		{"on_loan to overdue", BookOnLoan, BookOverdue, true},
		{"on_loan to lost", BookOnLoan, BookLost, true},
		{"on_loan to damaged", BookOnLoan, BookDamaged, true},
		{"overdue to available", BookOverdue, BookAvailable, true},
		{"overdue to lost", BookOverdue, BookLost, true},
		{"overdue to damaged", BookOverdue, BookDamaged, true},
		{"overdue to on_loan", BookOverdue, BookOnLoan, false},
		{"lost resolved to available", BookLost, BookAvailable, true},
		{"damaged resolved to available", BookDamaged, BookAvailable, true},
		{"lost to on_loan", BookLost, BookOnLoan, false},
		{"removed is terminal", BookRemoved, BookAvailable, false},
		{"any to removed", BookOverdue, BookRemoved, true},
		{"removed to removed", BookRemoved, BookRemoved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestBookStatus_Valid(t *testing.T) {
	for _, s := range []BookStatus{BookAvailable, BookOnLoan, BookOverdue, BookLost, BookDamaged, BookRemoved} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, BookStatus("checked_out").Valid())
	assert.False(t, BookStatus("").Valid())
}

func TestBookStatus_Loanable(t *testing.T) {
	assert.True(t, BookAvailable.Loanable())
	assert.False(t, BookOnLoan.Loanable())
	assert.False(t, BookOverdue.Loanable())
	assert.False(t, BookLost.Loanable())
	assert.False(t, BookRemoved.Loanable())
}
