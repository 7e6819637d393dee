package main

import (
	"errors"
	"testing"
)

func TestDuplicateFieldError(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{`ERROR: duplicate key value violates unique constraint "idx_users_username" (SQLSTATE 23505)`, ErrUsernameTaken},
		{`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`, ErrEmailTaken},
		{`UNIQUE constraint failed: users.email`, ErrEmailTaken},
		{"duplicate key", ErrUsernameTaken},
	}
	for _, c := range cases {
		if got := duplicateFieldError(errors.New(c.in)); got != c.want {
			t.Errorf("duplicateFieldError(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
