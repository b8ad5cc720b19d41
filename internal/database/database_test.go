package database

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/lib/pq"
)

func TestGenerateUsernameBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane.Doe@example.com", "janedoe"},
		{"Ravi Kumar", "ravikumar"},
		{"!!!", "user"},
		{"averyveryverylongname@x.io", "averyveryver"},
		{"", "user"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := generateUsernameBase(tt.in); got != tt.want {
				t.Errorf("generateUsernameBase(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateUsername(t *testing.T) {
	re := regexp.MustCompile(`^janedoe\d{4}$`)
	for i := 0; i < 20; i++ {
		if u := GenerateUsername("jane.doe@example.com"); !re.MatchString(u) {
			t.Fatalf("unexpected username %q", u)
		}
	}
}

func TestGenerateUsernameConcurrent(t *testing.T) {
	re := regexp.MustCompile(`^ravikumar\d{4}$`)
	var wg sync.WaitGroup
	got := make([]string, 64)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = GenerateUsername("Ravi Kumar")
		}(i)
	}
	wg.Wait()
	for _, u := range got {
		if !re.MatchString(u) {
			t.Fatalf("unexpected username %q", u)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("create user: %w", &pq.Error{Code: "23505", Constraint: "users_email_key"})
	if !IsUniqueViolation(err, "") {
		t.Error("expected unique violation")
	}
	if !IsUniqueViolation(err, "users_email_key") {
		t.Error("expected match on constraint name")
	}
	if IsUniqueViolation(err, "users_username_key") {
		t.Error("did not expect match on other constraint")
	}
	if IsUniqueViolation(nil, "") {
		t.Error("nil is not a violation")
	}

	// The message alone is not enough; only the SQLSTATE counts.
	text := errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)
	if IsUniqueViolation(text, "users_email_key") {
		t.Error("plain error text is not a violation")
	}
	fk := &pq.Error{Code: "23503", Constraint: "users_email_key"}
	if IsUniqueViolation(fk, "users_email_key") {
		t.Error("foreign key violation is not a unique violation")
	}
}
