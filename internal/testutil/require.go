// Package testutil holds the small require/assert helpers used across the
// repo's tests.
package testutil

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// RequireNoError fails the test immediately if err is non-nil.
func RequireNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		return
	}
	if message == "" {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Fatalf("%s: %v", message, err)
}

// RequireError fails the test immediately if err is nil.
func RequireError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		return
	}
	if message == "" {
		t.Fatalf("expected an error, got nil")
	}
	t.Fatalf("%s: expected an error, got nil", message)
}

// RequireErrorIs fails the test immediately unless errors.Is(err, target).
func RequireErrorIs(t *testing.T, err error, target error, message string) {
	t.Helper()
	if errors.Is(err, target) {
		return
	}
	if message == "" {
		t.Fatalf("error %v does not match %v", err, target)
	}
	t.Fatalf("%s: error %v does not match %v", message, err, target)
}

// RequireErrorContains fails the test unless err is non-nil and its message
// contains the given substring.
func RequireErrorContains(t *testing.T, err error, substring string, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected an error containing %q, got nil", message, substring)
	}
	if strings.Contains(err.Error(), substring) {
		return
	}
	if message == "" {
		t.Fatalf("error %q does not contain %q", err.Error(), substring)
	}
	t.Fatalf("%s: error %q does not contain %q", message, err.Error(), substring)
}

// RequireEqual fails the test immediately when values are not deeply equal.
func RequireEqual(t *testing.T, got any, want any, message string) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		return
	}
	if message == "" {
		t.Fatalf("values differ.\nwant: %#v\ngot: %#v", want, got)
	}
	t.Fatalf("%s.\nwant: %#v\ngot: %#v", message, want, got)
}

// AssertEqual reports a non-fatal error when values are not deeply equal.
func AssertEqual(t *testing.T, got any, want any, message string) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		return
	}
	if message == "" {
		t.Errorf("values differ.\nwant: %#v\ngot: %#v", want, got)
		return
	}
	t.Errorf("%s.\nwant: %#v\ngot: %#v", message, want, got)
}

// RequireTrue fails the test immediately if condition is false.
func RequireTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if condition {
		return
	}
	if message == "" {
		t.Fatalf("expected condition to be true")
		return
	}
	t.Fatalf("%s.", message)
}

// RequireStringContains fails the test immediately if substring is missing.
func RequireStringContains(t *testing.T, haystack string, needle string, message string) {
	t.Helper()
	if needle == "" || strings.Contains(haystack, needle) {
		return
	}
	if message == "" {
		t.Fatalf("expected %q to contain %q", haystack, needle)
		return
	}
	t.Fatalf("%s.", message)
}
