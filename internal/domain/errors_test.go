package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", base, KindUnknown},
		{"tagged", WithKind(KindQuery, base), KindQuery},
		{"wrapped tag", fmt.Errorf("search: %w", WithKind(KindValidation, base)), KindValidation},
		{"outermost wins", WithKind(KindMutation, WithKind(KindUnavailable, base)), KindMutation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithKind_Nil(t *testing.T) {
	if WithKind(KindInput, nil) != nil {
		t.Error("expected nil")
	}
}

func TestWithKind_PreservesCause(t *testing.T) {
	err := WithKind(KindInput, fmt.Errorf("read: %w", ErrDatasetInvalid))
	if !errors.Is(err, ErrDatasetInvalid) {
		t.Error("expected errors.Is to see the sentinel")
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(WithKind(KindUnavailable, errors.New("dial tcp: refused")))
	if resp.Error != "dial tcp: refused" {
		t.Errorf("unexpected message %q", resp.Error)
	}
	if resp.Type != "CollaboratorUnavailableError" {
		t.Errorf("unexpected type %q", resp.Type)
	}
	if got := NewErrorResponse(errors.New("x")).Type; got != "InternalError" {
		t.Errorf("untagged type = %q", got)
	}
}
