package catalog

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	ve := invalidf("name is %s", "missing")
	if !IsValidation(ve) {
		t.Error("expected invalidf result to classify as validation")
	}
	if ve.Error() != "name is missing" {
		t.Errorf("unexpected message: %q", ve.Error())
	}

	nf := &NotFoundError{Entity: "video", ID: 42}
	if !IsNotFound(nf) {
		t.Error("expected NotFoundError to classify as not found")
	}
	if nf.Error() != "video 42 not found" {
		t.Errorf("unexpected message: %q", nf.Error())
	}

	fe := &FetchError{URL: "https://example.com/api", Reason: "status 500"}
	if !IsFetch(fe) {
		t.Error("expected FetchError to classify as fetch")
	}
	if IsValidation(fe) || IsNotFound(fe) {
		t.Error("fetch error should not classify as validation or not found")
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	fe := &FetchError{URL: "https://example.com", Err: cause}
	wrapped := fmt.Errorf("sync: %w", fe)
	if !IsFetch(wrapped) {
		t.Error("expected wrapped fetch error to classify as fetch")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause to survive unwrapping")
	}
}
