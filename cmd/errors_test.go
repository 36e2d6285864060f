package cmd

import (
	"errors"
	"fmt"
	"testing"

	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

func TestPersistenceWarning(t *testing.T) {
	cause := fmt.Errorf("%w: disk full", sharedErrors.ErrPersistence)
	err := &PersistenceWarning{Err: cause}

	want := "results were not saved to history: history persistence failed: disk full"
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
	if !errors.Is(err, sharedErrors.ErrPersistence) {
		t.Fatal("expected PersistenceWarning to unwrap to ErrPersistence")
	}
}

func TestUnsupportedFormatError(t *testing.T) {
	err := &UnsupportedFormatError{Format: "xml"}
	want := `unsupported format "xml" (use table, json, csv or csv-basic)`
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
	if !errors.Is(err, sharedErrors.ErrUnknownFormat) {
		t.Fatal("expected UnsupportedFormatError to unwrap to ErrUnknownFormat")
	}
}
