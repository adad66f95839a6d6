package model

import (
	"encoding/json"
	"errors"
	"testing"

	"quizarena/internal/common"
)

func TestSelectionUnmarshal(t *testing.T) {
	var sel Selection
	if err := json.Unmarshal([]byte(`2`), &sel); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if sel.IsMulti || sel.Single != 2 {
		t.Fatalf("expected single selection 2, got %+v", sel)
	}

	if err := json.Unmarshal([]byte(`[1,3]`), &sel); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if !sel.IsMulti || len(sel.Multi) != 2 {
		t.Fatalf("expected multi selection [1 3], got %+v", sel)
	}

	// An array stays an array even with one element; the question type
	// decides how it evaluates, not the payload shape.
	if err := json.Unmarshal([]byte(`[2]`), &sel); err != nil {
		t.Fatalf("unmarshal single-element array: %v", err)
	}
	if !sel.IsMulti {
		t.Fatalf("single-element array must stay a multi selection, got %+v", sel)
	}

	err := json.Unmarshal([]byte(`"2"`), &sel)
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected ErrValidation for a string payload, got %v", err)
	}
}

func TestSelectionMarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal(SingleSelection(3))
	if err != nil || string(out) != "3" {
		t.Fatalf("single selection: got %s, err %v", out, err)
	}
	out, err = json.Marshal(MultiSelection(1, 2))
	if err != nil || string(out) != "[1,2]" {
		t.Fatalf("multi selection: got %s, err %v", out, err)
	}
	// An empty multi selection serializes as an empty array, not null.
	out, err = json.Marshal(Selection{IsMulti: true})
	if err != nil || string(out) != "[]" {
		t.Fatalf("empty multi selection: got %s, err %v", out, err)
	}
}
