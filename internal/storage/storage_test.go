package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

func TestAddAndGetDeviceRoundTrip(t *testing.T) {
	s := New()
	d := model.Device{ID: "d1", Notes: "kitchen barometer", Kind: model.KindBarometer}
	stored, err := s.AddDevice(d)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := s.GetDevice("d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(stored, got, cmpopts.IgnoreFields(model.Device{}, "CreatedAt")); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveDeviceThenGetNonExistent(t *testing.T) {
	s := New()
	if _, err := s.AddDevice(model.Device{ID: "d1"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveDevice("d1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err := s.GetDevice("d1")
	if _, ok := err.(*apperrors.NonExistent); !ok {
		t.Fatalf("expected NonExistent, got %v", err)
	}
}

// S5 from spec §8: removing a device cascades atomically to its inputs and
// outputs.
func TestCascadeDelete(t *testing.T) {
	s := New()
	if _, err := s.AddDevice(model.Device{ID: "d1"}); err != nil {
		t.Fatalf("add device: %v", err)
	}
	if _, err := s.AddInput(model.Input{ID: "i1", DeviceID: "d1"}); err != nil {
		t.Fatalf("add input: %v", err)
	}
	if _, err := s.AddOutput(model.Output{ID: "o1", DeviceID: "d1"}); err != nil {
		t.Fatalf("add output: %v", err)
	}

	if err := s.RemoveDevice("d1"); err != nil {
		t.Fatalf("remove device: %v", err)
	}

	for _, in := range s.ListInputs() {
		if in.ID == "i1" {
			t.Fatal("expected i1 to be cascade-deleted")
		}
	}
	for _, out := range s.ListOutputs() {
		if out.ID == "o1" {
			t.Fatal("expected o1 to be cascade-deleted")
		}
	}
}

func TestAddInputUnknownDevice(t *testing.T) {
	s := New()
	if _, err := s.AddInput(model.Input{ID: "i1", DeviceID: "missing"}); err == nil {
		t.Fatal("expected an error referencing a nonexistent device")
	}
}
