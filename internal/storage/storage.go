// Package storage implements the narrow key/value collaborator described in
// spec §6: device/input/output records keyed by id, with an atomic cascade
// delete of a device's inputs and outputs when the device itself is
// removed.
//
// Grounded on original_source/src/storage.rs's key layout
// ("devices/<id>", "inputs/<id>", "outputs/<id>", scanned by prefix for
// list_*); that file is backed by sled (an embedded Rust KV store) and does
// not itself perform the cascade (it's done by the caller in
// original_source/src/app/state.rs). This package provides only an
// in-memory reference implementation: no embedded KV library (bbolt,
// badger, buntdb, ...) appears anywhere in the example pack, and spec §1
// places storage durability explicitly out of scope as an external
// collaborator — see DESIGN.md for the full justification. Ids are
// generated with github.com/google/uuid when a caller doesn't supply one,
// and CreatedAt is always stamped here, never by the caller, matching
// storage.rs's "record equality for all fields except creation timestamp."
package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homepi/controller/internal/apperrors"
	"github.com/homepi/controller/internal/model"
)

// Storage is the collaborator the state actor depends on (spec §6).
type Storage struct {
	mu      sync.Mutex
	devices map[string]model.Device
	inputs  map[string]model.Input
	outputs map[string]model.Output
}

// New returns an empty in-memory Storage.
func New() *Storage {
	return &Storage{
		devices: map[string]model.Device{},
		inputs:  map[string]model.Input{},
		outputs: map[string]model.Output{},
	}
}

// AddDevice inserts d, assigning an id via uuid if d.ID is empty, and
// stamping CreatedAt, returning the stored record.
func (s *Storage) AddDevice(d model.Device) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, ok := s.devices[d.ID]; ok {
		return model.Device{}, &apperrors.NonExistent{ID: d.ID}
	}
	d.CreatedAt = time.Now()
	s.devices[d.ID] = d
	return d, nil
}

// RemoveDevice deletes a device and atomically cascades to every input and
// output that references it (spec §3 "Lifecycles").
func (s *Storage) RemoveDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return &apperrors.NonExistent{ID: id}
	}
	delete(s.devices, id)
	for iid, in := range s.inputs {
		if in.DeviceID == id {
			delete(s.inputs, iid)
		}
	}
	for oid, out := range s.outputs {
		if out.DeviceID == id {
			delete(s.outputs, oid)
		}
	}
	return nil
}

// GetDevice returns the stored device record for id.
func (s *Storage) GetDevice(id string) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return model.Device{}, &apperrors.NonExistent{ID: id}
	}
	return d, nil
}

// ListDevices returns every stored device.
func (s *Storage) ListDevices() []model.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}

// AddInput inserts in, validating that its device exists.
func (s *Storage) AddInput(in model.Input) (model.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[in.DeviceID]; !ok {
		return model.Input{}, &apperrors.NonExistent{ID: in.DeviceID}
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, ok := s.inputs[in.ID]; ok {
		return model.Input{}, &apperrors.InputNotFound{ID: in.ID}
	}
	in.CreatedAt = time.Now()
	s.inputs[in.ID] = in
	return in, nil
}

// RemoveInput deletes an input record.
func (s *Storage) RemoveInput(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inputs[id]; !ok {
		return &apperrors.InputNotFound{ID: id}
	}
	delete(s.inputs, id)
	return nil
}

// GetInput returns the stored input record for id.
func (s *Storage) GetInput(id string) (model.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inputs[id]
	if !ok {
		return model.Input{}, &apperrors.InputNotFound{ID: id}
	}
	return in, nil
}

// ListInputs returns every stored input.
func (s *Storage) ListInputs() []model.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Input, 0, len(s.inputs))
	for _, in := range s.inputs {
		out = append(out, in)
	}
	return out
}

// AddOutput inserts out, validating that its device exists.
func (s *Storage) AddOutput(out model.Output) (model.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[out.DeviceID]; !ok {
		return model.Output{}, &apperrors.NonExistent{ID: out.DeviceID}
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if _, ok := s.outputs[out.ID]; ok {
		return model.Output{}, &apperrors.OutputNotFound{ID: out.ID}
	}
	out.CreatedAt = time.Now()
	s.outputs[out.ID] = out
	return out, nil
}

// RemoveOutput deletes an output record.
func (s *Storage) RemoveOutput(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[id]; !ok {
		return &apperrors.OutputNotFound{ID: id}
	}
	delete(s.outputs, id)
	return nil
}

// GetOutput returns the stored output record for id.
func (s *Storage) GetOutput(id string) (model.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outputs[id]
	if !ok {
		return model.Output{}, &apperrors.OutputNotFound{ID: id}
	}
	return out, nil
}

// ListOutputs returns every stored output.
func (s *Storage) ListOutputs() []model.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Output, 0, len(s.outputs))
	for _, o := range s.outputs {
		out = append(out, o)
	}
	return out
}

// UpdateOutput applies patch to the stored output for id, returning the
// updated record.
func (s *Storage) UpdateOutput(id string, patch func(*model.Output)) (model.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outputs[id]
	if !ok {
		return model.Output{}, &apperrors.OutputNotFound{ID: id}
	}
	patch(&out)
	s.outputs[id] = out
	return out, nil
}
