package devices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	devices map[uuid.UUID]*Device
}

func newMockRepo() *mockRepo {
	return &mockRepo{devices: make(map[uuid.UUID]*Device)}
}

func (m *mockRepo) Create(_ context.Context, d *Device) error {
	cp := *d
	cp.CreatedAt = time.Now()
	m.devices[d.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetByDeviceID(_ context.Context, deviceID string) (*Device, error) {
	for _, d := range m.devices {
		if d.DeviceID == deviceID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrDeviceNotFound
}

func (m *mockRepo) Update(_ context.Context, d *Device) error {
	if _, ok := m.devices[d.ID]; !ok {
		return ErrDeviceNotFound
	}
	cp := *d
	m.devices[d.ID] = &cp
	return nil
}

func (m *mockRepo) ListAvailable(_ context.Context) ([]*Device, error) {
	result := []*Device{}
	for _, d := range m.devices {
		if !d.Assigned {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]*Device, error) {
	result := []*Device{}
	for _, d := range m.devices {
		if d.UserID != nil && *d.UserID == userID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockRepo) Touch(_ context.Context, deviceID string, r Reading) error {
	for _, d := range m.devices {
		if d.DeviceID == deviceID {
			now := time.Now()
			d.LastActive = &now
			hr, temp, spo2 := r.HeartRate, r.Temperature, r.OxygenSaturation
			d.HeartRate = &hr
			d.Temperature = &temp
			d.OxygenSaturation = &spo2
			return nil
		}
	}
	return ErrDeviceNotFound
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, zerolog.Nop())
}

func TestRegister(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	d, err := svc.Register(context.Background(), "ESP32-001", "Ward 3 monitor")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if d.Assigned {
		t.Error("new device must start unassigned")
	}
	if d.ID == uuid.Nil {
		t.Error("expected store id to be assigned")
	}
}

func TestRegister_DuplicateHardwareID(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, err := svc.Register(context.Background(), "ESP32-001", "first"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "ESP32-001", "second"); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("expected ErrDeviceExists, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, err := svc.Register(context.Background(), "", "name"); err == nil {
		t.Error("expected error for empty device id")
	}
	if _, err := svc.Register(context.Background(), "ESP32-001", "  "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestAssignAndUnassign(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	d, err := svc.Register(context.Background(), "ESP32-001", "monitor")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	assigned, err := svc.Assign(context.Background(), d.ID, "u1", "u1@example.com")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !assigned.Assigned || assigned.UserID == nil || *assigned.UserID != "u1" {
		t.Errorf("assignment fields not set: %+v", assigned)
	}
	if assigned.AssignedAt == nil {
		t.Error("expected assignedAt timestamp")
	}

	if _, err := svc.Assign(context.Background(), d.ID, "u2", "u2@example.com"); !errors.Is(err, ErrDeviceAssigned) {
		t.Errorf("expected ErrDeviceAssigned, got %v", err)
	}

	released, err := svc.Unassign(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if released.Assigned || released.UserID != nil || released.AssignedAt != nil {
		t.Errorf("unassign did not clear fields: %+v", released)
	}
}

func TestMultipleDevicesPerUser(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	for _, id := range []string{"ESP32-001", "ESP32-002"} {
		d, err := svc.Register(context.Background(), id, "monitor "+id)
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		if _, err := svc.Assign(context.Background(), d.ID, "u1", "u1@example.com"); err != nil {
			t.Fatalf("assign %s: %v", id, err)
		}
	}

	list, err := svc.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 devices, got %d", len(list))
	}

	available, err := svc.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(available) != 0 {
		t.Errorf("expected no available devices, got %d", len(available))
	}
}

func TestTouch(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	if _, err := svc.Register(context.Background(), "ESP32-001", "monitor"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := svc.Touch(context.Background(), "ESP32-001", Reading{
		HeartRate:        72,
		Temperature:      36.6,
		OxygenSaturation: 98,
	})
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}

	d, err := svc.ListAvailable(context.Background())
	if err != nil || len(d) != 1 {
		t.Fatalf("list: %v (%d)", err, len(d))
	}
	if d[0].LastActive == nil {
		t.Error("expected lastActive to be set")
	}
	if d[0].HeartRate == nil || *d[0].HeartRate != 72 {
		t.Error("expected quick-reference heart rate 72")
	}

	if err := svc.Touch(context.Background(), "unknown", Reading{}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}
