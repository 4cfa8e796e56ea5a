package workflow_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
)

// In-memory repositories with the same conditional-update semantics as
// the postgres layer: every status change is predicated on the expected
// current value under a lock, so races resolve to ErrStaleStatus.

type fakeReservationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{items: make(map[uuid.UUID]*model.Reservation)}
}

func (r *fakeReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = time.Now()
	cp := *res
	r.items[res.ID] = &cp
	return nil
}

func (r *fakeReservationRepo) Get(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeReservationRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Reservation
	for _, res := range r.items {
		if res.PatientID == patientID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, status model.ReservationStatus) ([]*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Reservation
	for _, res := range r.items {
		if res.PharmacyID == pharmacyID && (status == "" || res.Status == status) {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if res.Status != from {
		return repository.ErrStaleStatus
	}
	res.Status = to
	res.UpdatedAt = time.Now()
	return nil
}

type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	cp := *apt
	r.items[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if apt.Status != from {
		return repository.ErrStaleStatus
	}
	apt.Status = to
	return nil
}

type fakePrescriptionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Prescription
}

func newFakePrescriptionRepo() *fakePrescriptionRepo {
	return &fakePrescriptionRepo{items: make(map[uuid.UUID]*model.Prescription)}
}

func (r *fakePrescriptionRepo) Create(_ context.Context, pre *model.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pre.ID == uuid.Nil {
		pre.ID = uuid.New()
	}
	cp := *pre
	r.items[pre.ID] = &cp
	return nil
}

func (r *fakePrescriptionRepo) Get(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pre, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pre
	return &cp, nil
}

func (r *fakePrescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	return nil, nil
}

func (r *fakePrescriptionRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, status model.PrescriptionStatus) ([]*model.Prescription, error) {
	return nil, nil
}

func (r *fakePrescriptionRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.PrescriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pre, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if pre.Status != from {
		return repository.ErrStaleStatus
	}
	pre.Status = to
	return nil
}

type fakePaymentRepo struct {
	mu    sync.Mutex
	items map[string]*model.Payment // keyed by external transaction id
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{items: make(map[string]*model.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.items[p.ExternalTransactionID] = &cp
	return nil
}

func (r *fakePaymentRepo) Get(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) UpdateStatusByTransactionID(_ context.Context, transactionID string, from, to model.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[transactionID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != from {
		return repository.ErrStaleStatus
	}
	p.Status = to
	return nil
}

type fakeDeliveryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Delivery
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{items: make(map[uuid.UUID]*model.Delivery)}
}

func (r *fakeDeliveryRepo) Create(_ context.Context, del *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if del.ID == uuid.Nil {
		del.ID = uuid.New()
	}
	cp := *del
	r.items[del.ID] = &cp
	return nil
}

func (r *fakeDeliveryRepo) Get(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	del, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *del
	return &cp, nil
}

func (r *fakeDeliveryRepo) ListPending(_ context.Context) ([]*model.Delivery, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) ListByCourier(_ context.Context, courierID uuid.UUID) ([]*model.Delivery, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) Accept(_ context.Context, id, courierID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	del, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if del.Status != model.DeliveryStatusPending || del.CourierID != nil {
		return repository.ErrStaleStatus
	}
	cid := courierID
	del.CourierID = &cid
	del.Status = model.DeliveryStatusAccepted
	return nil
}

func (r *fakeDeliveryRepo) UpdateStatus(_ context.Context, id, courierID uuid.UUID, from, to model.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	del, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if del.Status != from || del.CourierID == nil || *del.CourierID != courierID {
		return repository.ErrStaleStatus
	}
	del.Status = to
	return nil
}

func (r *fakeDeliveryRepo) UpdatePosition(_ context.Context, id, courierID uuid.UUID, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	del, ok := r.items[id]
	if !ok || del.CourierID == nil || *del.CourierID != courierID {
		return repository.ErrNotFound
	}
	del.Latitude = &lat
	del.Longitude = &lng
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{items: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, existing := range r.items {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	r.items[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id uuid.UUID, role model.Role, pharmacyID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.PharmacyID = pharmacyID
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filters *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

type fakePharmacyRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Pharmacy
}

func newFakePharmacyRepo() *fakePharmacyRepo {
	return &fakePharmacyRepo{items: make(map[uuid.UUID]*model.Pharmacy)}
}

func (r *fakePharmacyRepo) Create(_ context.Context, p *model.Pharmacy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakePharmacyRepo) Get(_ context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePharmacyRepo) List(_ context.Context) ([]*model.Pharmacy, error) {
	return nil, nil
}

func (r *fakePharmacyRepo) ListOnDuty(_ context.Context) ([]*model.Pharmacy, error) {
	return nil, nil
}

func (r *fakePharmacyRepo) SetDuty(_ context.Context, id uuid.UUID, onDuty bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsOnDuty = onDuty
	return nil
}

func (r *fakePharmacyRepo) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsVerified = verified
	return nil
}
