package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) FindByDay(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("day = ?", domain.DateOnly(day))

	if ids := resources.IDs(); len(ids) > 0 {
		q = q.Where("(doctor_id IN (?) OR room_id IN (?))", bun.In(ids), bun.In(ids))
	}

	err := q.OrderExpr("start_minute ASC, sequence_number ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.Day = domain.DateOnly(appt.Day)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockResourceDays(ctx, tx, appt.Resources(), appt.Day); err != nil {
			return err
		}

		if err := tx.NewRaw("SELECT nextval('appointment_sequence')").Scan(ctx, &appt.SequenceNumber); err != nil {
			return fmt.Errorf("assign sequence number: %w", err)
		}

		if _, err := tx.NewInsert().Model(&appt).Exec(ctx); err != nil {
			return mapPgError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.Day = domain.DateOnly(appt.Day)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockResourceDays(ctx, tx, appt.Resources(), appt.Day); err != nil {
			return err
		}

		res, err := tx.NewUpdate().Model(&appt).WherePK().Exec(ctx)
		if err != nil {
			return mapPgError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

// lockResourceDays takes transaction-scoped advisory locks on every
// (resource, day) pair the appointment occupies. Keys are sorted so two
// writers touching the same doctor+room pair always lock in the same order.
func lockResourceDays(ctx context.Context, tx bun.Tx, resources domain.ResourceSet, day time.Time) error {
	for _, key := range resourceDayKeys(resources, day) {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

func resourceDayKeys(resources domain.ResourceSet, day time.Time) []string {
	d := domain.DateOnly(day).Format("2006-01-02")
	ids := resources.IDs()
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, "sched:"+id+":"+d)
	}
	sort.Strings(keys)
	return keys
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// One exclusion constraint per resource axis, both named
		// appointments_no_overlap_{doctor,room}.
		if pgErr.Code == "23P01" && strings.HasPrefix(pgErr.ConstraintName, "appointments_no_overlap") {
			return store.ErrConflict
		}
	}
	return err
}
