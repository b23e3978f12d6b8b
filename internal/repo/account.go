package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/smartfare/internal/domain"
)

// AccountRepo defines the persistence operations for passenger accounts.
// Accounts are provisioned elsewhere; this repo only reads them and applies
// settlement updates.
type AccountRepo interface {
	// GetByID retrieves an account with its journey history (most recent first).
	// Returns domain.ErrNotFound if no account with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)

	// GetForUpdate is GetByID that also locks the account row until the
	// surrounding transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error)

	// Save writes balance, in-journey flag and active journey reference,
	// but only if the stored in-journey flag still equals wasInJourney.
	// Returns ErrStateConflict when it does not.
	Save(ctx context.Context, acct domain.Account, wasInJourney bool) error

	// PrependHistory records journeyID as the account's most recent journey.
	PrependHistory(ctx context.Context, accountID, journeyID uuid.UUID) error
}

// pgAccountRepo is the Postgres implementation of AccountRepo.
type pgAccountRepo struct {
	db db
}

// NewAccountRepo constructs an AccountRepo backed by the provided db connection.
func NewAccountRepo(db db) AccountRepo {
	return &pgAccountRepo{db: db}
}

const accountColumns = `id, kind, name, email, nic, passport_id, manager_id,
		balance, in_journey, active_journey_id, created_at, updated_at`

// GetByID retrieves an account by primary key.
func (r *pgAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	acct, err := r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = @id`, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetByID: %w", err)
	}
	return acct, nil
}

// GetForUpdate retrieves an account and takes a row lock on it.
func (r *pgAccountRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	acct, err := r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = @id FOR UPDATE`, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("repo.AccountRepo.GetForUpdate: %w", err)
	}
	return acct, nil
}

func (r *pgAccountRepo) get(ctx context.Context, q string, id uuid.UUID) (domain.Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Account{}, err
	}

	const hq = `
		SELECT journey_id
		FROM journey_history
		WHERE account_id = @id
		ORDER BY seq DESC`

	rows, err := r.db.Query(ctx, hq, pgx.NamedArgs{"id": id})
	if err != nil {
		return domain.Account{}, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	acct.History = []uuid.UUID{}
	for rows.Next() {
		var jid pgtype.UUID
		if err := rows.Scan(&jid); err != nil {
			return domain.Account{}, fmt.Errorf("history: scan: %w", err)
		}
		acct.History = append(acct.History, uuid.UUID(jid.Bytes))
	}
	if err := rows.Err(); err != nil {
		return domain.Account{}, fmt.Errorf("history: rows: %w", err)
	}
	return acct, nil
}

// Save applies a compare-and-set on in_journey. The check constraint on the
// accounts table rejects any write that would break the flag/reference pairing.
func (r *pgAccountRepo) Save(ctx context.Context, acct domain.Account, wasInJourney bool) error {
	const q = `
		UPDATE accounts
		SET balance           = @balance,
		    in_journey        = @in_journey,
		    active_journey_id = @active_journey_id,
		    updated_at        = now()
		WHERE id = @id
		  AND in_journey = @was_in_journey`

	args := pgx.NamedArgs{
		"id":                acct.ID,
		"balance":           acct.Balance,
		"in_journey":        acct.InJourney,
		"active_journey_id": acct.ActiveJourneyID, // nil becomes NULL
		"was_in_journey":    wasInJourney,
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.AccountRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.AccountRepo.Save: %w", ErrStateConflict)
	}
	return nil
}

// PrependHistory appends a row to journey_history; reads order by seq DESC,
// so the newest row is the head of the history.
func (r *pgAccountRepo) PrependHistory(ctx context.Context, accountID, journeyID uuid.UUID) error {
	const q = `
		INSERT INTO journey_history (account_id, journey_id)
		VALUES (@account_id, @journey_id)`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"account_id": accountID, "journey_id": journeyID})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("repo.AccountRepo.PrependHistory: %w", ErrStateConflict)
		}
		return fmt.Errorf("repo.AccountRepo.PrependHistory: %w", err)
	}
	return nil
}

// scanAccount maps a single database row into a domain.Account.
// History is left nil; callers load it separately.
func scanAccount(s scanner) (domain.Account, error) {
	var (
		a      domain.Account
		id     pgtype.UUID
		kind   string
		active pgtype.UUID
	)

	err := s.Scan(&id, &kind, &a.Name, &a.Email, &a.NIC, &a.PassportID, &a.ManagerID,
		&a.Balance, &a.InJourney, &active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}

	a.ID = uuid.UUID(id.Bytes)
	a.Kind = domain.AccountKind(kind)
	if active.Valid {
		jid := uuid.UUID(active.Bytes)
		a.ActiveJourneyID = &jid
	}
	return a, nil
}
