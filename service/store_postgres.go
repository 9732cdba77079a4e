package service

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lethabomaepa11/rocketsales-sub001/config"
	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const contractColumns = `id, title, contract_number, client_id, opportunity_id, proposal_id, value, currency, start_date, end_date, renewal_notice_period_days, auto_renew, terms, owner_id, status, created_at, updated_at, activated_at, cancelled_at, renewed_at`

const renewalColumns = `id, contract_id, renewal_opportunity_id, notes, status, created_by, created_at, updated_at, completed_at`

// PostgresStore persists contracts in PostgreSQL through the pgx driver.
// The exclusive section is a transaction holding SELECT ... FOR UPDATE on
// the contract row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and pings a pool for cfg.DSN.
func OpenPostgres(ctx context.Context, cfg *config.StoreConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	slog.Info("contract store initialized", "driver", "postgres", "max_conns", cfg.MaxConns)
	return db, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*model.Contract, error) {
	var c model.Contract
	var activated, cancelled, renewed sql.NullTime
	err := row.Scan(&c.ID, &c.Title, &c.ContractNumber, &c.ClientID, &c.OpportunityID, &c.ProposalID,
		&c.Value, &c.Currency, &c.StartDate, &c.EndDate, &c.RenewalNoticePeriodDays, &c.AutoRenew,
		&c.Terms, &c.OwnerID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &activated, &cancelled, &renewed)
	if err != nil {
		return nil, err
	}
	c.ActivatedAt = timePtr(activated)
	c.CancelledAt = timePtr(cancelled)
	c.RenewedAt = timePtr(renewed)
	return &c, nil
}

func scanRenewal(row rowScanner) (*model.ContractRenewal, error) {
	var r model.ContractRenewal
	var completed sql.NullTime
	err := row.Scan(&r.ID, &r.ContractID, &r.RenewalOpportunityID, &r.Notes, &r.Status,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt, &completed)
	if err != nil {
		return nil, err
	}
	r.CompletedAt = timePtr(completed)
	return &r, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) CreateContract(ctx context.Context, c *model.Contract) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO contracts (`+contractColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		c.ID, c.Title, c.ContractNumber, c.ClientID, c.OpportunityID, c.ProposalID,
		c.Value, c.Currency, c.StartDate, c.EndDate, c.RenewalNoticePeriodDays, c.AutoRenew,
		c.Terms, c.OwnerID, string(c.Status), c.CreatedAt, c.UpdatedAt,
		nullTime(c.ActivatedAt), nullTime(c.CancelledAt), nullTime(c.RenewedAt))
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	c, err := scanContract(s.db.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("contract", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListContracts(ctx context.Context) ([]*model.Contract, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var result []*model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) GetRenewal(ctx context.Context, id string) (*model.ContractRenewal, error) {
	r, err := scanRenewal(s.db.QueryRowContext(ctx,
		`SELECT `+renewalColumns+` FROM contract_renewals WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("renewal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get renewal: %w", err)
	}
	return r, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRenewals(ctx context.Context, q queryer, contractID string) ([]*model.ContractRenewal, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+renewalColumns+` FROM contract_renewals WHERE contract_id = $1 ORDER BY created_at, id`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list renewals: %w", err)
	}
	defer rows.Close()

	result := []*model.ContractRenewal{}
	for rows.Next() {
		r, err := scanRenewal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan renewal: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *PostgresStore) ListRenewals(ctx context.Context, contractID string) ([]*model.ContractRenewal, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)`, contractID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check contract: %w", err)
	}
	if !exists {
		return nil, notFound("contract", contractID)
	}
	return queryRenewals(ctx, s.db, contractID)
}

func (s *PostgresStore) WithContract(ctx context.Context, id string, fn func(tx *ContractTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	c, err := scanContract(sqlTx.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("contract", id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock contract: %w", err)
	}

	renewals, err := queryRenewals(ctx, sqlTx, id)
	if err != nil {
		return err
	}

	tx := newContractTx(c, renewals)
	if err := fn(tx); err != nil {
		return err
	}

	if err := s.apply(ctx, sqlTx, tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) apply(ctx context.Context, sqlTx *sql.Tx, tx *ContractTx) error {
	c := tx.contract
	if tx.deleted {
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, c.ID); err != nil {
			return fmt.Errorf("failed to delete contract: %w", err)
		}
		return nil
	}

	if tx.contractDirty {
		_, err := sqlTx.ExecContext(ctx, `UPDATE contracts SET
title = $2, contract_number = $3, client_id = $4, opportunity_id = $5, proposal_id = $6,
value = $7, currency = $8, start_date = $9, end_date = $10, renewal_notice_period_days = $11,
auto_renew = $12, terms = $13, owner_id = $14, status = $15, updated_at = $16,
activated_at = $17, cancelled_at = $18, renewed_at = $19
WHERE id = $1`,
			c.ID, c.Title, c.ContractNumber, c.ClientID, c.OpportunityID, c.ProposalID,
			c.Value, c.Currency, c.StartDate, c.EndDate, c.RenewalNoticePeriodDays,
			c.AutoRenew, c.Terms, c.OwnerID, string(c.Status), c.UpdatedAt,
			nullTime(c.ActivatedAt), nullTime(c.CancelledAt), nullTime(c.RenewedAt))
		if err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}
	}

	for _, r := range tx.stagedRenewals() {
		var err error
		if tx.inserted[r.ID] {
			_, err = sqlTx.ExecContext(ctx, `INSERT INTO contract_renewals (`+renewalColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				r.ID, r.ContractID, r.RenewalOpportunityID, r.Notes, string(r.Status),
				r.CreatedBy, r.CreatedAt, r.UpdatedAt, nullTime(r.CompletedAt))
		} else {
			_, err = sqlTx.ExecContext(ctx, `UPDATE contract_renewals SET
notes = $2, status = $3, updated_at = $4, completed_at = $5
WHERE id = $1`,
				r.ID, r.Notes, string(r.Status), r.UpdatedAt, nullTime(r.CompletedAt))
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return &ConflictError{ContractID: c.ID}
			}
			return fmt.Errorf("failed to write renewal %s: %w", r.ID, err)
		}
	}
	return nil
}
