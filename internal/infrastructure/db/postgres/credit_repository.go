package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelia/concierge-system/internal/core/domain"
)

const accountColumns = `user_id, balance, monthly_allocation, last_allocation_at, created_at, updated_at`

const transactionColumns = `id, user_id, amount, transaction_type, description, service_request_id, balance_after, created_at`

// CreditRepository keeps balances in user_credits and the append-only ledger
// in credit_transactions. Every balance change and its ledger row share a
// database transaction.
type CreditRepository struct {
	pool *pgxpool.Pool
}

func NewCreditRepository(pool *pgxpool.Pool) *CreditRepository {
	return &CreditRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*domain.CreditAccount, error) {
	var a domain.CreditAccount
	if err := row.Scan(&a.UserID, &a.Balance, &a.MonthlyAllocation, &a.LastAllocationAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *CreditRepository) FindAccount(ctx context.Context, userID string) (*domain.CreditAccount, error) {
	acct, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM user_credits WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credit account: %w", err)
	}
	return acct, nil
}

func (r *CreditRepository) CreateAccountIfAbsent(ctx context.Context, userID string, allocation int, now time.Time) (*domain.CreditAccount, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	acct, err := scanAccount(tx.QueryRow(ctx, `
		INSERT INTO user_credits (user_id, balance, monthly_allocation, last_allocation_at, created_at, updated_at)
		VALUES ($1, $2, $2, $3, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING `+accountColumns,
		userID, allocation, now))
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: someone else created it.
		existing, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM user_credits WHERE user_id = $1`, userID))
		if err != nil {
			return nil, false, fmt.Errorf("read credit account: %w", err)
		}
		return existing, false, tx.Commit(ctx)
	}
	if err != nil {
		return nil, false, fmt.Errorf("create credit account: %w", err)
	}

	if allocation > 0 {
		err = insertTransaction(ctx, tx, &domain.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       allocation,
			Type:         domain.TxAllocation,
			Description:  "Initial monthly allocation",
			BalanceAfter: acct.Balance,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

// ApplyTransaction relies on the conditional UPDATE for the no-overdraft
// guarantee: concurrent debits serialize on the row lock and the loser sees
// zero affected rows.
func (r *CreditRepository) ApplyTransaction(ctx context.Context, t *domain.CreditTransaction) (*domain.CreditAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acct, err := scanAccount(tx.QueryRow(ctx, `
		UPDATE user_credits
		SET balance = balance + $2, updated_at = $3
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING `+accountColumns,
		t.UserID, t.Amount, t.CreatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrShort(ctx, tx, t.UserID)
	}
	if isCheckViolation(err) {
		return nil, domain.ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("apply credit transaction: %w", err)
	}

	t.BalanceAfter = acct.Balance
	if err := insertTransaction(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return acct, nil
}

func (r *CreditRepository) missingOrShort(ctx context.Context, tx pgx.Tx, userID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_credits WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check credit account: %w", err)
	}
	if !exists {
		return domain.ErrAccountNotFound
	}
	return domain.ErrInsufficientCredits
}

func (r *CreditRepository) RecordTransaction(ctx context.Context, t *domain.CreditTransaction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO credit_transactions (`+transactionColumns+`)
		SELECT $1, user_id, $3, $4, $5, $6, balance, $7
		FROM user_credits WHERE user_id = $2
		RETURNING balance_after`,
		t.ID, t.UserID, t.Amount, string(t.Type), t.Description, nullable(t.ServiceRequestID), t.CreatedAt,
	).Scan(&t.BalanceAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("record credit transaction: %w", err)
	}
	return nil
}

func (r *CreditRepository) RenewAllocation(ctx context.Context, userID string, amount int, now time.Time) (*domain.CreditAccount, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	acct, err := scanAccount(tx.QueryRow(ctx, `
		UPDATE user_credits
		SET balance = balance + $2, monthly_allocation = $2, last_allocation_at = $3, updated_at = $3
		WHERE user_id = $1 AND last_allocation_at < $4
		RETURNING `+accountColumns,
		userID, amount, now, domain.MonthStart(now)))
	if errors.Is(err, pgx.ErrNoRows) {
		current, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM user_credits WHERE user_id = $1`, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domain.ErrAccountNotFound
		}
		if err != nil {
			return nil, false, fmt.Errorf("read credit account: %w", err)
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("renew allocation: %w", err)
	}

	err = insertTransaction(ctx, tx, &domain.CreditTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Type:         domain.TxAllocation,
		Description:  "Monthly allocation " + now.Format("2006-01"),
		BalanceAfter: acct.Balance,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

func (r *CreditRepository) MarkAllocationChecked(ctx context.Context, userID string, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_credits
		SET last_allocation_at = $2, updated_at = $2
		WHERE user_id = $1 AND last_allocation_at < $3`,
		userID, now, domain.MonthStart(now))
	if err != nil {
		return fmt.Errorf("mark allocation checked: %w", err)
	}
	return nil
}

func (r *CreditRepository) ListTransactions(ctx context.Context, userID string, since time.Time) ([]*domain.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM credit_transactions
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	var list []*domain.CreditTransaction
	for rows.Next() {
		var (
			t         domain.CreditTransaction
			typ       string
			requestID *string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Description, &requestID, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.ServiceRequestID = deref(requestID)
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *CreditRepository) ListAccountsDueForAllocation(ctx context.Context, monthStart time.Time, afterUserID string, limit int) ([]*domain.CreditAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM user_credits
		WHERE last_allocation_at < $1 AND user_id > $2
		ORDER BY user_id
		LIMIT $3`, monthStart, afterUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list due accounts: %w", err)
	}
	defer rows.Close()

	var list []*domain.CreditAccount
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, acct)
	}
	return list, rows.Err()
}

func insertTransaction(ctx context.Context, db execer, t *domain.CreditTransaction) error {
	_, err := db.Exec(ctx, `
		INSERT INTO credit_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.Amount, string(t.Type), t.Description, nullable(t.ServiceRequestID), t.BalanceAfter, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}
