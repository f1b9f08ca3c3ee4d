package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/database/postgres"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

type postgresPortfolioRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPortfolioRepo builds the append-only portfolio store.
func NewPortfolioRepo(conn *postgres.Connection, log logging.Logger) portfolio.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresPortfolioRepo{conn: conn, log: log.Named("repo.portfolio")}
}

func (r *postgresPortfolioRepo) executor() queryExecutor { return r.conn.DB() }

const portfolioColumns = `id, owner_id, risk_score, weights, metrics, created_at, rebalance_at, previous_id, drawdown_notified`

// currentVersions selects versions no newer version points back to.
const currentVersions = `NOT EXISTS (SELECT 1 FROM portfolios n WHERE n.previous_id = p.id)`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresPortfolioRepo) Save(ctx context.Context, p *portfolio.Portfolio) error {
	if err := p.Validate(); err != nil {
		return err
	}

	weights, err := json.Marshal(p.Weights)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshaling weights")
	}
	metrics, err := json.Marshal(p.Metrics)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshaling metrics")
	}

	var previous interface{}
	if p.PreviousID != nil {
		previous = p.PreviousID.String()
	}

	query := `
		INSERT INTO portfolios (` + portfolioColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.executor().ExecContext(ctx, query,
		p.ID.String(), p.OwnerID.String(), int(p.RiskScore),
		weights, metrics, p.CreatedAt, p.RebalanceAt, previous, p.DrawdownNotified,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePortfolioSaveFailed, "inserting portfolio version")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresPortfolioRepo) FindByID(ctx context.Context, id common.ID) (*portfolio.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`
	p, err := scanPortfolio(r.executor().QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodePortfolioNotFound, "portfolio %s not found", id)
	}
	return p, err
}

func (r *postgresPortfolioRepo) FindCurrentByOwner(ctx context.Context, owner common.OwnerID) (*portfolio.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + ` FROM portfolios p
		WHERE p.owner_id = $1 AND ` + currentVersions + `
		ORDER BY p.created_at DESC
		LIMIT 1
	`
	p, err := scanPortfolio(r.executor().QueryRowContext(ctx, query, owner.String()))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodePortfolioNotFound, "owner %s has no portfolio", owner)
	}
	return p, err
}

func (r *postgresPortfolioRepo) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*portfolio.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + ` FROM portfolios p
		WHERE p.rebalance_at <= $1 AND ` + currentVersions + `
		ORDER BY p.rebalance_at
		LIMIT $2
	`
	return r.list(ctx, query, asOf, limit)
}

func (r *postgresPortfolioRepo) ListUnnotifiedDrawdown(ctx context.Context, limit int) ([]*portfolio.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + ` FROM portfolios p
		WHERE p.drawdown_notified = FALSE AND ` + currentVersions + `
		ORDER BY p.created_at
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ─────────────────────────────────────────────────────────────────────────────
// Updates
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresPortfolioRepo) SetDrawdownNotified(ctx context.Context, id common.ID) error {
	query := `UPDATE portfolios SET drawdown_notified = TRUE WHERE id = $1 AND drawdown_notified = FALSE`
	res, err := r.executor().ExecContext(ctx, query, id.String())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "setting drawdown flag")
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Either missing or the flag was already set by a concurrent pass.
		var exists bool
		checkErr := r.executor().QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM portfolios WHERE id = $1)`, id.String()).Scan(&exists)
		if checkErr != nil {
			return errors.Wrap(checkErr, errors.ErrCodeDatabaseError, "checking portfolio existence")
		}
		if !exists {
			return errors.Newf(errors.ErrCodePortfolioNotFound, "portfolio %s not found", id)
		}
		return errors.Newf(errors.ErrCodePortfolioDrawdownState, "portfolio %s already drawdown-notified", id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresPortfolioRepo) list(ctx context.Context, query string, args ...interface{}) ([]*portfolio.Portfolio, error) {
	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying portfolios")
	}
	defer rows.Close()

	out := make([]*portfolio.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating portfolios")
	}
	return out, nil
}

func scanPortfolio(s scanner) (*portfolio.Portfolio, error) {
	var (
		p          portfolio.Portfolio
		id, owner  string
		risk       int
		weights    []byte
		metrics    []byte
		previousID sql.NullString
	)
	err := s.Scan(&id, &owner, &risk, &weights, &metrics,
		&p.CreatedAt, &p.RebalanceAt, &previousID, &p.DrawdownNotified)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning portfolio row")
	}

	p.ID = common.ID(id)
	p.OwnerID = common.OwnerID(owner)
	p.RiskScore = allocation.RiskProfile(risk)
	if err := json.Unmarshal(weights, &p.Weights); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshaling weights")
	}
	if err := json.Unmarshal(metrics, &p.Metrics); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshaling metrics")
	}
	if previousID.Valid {
		prev := common.ID(previousID.String)
		p.PreviousID = &prev
	}
	return &p, nil
}
