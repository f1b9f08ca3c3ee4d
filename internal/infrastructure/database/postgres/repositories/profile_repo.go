package repositories

import (
	"context"
	"database/sql"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/database/postgres"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

type postgresProfileRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewProfileRepo builds a reader over the owner profiles table.
func NewProfileRepo(conn *postgres.Connection, log logging.Logger) portfolio.ProfileReader {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresProfileRepo{conn: conn, log: log.Named("repo.profile")}
}

func (r *postgresProfileRepo) executor() queryExecutor { return r.conn.DB() }

func (r *postgresProfileRepo) RiskScore(ctx context.Context, owner common.OwnerID) (allocation.RiskProfile, error) {
	var score int
	err := r.executor().QueryRowContext(ctx,
		`SELECT risk_score FROM profiles WHERE owner_id = $1`, owner.String()).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, errors.Newf(errors.ErrCodeProfileNotFound, "owner %s has no profile", owner)
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying risk score")
	}

	profile := allocation.RiskProfile(score)
	if err := profile.Validate(); err != nil {
		return 0, err
	}
	return profile, nil
}

func (r *postgresProfileRepo) Entitled(ctx context.Context, owner common.OwnerID) (bool, error) {
	var entitled bool
	err := r.executor().QueryRowContext(ctx,
		`SELECT auto_rebalance FROM profiles WHERE owner_id = $1`, owner.String()).Scan(&entitled)
	if err == sql.ErrNoRows {
		return false, errors.Newf(errors.ErrCodeProfileNotFound, "owner %s has no profile", owner)
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying entitlement")
	}
	return entitled, nil
}
