package services

import (
	"context"
	"database/sql"
	"errors"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// VoteService toggles tester votes on feature requests
type VoteService struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.PortalMetrics
}

// NewVoteService creates a new VoteService instance
func NewVoteService(db *sql.DB, logger *observability.Logger, metrics *observability.PortalMetrics) *VoteService {
	if db == nil {
		panic("NewVoteService: db is nil")
	}
	if logger == nil {
		panic("NewVoteService: logger is nil")
	}
	return &VoteService{db: db, logger: logger, metrics: metrics}
}

// Toggle adds the tester's vote on a feature, or removes it when present.
// The feature row is locked for the duration so concurrent toggles on the same
// feature serialize, and the counter moves with the vote row in one transaction.
func (s *VoteService) Toggle(ctx context.Context, testerID, featureID int) (result0 *models.VoteResult, err error) {
	ctx, span := observability.TraceVoteFunction(ctx, "toggle_vote",
		observability.AttributeTesterID(testerID),
		observability.AttributeReportID(featureID),
	)
	defer observability.FinishSpan(span, &err)

	result := &models.VoteResult{}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var locked int
		if err := tx.QueryRowContext(ctx, `SELECT id FROM feature_requests WHERE id = $1 FOR UPDATE`, featureID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.NotFound(featureNotFound)
			}
			return contextutils.WrapError(err, "failed to lock feature request")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE tester_id = $1 AND feature_request_id = $2`, testerID, featureID)
		if err != nil {
			return contextutils.WrapError(err, "failed to remove vote")
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return contextutils.WrapError(err, "failed to read affected rows")
		}

		delta := "- 1"
		if removed == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO votes (tester_id, feature_request_id) VALUES ($1, $2)`, testerID, featureID); err != nil {
				if database.IsUniqueViolation(err) {
					return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeConflict, contextutils.SeverityWarn, "Vote already recorded", "", err)
				}
				return contextutils.WrapError(err, "failed to record vote")
			}
			delta = "+ 1"
			result.Voted = true
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE feature_requests SET vote_count = GREATEST(vote_count `+delta+`, 0) WHERE id = $1 RETURNING vote_count`,
			featureID).Scan(&result.VoteCount)
		if err != nil {
			return contextutils.WrapError(err, "failed to update vote count")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VoteToggled(ctx, result.Voted)
	span.SetAttributes(
		attribute.Bool("vote.voted", result.Voted),
		attribute.Int("vote.count", result.VoteCount),
	)
	return result, nil
}

// HasVoted reports whether the tester currently votes for the feature
func (s *VoteService) HasVoted(ctx context.Context, testerID, featureID int) (result0 bool, err error) {
	ctx, span := observability.TraceVoteFunction(ctx, "has_voted",
		observability.AttributeTesterID(testerID),
		observability.AttributeReportID(featureID),
	)
	defer observability.FinishSpan(span, &err)

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE tester_id = $1 AND feature_request_id = $2)`,
		testerID, featureID).Scan(&result0)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check vote")
	}
	return result0, nil
}

// Reconcile rewrites every feature's vote_count from its vote rows and
// returns how many features changed.
func (s *VoteService) Reconcile(ctx context.Context) (result0 int, err error) {
	ctx, span := observability.TraceVoteFunction(ctx, "reconcile_votes")
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `
		UPDATE feature_requests f
		SET vote_count = c.actual
		FROM (
			SELECT fr.id, COUNT(v.id) AS actual
			FROM feature_requests fr
			LEFT JOIN votes v ON v.feature_request_id = fr.id
			GROUP BY fr.id
		) c
		WHERE f.id = c.id AND f.vote_count <> c.actual`)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to reconcile vote counts")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to read affected rows")
	}

	s.logger.Info(ctx, "Vote counts reconciled", map[string]interface{}{"features_updated": n})
	return int(n), nil
}
