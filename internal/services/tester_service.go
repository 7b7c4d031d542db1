package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// TesterService manages beta tester accounts
type TesterService struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.PortalMetrics
}

// TesterDeletion counts the rows removed by a tester delete
type TesterDeletion struct {
	TesterID    int `json:"testerId"`
	BugReports  int `json:"bugReports"`
	Features    int `json:"featureRequests"`
	Comments    int `json:"comments"`
	Votes       int `json:"votes"`
	Attachments int `json:"attachments"`
}

// NewTesterService creates a new TesterService instance. metrics may be nil.
func NewTesterService(db *sql.DB, logger *observability.Logger, metrics *observability.PortalMetrics) *TesterService {
	if db == nil {
		panic("NewTesterService: db is nil")
	}
	if logger == nil {
		panic("NewTesterService: logger is nil")
	}
	return &TesterService{db: db, logger: logger, metrics: metrics}
}

func (s *TesterService) getTesterByQuery(ctx context.Context, query string, args ...interface{}) (*models.Tester, error) {
	t, err := scanTester(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found is not an error here
		}
		return nil, err
	}
	return t, nil
}

// Register files a new beta application. A non-empty externalID binds the
// application to the caller's identity.
func (s *TesterService) Register(ctx context.Context, externalID string, req models.RegisterRequest) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "register",
		observability.AttributeExternalID(externalID),
	)
	defer observability.FinishSpan(span, &err)

	name := strings.TrimSpace(req.Name)
	email := contextutils.NormalizeEmail(req.Email)
	role := strings.TrimSpace(req.Role)
	if name == "" || email == "" || role == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Name, email, and role are required")
	}
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Please provide a valid email address")
	}
	if !req.AgreedToTerms {
		return nil, contextutils.Validation(contextutils.ErrorCodeValidationFailed, "You must agree to the beta testing terms")
	}

	var exists bool
	if err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM testers WHERE email = $1)`, email).Scan(&exists); err != nil {
		return nil, contextutils.WrapError(err, "failed to check existing application")
	}
	if exists {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, "An application with this email already exists", "")
	}

	var external sql.NullString
	if id := strings.TrimSpace(externalID); id != "" {
		bound, lookupErr := s.GetByExternalID(ctx, id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if bound != nil {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, "An application for this account already exists", "")
		}
		external = sql.NullString{String: id, Valid: true}
	}

	var products sql.NullString
	if list := trimAll(req.InterestedProducts); len(list) > 0 {
		products = sql.NullString{String: strings.Join(list, ","), Valid: true}
	}

	query := `INSERT INTO testers (external_id, name, email, company, role, aircraft_types, current_software, interested_products, status, agreed_to_terms, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + testerReturning
	t, err := scanTester(s.db.QueryRowContext(ctx, query,
		external, name, email,
		contextutils.NilIfBlank(req.Company), role,
		contextutils.NilIfBlank(req.AircraftTypes), contextutils.NilIfBlank(req.CurrentSoftware),
		products, string(models.TesterStatusPending), true, time.Now(),
	))
	if err != nil {
		return nil, registerInsertError(err)
	}

	s.logger.Info(ctx, "Beta application submitted", map[string]interface{}{
		"tester_id": t.ID,
		"role":      t.Role,
		"bound":     external.Valid,
	})
	return t, nil
}

// GetByExternalID returns the tester bound to externalID, or nil when there is none
func (s *TesterService) GetByExternalID(ctx context.Context, externalID string) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "get_by_external_id",
		observability.AttributeExternalID(externalID),
	)
	defer observability.FinishSpan(span, &err)

	t, err := s.getTesterByQuery(ctx, `SELECT `+testerColumns+` FROM testers t WHERE t.external_id = $1`, externalID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to look up tester")
	}
	return t, nil
}

// GetByID returns a tester by ID or a not-found error
func (s *TesterService) GetByID(ctx context.Context, id int) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "get_by_id", observability.AttributeTesterID(id))
	defer observability.FinishSpan(span, &err)

	t, err := s.getTesterByQuery(ctx, `SELECT `+testerColumns+` FROM testers t WHERE t.id = $1`, id)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get tester")
	}
	if t == nil {
		return nil, contextutils.NotFound("Beta tester not found")
	}
	return t, nil
}

// RequireTester returns the tester bound to externalID when it may use the portal.
// Unbound identities and testers that are pending or suspended get distinct errors.
func (s *TesterService) RequireTester(ctx context.Context, externalID string) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceAccessFunction(ctx, "require_tester",
		observability.AttributeExternalID(externalID),
	)
	defer observability.FinishSpan(span, &err)

	t, err := s.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, contextutils.ErrTesterNotRegistered
	}
	if !t.HasPortalAccess() {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeTesterNotApproved, contextutils.SeverityInfo,
			fmt.Sprintf("Your beta tester account is %s. Please wait for approval.", t.Status), "")
	}
	span.SetAttributes(observability.AttributeTesterID(t.ID))
	return t, nil
}

func (s *TesterService) counts(ctx context.Context, testerID int, withVotes bool) (models.TesterCounts, error) {
	var c models.TesterCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bug_reports WHERE tester_id = $1),
			(SELECT COUNT(*) FROM feature_requests WHERE tester_id = $1),
			(SELECT COUNT(*) FROM votes WHERE tester_id = $1)`, testerID).
		Scan(&c.BugReports, &c.FeatureRequests, &c.Votes)
	if err != nil {
		return c, err
	}
	if !withVotes {
		c.Votes = 0
	}
	return c, nil
}

// GetMe returns the caller's tester record with owned-record counts
func (s *TesterService) GetMe(ctx context.Context, externalID string) (result0 *models.TesterWithCounts, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "get_me", observability.AttributeExternalID(externalID))
	defer observability.FinishSpan(span, &err)

	t, err := s.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, contextutils.NotFound("Beta tester not found")
	}
	c, err := s.counts(ctx, t.ID, true)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to count tester records")
	}
	return &models.TesterWithCounts{Tester: *t, Counts: c}, nil
}

// UpdateMe applies the self-service profile fields. Nil fields are left alone; blank strings clear.
func (s *TesterService) UpdateMe(ctx context.Context, externalID string, patch models.ProfilePatch) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "update_me", observability.AttributeExternalID(externalID))
	defer observability.FinishSpan(span, &err)

	sets := []string{"last_active_at = $1"}
	args := []interface{}{time.Now()}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, contextutils.NilIfBlank(v))
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("company", patch.Company)
	add("aircraft_types", patch.AircraftTypes)
	add("current_software", patch.CurrentSoftware)

	args = append(args, externalID)
	query := fmt.Sprintf(`UPDATE testers SET %s WHERE external_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), testerReturning)

	t, err := scanTester(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NotFound("Beta tester not found")
		}
		return nil, contextutils.WrapError(err, "failed to update profile")
	}
	return t, nil
}

// MyReports lists the tester's bugs and features, newest first
func (s *TesterService) MyReports(ctx context.Context, testerID int) (result0 *models.MyReports, err error) {
	ctx, span := observability.TraceTesterFunction(ctx, "my_reports", observability.AttributeTesterID(testerID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+bugColumns+bugFrom+` WHERE b.tester_id = $1 ORDER BY b.created_at DESC`, testerID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query tester bugs")
	}
	bugs, err := collectBugs(rows)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to scan tester bugs")
	}

	rows, err = s.db.QueryContext(ctx, `SELECT `+featureColumns+featureFrom+` WHERE f.tester_id = $1 ORDER BY f.created_at DESC`, testerID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query tester features")
	}
	features, err := collectFeatures(rows)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to scan tester features")
	}

	return &models.MyReports{Bugs: bugs, Features: features}, nil
}

// TouchLastActive records activity. Failures are logged and otherwise ignored.
func (s *TesterService) TouchLastActive(ctx context.Context, testerID int) {
	if testerID <= 0 {
		return
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE testers SET last_active_at = $1 WHERE id = $2`, time.Now(), testerID); err != nil {
		s.logger.Warn(ctx, "Failed to update tester last active", map[string]interface{}{
			"tester_id": testerID,
			"error":     err.Error(),
		})
	}
}

// List returns testers newest-registered first. An empty status or "all" disables the filter.
func (s *TesterService) List(ctx context.Context, status string) (result0 []models.TesterWithCounts, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "list_testers", observability.AttributeStatus(status))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + testerColumns + `,
			(SELECT COUNT(*) FROM bug_reports b WHERE b.tester_id = t.id),
			(SELECT COUNT(*) FROM feature_requests f WHERE f.tester_id = t.id)
		FROM testers t`
	var args []interface{}
	if status != "" && status != "all" {
		if !models.TesterStatus(status).Valid() {
			return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, fmt.Sprintf("Unknown tester status %q", status))
		}
		query += ` WHERE t.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY t.registered_at DESC, t.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list testers")
	}
	defer func() { _ = rows.Close() }()

	out := []models.TesterWithCounts{}
	for rows.Next() {
		var t models.Tester
		var st string
		var c models.TesterCounts
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Name, &t.Email, &t.Company, &t.Role, &t.AircraftTypes, &t.CurrentSoftware,
			&t.InterestedProducts, &st, &t.AgreedToTerms, &t.Notes, &t.RegisteredAt, &t.ApprovedAt, &t.LastActiveAt,
			&c.BugReports, &c.FeatureRequests); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan tester")
		}
		t.Status = models.TesterStatus(st)
		out = append(out, models.TesterWithCounts{Tester: t, Counts: c})
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate testers")
	}
	return out, nil
}

// UpdateStatus applies an admin patch. Moving to approved stamps approved_at.
// The tester's status before the change is returned alongside the updated record.
func (s *TesterService) UpdateStatus(ctx context.Context, id int, patch models.TesterAdminPatch) (result0 *models.Tester, previous models.TesterStatus, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "update_tester_status", observability.AttributeTesterID(id))
	defer observability.FinishSpan(span, &err)

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, "", contextutils.Validation(contextutils.ErrorCodeInvalidInput, fmt.Sprintf("Unknown tester status %q", *patch.Status))
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var st string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM testers WHERE id = $1 FOR UPDATE`, id).Scan(&st); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.NotFound("Beta tester not found")
			}
			return contextutils.WrapError(err, "failed to lock tester")
		}
		previous = models.TesterStatus(st)

		var sets []string
		var args []interface{}
		if patch.Status != nil {
			args = append(args, string(*patch.Status))
			sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
			if *patch.Status == models.TesterStatusApproved {
				args = append(args, time.Now())
				sets = append(sets, fmt.Sprintf("approved_at = $%d", len(args)))
			}
		}
		if patch.Notes != nil {
			args = append(args, contextutils.NilIfBlank(patch.Notes))
			sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
		}

		cols := testerReturning
		var query string
		if len(sets) == 0 {
			args = append(args, id)
			query = fmt.Sprintf(`SELECT %s FROM testers WHERE id = $%d`, cols, len(args))
		} else {
			args = append(args, id)
			query = fmt.Sprintf(`UPDATE testers SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), cols)
		}
		t, err := scanTester(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return contextutils.WrapError(err, "failed to update tester")
		}
		result0 = t
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if patch.Status != nil && *patch.Status != previous {
		s.metrics.TesterStatusChanged(ctx, string(*patch.Status))
		s.logger.Info(ctx, "Tester status changed", map[string]interface{}{
			"tester_id": id,
			"from":      string(previous),
			"to":        string(*patch.Status),
		})
	}
	span.SetAttributes(attribute.String("tester.status", string(result0.Status)))
	return result0, previous, nil
}

// Delete removes a tester and everything they own in one transaction.
// Children are deleted before parents, and the vote counters of features the
// tester had voted on are adjusted to match.
func (s *TesterService) Delete(ctx context.Context, id int) (result0 *TesterDeletion, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "delete_tester", observability.AttributeTesterID(id))
	defer observability.FinishSpan(span, &err)

	summary := &TesterDeletion{TesterID: id}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx, `SELECT id FROM testers WHERE id = $1 FOR UPDATE`, id).Scan(&found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.NotFound("Beta tester not found")
			}
			return contextutils.WrapError(err, "failed to lock tester")
		}

		exec := func(counter *int, query string) error {
			res, err := tx.ExecContext(ctx, query, id)
			if err != nil {
				return err
			}
			if counter != nil {
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				*counter += int(n)
			}
			return nil
		}

		steps := []struct {
			counter *int
			query   string
		}{
			// Votes cast by the tester on other people's features
			{nil, `UPDATE feature_requests SET vote_count = GREATEST(vote_count - 1, 0)
				WHERE id IN (SELECT feature_request_id FROM votes WHERE tester_id = $1 AND feature_request_id IS NOT NULL)
				AND tester_id <> $1`},
			{&summary.Votes, `DELETE FROM votes WHERE tester_id = $1`},
			{&summary.Comments, `DELETE FROM comments WHERE tester_id = $1`},

			// Children of the tester's bug reports
			{&summary.Attachments, `DELETE FROM attachments WHERE bug_report_id IN (SELECT id FROM bug_reports WHERE tester_id = $1)`},
			{&summary.Comments, `DELETE FROM comments WHERE bug_report_id IN (SELECT id FROM bug_reports WHERE tester_id = $1)`},
			{&summary.Votes, `DELETE FROM votes WHERE bug_report_id IN (SELECT id FROM bug_reports WHERE tester_id = $1)`},

			// Children of the tester's feature requests
			{&summary.Attachments, `DELETE FROM attachments WHERE feature_request_id IN (SELECT id FROM feature_requests WHERE tester_id = $1)`},
			{&summary.Comments, `DELETE FROM comments WHERE feature_request_id IN (SELECT id FROM feature_requests WHERE tester_id = $1)`},
			{&summary.Votes, `DELETE FROM votes WHERE feature_request_id IN (SELECT id FROM feature_requests WHERE tester_id = $1)`},

			{&summary.BugReports, `DELETE FROM bug_reports WHERE tester_id = $1`},
			{&summary.Features, `DELETE FROM feature_requests WHERE tester_id = $1`},
			{nil, `DELETE FROM testers WHERE id = $1`},
		}
		for _, step := range steps {
			if err := exec(step.counter, step.query); err != nil {
				return contextutils.WrapError(err, "failed to delete tester data")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Tester deleted", map[string]interface{}{
		"tester_id":        id,
		"bug_reports":      summary.BugReports,
		"feature_requests": summary.Features,
		"comments":         summary.Comments,
		"votes":            summary.Votes,
		"attachments":      summary.Attachments,
	})
	return summary, nil
}

// testersExternalIDKey is the Postgres default name of the external_id unique constraint
const testersExternalIDKey = "testers_external_id_key"

// registerInsertError maps a failed application insert. A concurrent insert can
// trip either the email or the external_id unique constraint.
func registerInsertError(err error) error {
	if !database.IsUniqueViolation(err) {
		return contextutils.WrapError(err, "failed to insert tester")
	}
	msg := "An application with this email already exists"
	if database.ViolatedConstraint(err) == testersExternalIDKey {
		msg = "An application for this account already exists"
	}
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, msg, "", err)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
