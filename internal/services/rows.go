package services

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"betaportal/internal/database"
	"betaportal/internal/models"
	contextutils "betaportal/internal/utils"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const testerColumns = `t.id, t.external_id, t.name, t.email, t.company, t.role, t.aircraft_types, t.current_software,
	t.interested_products, t.status, t.agreed_to_terms, t.notes, t.registered_at, t.approved_at, t.last_active_at`

// testerReturning is testerColumns without the table alias, for RETURNING clauses
var testerReturning = strings.ReplaceAll(testerColumns, "t.", "")

func scanTester(row rowScanner) (*models.Tester, error) {
	var t models.Tester
	var status string
	err := row.Scan(&t.ID, &t.ExternalID, &t.Name, &t.Email, &t.Company, &t.Role, &t.AircraftTypes, &t.CurrentSoftware,
		&t.InterestedProducts, &status, &t.AgreedToTerms, &t.Notes, &t.RegisteredAt, &t.ApprovedAt, &t.LastActiveAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TesterStatus(status)
	return &t, nil
}

// bugColumns is shared by every query that materializes a models.BugReport,
// including the tester name and the list counters.
const bugColumns = `b.id, b.report_number, b.tester_id, b.title, b.category, b.severity, b.status,
	b.steps_to_reproduce, b.expected_behavior, b.actual_behavior, b.browser_os, b.page_url, b.console_errors,
	b.assigned_to, b.resolution, b.fixed_in_version, b.resolved_at, b.created_at, b.updated_at,
	t.name,
	(SELECT COUNT(*) FROM comments c WHERE c.bug_report_id = b.id),
	(SELECT COUNT(*) FROM attachments a WHERE a.bug_report_id = b.id),
	(SELECT COUNT(*) FROM votes v WHERE v.bug_report_id = b.id)`

const bugFrom = ` FROM bug_reports b JOIN testers t ON t.id = b.tester_id`

func scanBug(row rowScanner) (*models.BugReport, error) {
	var b models.BugReport
	err := row.Scan(&b.ID, &b.ReportNumber, &b.TesterID, &b.Title, &b.Category, &b.Severity, &b.Status,
		&b.StepsToReproduce, &b.ExpectedBehavior, &b.ActualBehavior, &b.BrowserOS, &b.PageURL, &b.ConsoleErrors,
		&b.AssignedTo, &b.Resolution, &b.FixedInVersion, &b.ResolvedAt, &b.CreatedAt, &b.UpdatedAt,
		&b.TesterName, &b.CommentCount, &b.AttachmentCount, &b.VoteCount)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const featureColumns = `f.id, f.request_number, f.tester_id, f.title, f.category, f.priority, f.status,
	f.description, f.use_case, f.target_version, f.admin_response, f.vote_count, f.created_at, f.updated_at,
	t.name,
	(SELECT COUNT(*) FROM comments c WHERE c.feature_request_id = f.id)`

const featureFrom = ` FROM feature_requests f JOIN testers t ON t.id = f.tester_id`

func scanFeature(row rowScanner) (*models.FeatureRequest, error) {
	var f models.FeatureRequest
	err := row.Scan(&f.ID, &f.RequestNumber, &f.TesterID, &f.Title, &f.Category, &f.Priority, &f.Status,
		&f.Description, &f.UseCase, &f.TargetVersion, &f.AdminResponse, &f.VoteCount, &f.CreatedAt, &f.UpdatedAt,
		&f.TesterName, &f.CommentCount)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func collectBugs(rows *sql.Rows) ([]models.BugReport, error) {
	defer func() { _ = rows.Close() }()
	out := []models.BugReport{}
	for rows.Next() {
		b, err := scanBug(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func collectFeatures(rows *sql.Rows) ([]models.FeatureRequest, error) {
	defer func() { _ = rows.Close() }()
	out := []models.FeatureRequest{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// likePattern escapes LIKE wildcards in a user search term
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

// normalizePaging applies the list defaults: page 1, limit 20, limit capped at 100
func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// whereClause accumulates AND-ed conditions with positional arguments
type whereClause struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; each %d in format becomes the new argument's placeholder index
func (w *whereClause) add(format string, value interface{}) {
	w.args = append(w.args, value)
	n := len(w.args)
	w.conditions = append(w.conditions, strings.ReplaceAll(format, "%d", strconv.Itoa(n)))
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// next returns the placeholder for an argument appended after the conditions
func (w *whereClause) next(value interface{}) string {
	w.args = append(w.args, value)
	return "$" + strconv.Itoa(len(w.args))
}

// setClause accumulates column assignments for a partial UPDATE
type setClause struct {
	assignments []string
	args        []interface{}
}

func (s *setClause) value(column string, v interface{}) {
	s.args = append(s.args, v)
	s.assignments = append(s.assignments, column+" = $"+strconv.Itoa(len(s.args)))
}

func (s *setClause) raw(expr string) {
	s.assignments = append(s.assignments, expr)
}

// optional sets column when v is present; blank strings store NULL
func (s *setClause) optional(column string, v *string) {
	if v == nil {
		return
	}
	s.value(column, contextutils.NilIfBlank(v))
}

// required sets column when v is present and rejects blank values
func (s *setClause) required(column string, v *string, label string) error {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return contextutils.Validation(contextutils.ErrorCodeInvalidInput, label+" cannot be empty")
	}
	s.value(column, t)
	return nil
}

func (s *setClause) empty() bool {
	return len(s.assignments) == 0
}

// apply runs the UPDATE against table row id, bumping updated_at. missing is the not-found message.
func (s *setClause) apply(ctx context.Context, q database.Querier, table string, id int, missing string) error {
	assignments := append(append([]string(nil), s.assignments...), "updated_at = NOW()")
	args := append(append([]interface{}(nil), s.args...), id)
	query := "UPDATE " + table + " SET " + strings.Join(assignments, ", ") + " WHERE id = $" + strconv.Itoa(len(args))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to update %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read affected rows")
	}
	if n == 0 {
		return contextutils.NotFound(missing)
	}
	return nil
}
