package services

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed seed/fixture.yaml
var seedFixtureYAML []byte

//go:embed seed/fixture.schema.json
var seedFixtureSchema []byte

// SeedFixture is the demo data loaded into an empty portal
type SeedFixture struct {
	Admin struct {
		Name               string   `yaml:"name"`
		Email              string   `yaml:"email"`
		Company            string   `yaml:"company"`
		Role               string   `yaml:"role"`
		InterestedProducts []string `yaml:"interested_products"`
	} `yaml:"admin"`
	Bugs []struct {
		Title            string `yaml:"title"`
		Category         string `yaml:"category"`
		Severity         string `yaml:"severity"`
		Status           string `yaml:"status"`
		StepsToReproduce string `yaml:"steps_to_reproduce"`
		ExpectedBehavior string `yaml:"expected_behavior"`
		ActualBehavior   string `yaml:"actual_behavior"`
		Resolution       string `yaml:"resolution"`
		FixedInVersion   string `yaml:"fixed_in_version"`
		Resolved         bool   `yaml:"resolved"`
	} `yaml:"bugs"`
	Features []struct {
		Title       string `yaml:"title"`
		Category    string `yaml:"category"`
		Priority    string `yaml:"priority"`
		Status      string `yaml:"status"`
		Description string `yaml:"description"`
		UseCase     string `yaml:"use_case"`
		VoteCount   int    `yaml:"vote_count"`
	} `yaml:"features"`
	Comments []struct {
		Report  string `yaml:"report"`
		AsAdmin bool   `yaml:"as_admin"`
		Content string `yaml:"content"`
	} `yaml:"comments"`
	Announcements []struct {
		Title    string `yaml:"title"`
		Type     string `yaml:"type"`
		Version  string `yaml:"version"`
		IsPinned bool   `yaml:"is_pinned"`
		Content  string `yaml:"content"`
	} `yaml:"announcements"`
}

// SeedResult is the outcome of a seed run
type SeedResult struct {
	Success bool     `json:"success"`
	Results []string `json:"results"`
}

// LoadSeedFixture parses raw YAML and validates it against the embedded schema
func LoadSeedFixture(raw []byte) (*SeedFixture, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, contextutils.WrapError(err, "failed to parse seed fixture")
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(seedFixtureSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to validate seed fixture")
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityError,
			"Seed fixture is invalid", strings.Join(problems, "; "))
	}

	var fixture SeedFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode seed fixture")
	}
	return &fixture, nil
}

// SeedService bootstraps a fresh portal with demo data. Every step only runs
// when its table is empty, so repeated runs are harmless.
type SeedService struct {
	db        *sql.DB
	logger    *observability.Logger
	numbering *NumberingService
	policy    *AccessPolicy
	fixture   []byte
}

// NewSeedService creates a SeedService using the embedded fixture
func NewSeedService(db *sql.DB, logger *observability.Logger, numbering *NumberingService, policy *AccessPolicy) *SeedService {
	if db == nil {
		panic("NewSeedService: db is nil")
	}
	if logger == nil {
		panic("NewSeedService: logger is nil")
	}
	return &SeedService{db: db, logger: logger, numbering: numbering, policy: policy, fixture: seedFixtureYAML}
}

// Run seeds the database. callerExternalID owns the admin tester when no allow-list is configured.
func (s *SeedService) Run(ctx context.Context, callerExternalID string) (result0 *SeedResult, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "seed",
		observability.AttributeExternalID(callerExternalID),
	)
	defer observability.FinishSpan(span, &err)

	fixture, err := LoadSeedFixture(s.fixture)
	if err != nil {
		return nil, err
	}

	ownerID := strings.TrimSpace(callerExternalID)
	if ids := s.policy.AdminIDs(); len(ids) > 0 {
		ownerID = ids[0]
	}
	if ownerID == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeInvalidInput, "No admin identity available to own seed data")
	}

	result := &SeedResult{Success: true, Results: []string{}}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		admin, line, err := s.seedAdmin(ctx, tx, fixture, ownerID)
		if err != nil {
			return err
		}
		result.Results = append(result.Results, line)

		steps := []func(context.Context, *sql.Tx, *SeedFixture, *models.Tester) (string, error){
			s.seedBugs,
			s.seedFeatures,
			s.seedComments,
			s.seedAnnouncements,
		}
		for _, step := range steps {
			line, err := step(ctx, tx, fixture, admin)
			if err != nil {
				return err
			}
			result.Results = append(result.Results, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Seed completed", map[string]interface{}{
		"owner_external_id": ownerID,
		"results":           result.Results,
	})
	return result, nil
}

func (s *SeedService) seedAdmin(ctx context.Context, tx *sql.Tx, fixture *SeedFixture, externalID string) (*models.Tester, string, error) {
	admin, err := scanTester(tx.QueryRowContext(ctx, `SELECT `+testerReturning+` FROM testers WHERE external_id = $1`, externalID))
	if err == nil {
		if admin.Status != models.TesterStatusActive {
			if _, err := tx.ExecContext(ctx, `UPDATE testers SET status = $1 WHERE id = $2`, models.TesterStatusActive, admin.ID); err != nil {
				return nil, "", contextutils.WrapError(err, "failed to activate admin tester")
			}
			admin.Status = models.TesterStatusActive
		}
		return admin, "Admin tester account already exists", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", contextutils.WrapError(err, "failed to look up admin tester")
	}

	a := fixture.Admin
	admin, err = scanTester(tx.QueryRowContext(ctx, `
		INSERT INTO testers (external_id, name, email, company, role, interested_products, status, agreed_to_terms, approved_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING `+testerReturning,
		externalID, a.Name, contextutils.NormalizeEmail(a.Email), nullIfEmpty(a.Company), a.Role,
		nullIfEmpty(strings.Join(a.InterestedProducts, ",")), models.TesterStatusActive))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, "", contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityWarn,
				"A tester with the seed admin email already exists under another account", a.Email)
		}
		return nil, "", contextutils.WrapError(err, "failed to create admin tester")
	}
	return admin, "Created admin tester account", nil
}

func tableCount(ctx context.Context, q database.Querier, table string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to count %s", table)
	}
	return n, nil
}

func (s *SeedService) seedBugs(ctx context.Context, tx *sql.Tx, fixture *SeedFixture, admin *models.Tester) (string, error) {
	n, err := tableCount(ctx, tx, "bug_reports")
	if err != nil || n > 0 {
		return fmt.Sprintf("Bug reports already exist (%d found)", n), err
	}

	for _, b := range fixture.Bugs {
		number, err := s.numbering.Next(ctx, tx, models.ReportKindBug)
		if err != nil {
			return "", err
		}
		resolvedAt := "NULL"
		if b.Resolved {
			resolvedAt = "NOW()"
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bug_reports (report_number, tester_id, title, category, severity, status,
				steps_to_reproduce, expected_behavior, actual_behavior, resolution, fixed_in_version, resolved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, `+resolvedAt+`)`,
			number, admin.ID, b.Title, b.Category, b.Severity, b.Status,
			nullIfEmpty(b.StepsToReproduce), nullIfEmpty(b.ExpectedBehavior), nullIfEmpty(b.ActualBehavior),
			nullIfEmpty(b.Resolution), nullIfEmpty(b.FixedInVersion))
		if err != nil {
			return "", contextutils.WrapErrorf(err, "failed to seed bug %s", number)
		}
	}
	return fmt.Sprintf("Seeded %d bug reports", len(fixture.Bugs)), nil
}

func (s *SeedService) seedFeatures(ctx context.Context, tx *sql.Tx, fixture *SeedFixture, admin *models.Tester) (string, error) {
	n, err := tableCount(ctx, tx, "feature_requests")
	if err != nil || n > 0 {
		return fmt.Sprintf("Feature requests already exist (%d found)", n), err
	}

	for _, f := range fixture.Features {
		number, err := s.numbering.Next(ctx, tx, models.ReportKindFeature)
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO feature_requests (request_number, tester_id, title, category, priority, status, description, use_case, vote_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			number, admin.ID, f.Title, f.Category, f.Priority, f.Status, f.Description, nullIfEmpty(f.UseCase), f.VoteCount)
		if err != nil {
			return "", contextutils.WrapErrorf(err, "failed to seed feature %s", number)
		}
	}
	return fmt.Sprintf("Seeded %d feature requests", len(fixture.Features)), nil
}

// findReport resolves a display number to a report reference; ok is false when no such report exists
func findReport(ctx context.Context, q database.Querier, number string) (ref models.ReportRef, ok bool, err error) {
	kind, _, err := ParseDisplayNumber(number)
	if err != nil {
		return models.ReportRef{}, false, err
	}
	query := `SELECT id FROM bug_reports WHERE report_number = $1`
	if kind == models.ReportKindFeature {
		query = `SELECT id FROM feature_requests WHERE request_number = $1`
	}
	var id int
	if err := q.QueryRowContext(ctx, query, strings.ToUpper(number)).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ReportRef{}, false, nil
		}
		return models.ReportRef{}, false, contextutils.WrapErrorf(err, "failed to look up %s", number)
	}
	return models.ReportRef{Kind: kind, ID: id}, true, nil
}

func (s *SeedService) seedComments(ctx context.Context, tx *sql.Tx, fixture *SeedFixture, admin *models.Tester) (string, error) {
	n, err := tableCount(ctx, tx, "comments")
	if err != nil || n > 0 {
		return fmt.Sprintf("Comments already exist (%d found)", n), err
	}

	author := &models.Principal{ExternalID: admin.ExternalID.String, IsAdmin: true, Tester: admin}
	seeded := 0
	for _, c := range fixture.Comments {
		ref, ok, err := findReport(ctx, tx, c.Report)
		if err != nil {
			return "", err
		}
		if !ok {
			s.logger.Warn(ctx, "Seed comment target missing", map[string]interface{}{"report": c.Report})
			continue
		}
		bugID, featureID := ref.Columns()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO comments (tester_id, bug_report_id, feature_request_id, author_name, is_admin, content)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			admin.ID, bugID, featureID, author.DisplayName(c.AsAdmin), c.AsAdmin, c.Content)
		if err != nil {
			return "", contextutils.WrapErrorf(err, "failed to seed comment on %s", c.Report)
		}
		seeded++
	}
	return fmt.Sprintf("Seeded %d comments", seeded), nil
}

func (s *SeedService) seedAnnouncements(ctx context.Context, tx *sql.Tx, fixture *SeedFixture, _ *models.Tester) (string, error) {
	n, err := tableCount(ctx, tx, "announcements")
	if err != nil || n > 0 {
		return fmt.Sprintf("Announcements already exist (%d found)", n), err
	}

	for _, a := range fixture.Announcements {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO announcements (title, content, type, version, is_pinned)
			VALUES ($1, $2, $3, $4, $5)`,
			a.Title, a.Content, a.Type, nullIfEmpty(a.Version), a.IsPinned)
		if err != nil {
			return "", contextutils.WrapErrorf(err, "failed to seed announcement %q", a.Title)
		}
	}
	return fmt.Sprintf("Seeded %d announcements", len(fixture.Announcements)), nil
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
