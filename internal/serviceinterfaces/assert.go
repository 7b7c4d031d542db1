package serviceinterfaces

import "betaportal/internal/services"

var (
	_ TesterService       = (*services.TesterService)(nil)
	_ BugService          = (*services.BugService)(nil)
	_ FeatureService      = (*services.FeatureService)(nil)
	_ VoteService         = (*services.VoteService)(nil)
	_ CommentService      = (*services.CommentService)(nil)
	_ AttachmentService   = (*services.AttachmentService)(nil)
	_ TrackerService      = (*services.TrackerService)(nil)
	_ AnnouncementService = (*services.AnnouncementService)(nil)
	_ DashboardService    = (*services.DashboardService)(nil)
	_ StatusService       = (*services.StatusService)(nil)
	_ TriageService       = (*services.TriageService)(nil)
	_ AnalyticsService    = (*services.AnalyticsService)(nil)
	_ SeedService         = (*services.SeedService)(nil)
	_ AdminPolicy         = (*services.AccessPolicy)(nil)
)
