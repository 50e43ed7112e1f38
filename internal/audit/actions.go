package audit

// Action names written by the newsletter pipeline.
const (
	ActionIssueCreate         = "api.newsletter.issue.create"
	ActionIssueUpdate         = "api.newsletter.issue.update"
	ActionIssueAttachReport   = "api.newsletter.issue.attach_field_report"
	ActionIssueAttachItem     = "api.newsletter.issue.attach_ingested_item"
	ActionIssueResearch       = "api.newsletter.issue.research_sources"
	ActionIssueReview         = "api.newsletter.issue.review"
	ActionIssuePublish        = "api.newsletter.issue.publish"
	ActionSendSchedule        = "api.newsletter.send.schedule"
	ActionSendDispatch        = "api.newsletter.send.dispatch"
	ActionSendCancel          = "api.newsletter.send.cancel"
	ActionSubscriberSubscribe = "api.newsletter.subscriber.subscribe"
	ActionSubscriberLeave     = "api.newsletter.subscriber.unsubscribe"

	TargetIssue      = "newsletter_issue"
	TargetSendRun    = "newsletter_send_run"
	TargetSubscriber = "newsletter_subscriber"
)
