package dto

import emaildomain "mailiq-backend/internal/email/domain"

// SyncResponse mirrors the outcome of one full sync pass. Counts only; the
// ids of individually failed items are visible in logs, not here.
type SyncResponse struct {
	Message         string `json:"message"`
	Synced          int    `json:"synced"`
	Skipped         int    `json:"skipped"`
	Errors          int    `json:"errors"`
	Deleted         int64  `json:"deleted"`
	TotalInGmail    int    `json:"totalInGmail"`
	TotalInDatabase int64  `json:"totalInDatabase"`
}

type EmailsResponse struct {
	Emails      []*emaildomain.Email `json:"emails"`
	TotalPages  int64                `json:"totalPages"`
	CurrentPage int                  `json:"currentPage"`
	Total       int64                `json:"total"`
}

type DomainStat struct {
	Domain          string `json:"domain"`
	EmailCount      int    `json:"emailCount"`
	UniqueFromCount int    `json:"uniqueFromCount"`
}

type DomainStatsResponse struct {
	Domains []DomainStat `json:"domains"`
	Total   int          `json:"total"`
}

type FromStat struct {
	From  string `json:"from"`
	Count int    `json:"count"`
}

type FromsResponse struct {
	Froms  []FromStat `json:"froms"`
	Domain string     `json:"domain"`
	Total  int        `json:"total"`
}

type EmailsByFromResponse struct {
	Emails []*emaildomain.Email `json:"emails"`
	From   string               `json:"from"`
	Total  int                  `json:"total"`
}

type DeleteByFromResponse struct {
	Message        string   `json:"message"`
	Deleted        int64    `json:"deleted"`
	From           string   `json:"from"`
	GmailDeleted   int      `json:"gmailDeleted"`
	TotalGmailIDs  int      `json:"totalGmailIds"`
	RequiresReauth bool     `json:"requiresReauth,omitempty"`
	Warning        string   `json:"warning,omitempty"`
	GmailErrors    []string `json:"gmailErrors,omitempty"`
}
