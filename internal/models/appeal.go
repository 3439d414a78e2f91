package models

import "time"

// AppealStatus tracks where an appeal sits in the review workflow.
type AppealStatus string

const (
	AppealStatusPending     AppealStatus = "pending"
	AppealStatusApproved    AppealStatus = "approved"
	AppealStatusDenied      AppealStatus = "denied"
	AppealStatusUnderReview AppealStatus = "under_review"
)

// Valid reports whether the status belongs to the workflow enumeration.
func (s AppealStatus) Valid() bool {
	switch s {
	case AppealStatusPending, AppealStatusApproved, AppealStatusDenied, AppealStatusUnderReview:
		return true
	}
	return false
}

// BanReason is the fixed category set players pick from when appealing.
type BanReason string

const (
	BanReasonHacking       BanReason = "hacking"
	BanReasonToxicity      BanReason = "toxicity"
	BanReasonScamming      BanReason = "scamming"
	BanReasonExploiting    BanReason = "exploiting"
	BanReasonAdvertising   BanReason = "advertising"
	BanReasonInappropriate BanReason = "inappropriate"
	BanReasonBanEvasion    BanReason = "ban-evasion"
	BanReasonOther         BanReason = "other"
)

// BanReasons lists every selectable category, in form display order.
var BanReasons = []BanReason{
	BanReasonHacking,
	BanReasonToxicity,
	BanReasonScamming,
	BanReasonExploiting,
	BanReasonAdvertising,
	BanReasonInappropriate,
	BanReasonBanEvasion,
	BanReasonOther,
}

// Appeal represents a persisted ban appeal row.
type Appeal struct {
	ID             string       `db:"id" json:"id"`
	Username       string       `db:"username" json:"username"`
	DiscordTag     string       `db:"discord_tag" json:"discord_tag"`
	Email          string       `db:"email" json:"email"`
	MinecraftUUID  *string      `db:"minecraft_uuid" json:"minecraft_uuid,omitempty"`
	BanReason      BanReason    `db:"ban_reason" json:"ban_reason"`
	AppealReason   string       `db:"appeal_reason" json:"appeal_reason"`
	AdditionalInfo *string      `db:"additional_info" json:"additional_info,omitempty"`
	Status         AppealStatus `db:"status" json:"status"`
	Response       *string      `db:"response" json:"response,omitempty"`
	HandledBy      *string      `db:"handled_by" json:"handled_by,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	HandledAt      *time.Time   `db:"handled_at" json:"handled_at,omitempty"`
	IPAddress      *string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string       `db:"user_agent" json:"user_agent"`
	WebhookSent    bool         `db:"webhook_sent" json:"webhook_sent"`
}

// AppealFilter narrows admin list queries. Zero values mean "no filter".
type AppealFilter struct {
	Username string
	Email    string
	Status   AppealStatus
	Days     int
}

// AppealStats aggregates counts by review outcome.
type AppealStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
