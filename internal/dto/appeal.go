package dto

import "github.com/emeraldmc/appeals-api/internal/models"

// SubmitAppealRequest carries the player-facing appeal form payload.
// Field names match the original form fields; validation bounds mirror
// what the form enforced client-side.
type SubmitAppealRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=16,mc_username"`
	DiscordID      string `json:"discordId" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	MinecraftUUID  string `json:"minecraftUuid" validate:"omitempty,uuid"`
	BanReason      string `json:"banReason" validate:"required,ban_reason"`
	AppealReason   string `json:"appealReason" validate:"required,min=50,max=2000"`
	AdditionalInfo string `json:"additionalInfo" validate:"omitempty,max=2000"`
}

// UpdateStatusRequest carries an admin review decision. Response and
// HandledBy are partial: omitted fields leave stored values untouched.
type UpdateStatusRequest struct {
	Status    models.AppealStatus `json:"status" validate:"required"`
	Response  *string             `json:"response,omitempty"`
	HandledBy *string             `json:"handledBy,omitempty"`
}

// ExportRequest selects the rendering format for admin exports.
type ExportRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
