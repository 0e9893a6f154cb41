package api

import "github.com/joestump/group-blocks/internal/block"

// BlockResponse describes one registered block.
type BlockResponse struct {
	ID                string `json:"id"`
	AdminLabel        string `json:"admin_label"`
	Bundle            string `json:"bundle"`
	Label             string `json:"label"`
	PluginID          string `json:"plugin_id"`
	GroupPermission   string `json:"group_permission"`
	AccountPermission string `json:"account_permission"`
}

// BlockListResponse is the body of GET /api/v1/blocks.
type BlockListResponse struct {
	Blocks []BlockResponse `json:"blocks"`
}

// GroupBlocksResponse is the body of GET /api/v1/groups/{groupID}/blocks.
type GroupBlocksResponse struct {
	GroupID   string             `json:"group_id"`
	GroupType string             `json:"group_type"`
	Fragments []block.Fragment   `json:"fragments"`
	Decisions []DecisionResponse `json:"decisions"`
}

// DecisionResponse reports the access result of one block.
type DecisionResponse struct {
	BlockID string `json:"block_id"`
	Result  string `json:"result"`
}

func toBlockResponse(b *block.Block) BlockResponse {
	return BlockResponse{
		ID:                b.ID(),
		AdminLabel:        b.Type.AdminLabel(),
		Bundle:            b.Type.Bundle,
		Label:             b.Type.Label,
		PluginID:          b.Type.PluginID(),
		GroupPermission:   b.Type.GroupPermission(),
		AccountPermission: b.Type.AccountPermission(),
	}
}
