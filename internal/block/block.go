// Package block implements the group "Add X" call-to-action blocks: an access
// gate that decides whether a viewer may see the block inside a group, and a
// renderer that produces the link fragment.
//
// Everything here is a pure function of its inputs. The host resolves the
// group and the account per request and passes them in explicitly.
package block

import "fmt"

const (
	// PublicGroupType is the group type whose creation actions can be hidden
	// site-wide through the public visibility setting.
	PublicGroupType = "public_group"

	// DisablePublicVisibilityKey is the site setting that hides creation
	// actions in public groups when set to 1.
	DisablePublicVisibilityKey = "entity_access_by_field.disable_public_visibility"

	// OverridePublicVisibilityPermission lets an account bypass the
	// public visibility restriction.
	OverridePublicVisibilityPermission = "override disabled public visibility"

	// RouteContentCreateForm names the group content creation route.
	RouteContentCreateForm = "entity.group_content.create_form"

	// CacheContextURLPath marks a fragment as varying by request path.
	CacheContextURLPath = "url.path"
)

// LinkClasses are the presentation classes applied to every add link.
var LinkClasses = []string{"btn", "btn-primary", "btn-raised", "waves-effect", "brand-bg-primary"}

// Account is the viewer a decision is made for.
type Account interface {
	// AccountID returns "" for anonymous viewers.
	AccountID() string
	HasPermission(permission string) bool
}

// Group is the group in context.
type Group interface {
	GroupID() string
	GroupType() string
	HasPermission(permission string, account Account) bool
}

// SiteConfig is a read-only view of site-wide settings.
type SiteConfig interface {
	Get(key string) (string, bool)
}

// ContentType describes the node bundle a block creates.
type ContentType struct {
	Bundle string `mapstructure:"bundle" yaml:"bundle" json:"bundle"`
	Label  string `mapstructure:"label" yaml:"label" json:"label"`
}

// Food and Menu are the content types shipped by default.
var (
	Food = ContentType{Bundle: "food", Label: "Add Food"}
	Menu = ContentType{Bundle: "menu", Label: "Add Menu"}
)

// DefaultContentTypes returns the blocks registered when none are configured.
func DefaultContentTypes() []ContentType {
	return []ContentType{Food, Menu}
}

// BlockID returns the block plugin id, e.g. "group_add_food_block".
func (c ContentType) BlockID() string {
	return fmt.Sprintf("group_add_%s_block", c.Bundle)
}

// AdminLabel returns the human label shown in block administration.
func (c ContentType) AdminLabel() string {
	return fmt.Sprintf("Group add %s block", c.Bundle)
}

// PluginID returns the group content plugin id, e.g. "group_node:food".
func (c ContentType) PluginID() string {
	return "group_node:" + c.Bundle
}

// GroupPermission is the permission the group must grant the account.
func (c ContentType) GroupPermission() string {
	return fmt.Sprintf("create %s entity", c.PluginID())
}

// AccountPermission is the site-wide permission the account must hold.
func (c ContentType) AccountPermission() string {
	return fmt.Sprintf("create %s content", c.Bundle)
}

// Validate reports whether the content type can be turned into a block.
func (c ContentType) Validate() error {
	if c.Bundle == "" {
		return fmt.Errorf("content type: bundle is required")
	}
	for _, r := range c.Bundle {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return fmt.Errorf("content type %q: bundle must be lowercase letters, digits or underscores", c.Bundle)
		}
	}
	if c.Label == "" {
		return fmt.Errorf("content type %q: label is required", c.Bundle)
	}
	return nil
}
