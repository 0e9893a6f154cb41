// Package groupview resolves the group in context for a request and runs the
// registered blocks against it. Both the HTML handlers and the JSON API use it.
package groupview

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/message"

	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/metrics"
	"github.com/joestump/group-blocks/internal/store"
)

var (
	// ErrUnknownPlugin is returned for a plugin id no block creates.
	ErrUnknownPlugin = errors.New("unknown group content plugin")

	// ErrForbidden is returned when the block gate forbids the viewer.
	ErrForbidden = errors.New("forbidden")
)

// View is the outcome of running every block for one viewer in one group.
type View struct {
	Group     *store.Group
	Decisions []block.Decision
	Fragments []block.Fragment
}

// CacheFragments returns the visible fragments plus the page's own
// dependency on the group, for SetCacheHeaders.
func (v *View) CacheFragments() []block.Fragment {
	page := block.Fragment{
		CacheContexts: []string{block.CacheContextURLPath},
		CacheTags:     []string{block.GroupCacheTag(v.Group.ID)},
	}
	return append([]block.Fragment{page}, v.Fragments...)
}

// Service loads groups and settings and evaluates blocks.
type Service struct {
	registry *block.Registry
	groups   *store.GroupStore
	settings *store.SettingsStore
	logger   *zap.Logger
}

func NewService(r *block.Registry, gs *store.GroupStore, ss *store.SettingsStore, logger *zap.Logger) *Service {
	return &Service{registry: r, groups: gs, settings: ss, logger: logger}
}

// Registry returns the configured blocks.
func (s *Service) Registry() *block.Registry { return s.registry }

// ForGroup evaluates every block for viewer in groupID. It returns
// store.ErrNotFound when the group does not exist.
func (s *Service) ForGroup(ctx context.Context, viewer block.Account, groupID string, p *message.Printer) (*View, error) {
	group, err := s.groups.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	decisions := s.registry.Assemble(viewer, group, settings, p)
	metrics.ObserveDecisions(decisions)
	for _, d := range decisions {
		if d.Err != nil {
			s.logger.Error("render block", zap.String("block", d.BlockID), zap.String("group_id", group.ID), zap.Error(d.Err))
			continue
		}
		s.logger.Debug("block decision",
			zap.String("block", d.BlockID),
			zap.String("group_id", group.ID),
			zap.String("account_id", accountID(viewer)),
			zap.String("result", d.Result.String()))
	}

	return &View{Group: group, Decisions: decisions, Fragments: block.Visible(decisions)}, nil
}

// Authorize resolves the group and the block creating pluginID and checks the
// block gate for viewer. Errors are store.ErrNotFound, ErrUnknownPlugin or
// ErrForbidden.
func (s *Service) Authorize(ctx context.Context, viewer block.Account, groupID, pluginID string) (*store.Group, *block.Block, error) {
	b, ok := s.registry.ByPluginID(pluginID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, pluginID)
	}
	group, err := s.groups.Load(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	result := b.WithConfig(settings).Access(viewer, group)
	metrics.BlockDecisionsTotal.WithLabelValues(b.ID(), result.String()).Inc()
	if !result.IsAllowed() {
		s.logger.Info("create denied",
			zap.String("block", b.ID()),
			zap.String("group_id", group.ID),
			zap.String("account_id", accountID(viewer)))
		return group, b, ErrForbidden
	}
	return group, b, nil
}

func accountID(a block.Account) string {
	if a == nil {
		return ""
	}
	return a.AccountID()
}
