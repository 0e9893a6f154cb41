package block

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/message"
)

// ErrDuplicateBlock is returned when two blocks share an id.
var ErrDuplicateBlock = errors.New("duplicate block id")

// Block pairs the access gate and the link renderer for one content type.
type Block struct {
	Type     ContentType
	Gate     AccessGate
	Renderer LinkRenderer
}

// New builds a block for ct using cfg for the visibility setting and routes for
// the link URL.
func New(ct ContentType, cfg SiteConfig, routes RouteBuilder) *Block {
	return &Block{
		Type:     ct,
		Gate:     AccessGate{Type: ct, Config: cfg},
		Renderer: LinkRenderer{Type: ct, Routes: routes},
	}
}

// ID returns the block plugin id.
func (b *Block) ID() string { return b.Type.BlockID() }

// Access evaluates the gate.
func (b *Block) Access(account Account, group Group) Result {
	return b.Gate.Evaluate(account, group)
}

// Build renders the link fragment.
func (b *Block) Build(group Group, p *message.Printer) (Fragment, error) {
	return b.Renderer.Render(group, p)
}

// WithConfig returns a copy of b whose gate reads cfg. Hosts call this per
// request with the current site settings.
func (b *Block) WithConfig(cfg SiteConfig) *Block {
	c := *b
	c.Gate.Config = cfg
	return &c
}

// Registry holds the configured blocks. It is not safe to Register
// concurrently with reads; build it once at startup.
type Registry struct {
	byID     map[string]*Block
	byPlugin map[string]*Block
}

// NewRegistry builds blocks for every content type.
func NewRegistry(types []ContentType, cfg SiteConfig, routes RouteBuilder) (*Registry, error) {
	r := &Registry{byID: map[string]*Block{}, byPlugin: map[string]*Block{}}
	for _, ct := range types {
		if err := ct.Validate(); err != nil {
			return nil, err
		}
		if err := r.Register(New(ct, cfg, routes)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds b, failing with ErrDuplicateBlock if its id is taken.
func (r *Registry) Register(b *Block) error {
	if _, ok := r.byID[b.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, b.ID())
	}
	r.byID[b.ID()] = b
	r.byPlugin[b.Type.PluginID()] = b
	return nil
}

// Get returns the block with the given id.
func (r *Registry) Get(id string) (*Block, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// ByPluginID returns the block that creates content for pluginID.
func (r *Registry) ByPluginID(pluginID string) (*Block, bool) {
	b, ok := r.byPlugin[pluginID]
	return b, ok
}

// List returns all blocks sorted by id.
func (r *Registry) List() []*Block {
	out := make([]*Block, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Decision records the outcome of one block for one request.
type Decision struct {
	BlockID  string
	Result   Result
	Fragment Fragment
	Err      error
}

// Assemble evaluates every block for account in group and renders the allowed
// ones. cfg overrides each block's configured SiteConfig when non-nil.
func (r *Registry) Assemble(account Account, group Group, cfg SiteConfig, p *message.Printer) []Decision {
	blocks := r.List()
	out := make([]Decision, 0, len(blocks))
	for _, b := range blocks {
		if cfg != nil {
			b = b.WithConfig(cfg)
		}
		d := Decision{BlockID: b.ID(), Result: b.Access(account, group)}
		if d.Result.IsAllowed() {
			d.Fragment, d.Err = b.Build(group, p)
		}
		out = append(out, d)
	}
	return out
}

// Visible returns the non-empty fragments among decisions.
func Visible(decisions []Decision) []Fragment {
	var out []Fragment
	for _, d := range decisions {
		if d.Result.IsAllowed() && d.Err == nil && !d.Fragment.IsEmpty() {
			out = append(out, d.Fragment)
		}
	}
	return out
}

// CacheMetadata merges the cache contexts and tags of fragments, keeping the
// first-seen order.
func CacheMetadata(fragments []Fragment) (contexts, tags []string) {
	seen := map[string]bool{}
	for _, f := range fragments {
		for _, c := range f.CacheContexts {
			if !seen["c:"+c] {
				seen["c:"+c] = true
				contexts = append(contexts, c)
			}
		}
		for _, t := range f.CacheTags {
			if !seen["t:"+t] {
				seen["t:"+t] = true
				tags = append(tags, t)
			}
		}
	}
	return contexts, tags
}
