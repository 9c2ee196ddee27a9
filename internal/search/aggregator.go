// Package search merges substring matches across leads, opportunities and
// contacts into one ordered, paginated result set.
package search

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/flipdesk/internal/metrics"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/store"
)

// Result item types, in result order.
const (
	TypeLead        = "lead"
	TypeOpportunity = "opportunity"
	TypeContact     = "contact"
)

// Default paging limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store is the record-store surface the aggregator needs.
type Store interface {
	SearchLeads(ctx context.Context, q string, p store.Page) ([]models.Lead, error)
	SearchProperties(ctx context.Context, q string, p store.Page) ([]models.Property, error)
	SearchContacts(ctx context.Context, q string, p store.Page) ([]models.Contact, error)
	CountLeadsMatching(ctx context.Context, q string) (int, error)
	CountPropertiesMatching(ctx context.Context, q string) (int, error)
	CountContactsMatching(ctx context.Context, q string) (int, error)
}

// Query is one search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Item is one search hit.
type Item struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Path     string `json:"path"`
}

// Counts holds match totals, independent of paging.
type Counts struct {
	Total         int `json:"total"`
	Leads         int `json:"leads"`
	Opportunities int `json:"opportunities"`
	Contacts      int `json:"contacts"`
}

// Result is one page of hits plus the totals.
type Result struct {
	Items  []Item `json:"results"`
	Counts Counts `json:"counts"`
}

// Aggregator runs cross-entity searches.
type Aggregator struct {
	store        Store
	defaultLimit int
	maxLimit     int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLimits overrides the default and maximum page sizes.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(a *Aggregator) {
		if maxLimit > 0 {
			a.maxLimit = maxLimit
		}
		if defaultLimit > 0 {
			a.defaultLimit = defaultLimit
		}
	}
}

// New creates an Aggregator over s.
func New(s Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: s, defaultLimit: DefaultLimit, maxLimit: MaxLimit}
	for _, opt := range opts {
		opt(a)
	}
	if a.defaultLimit > a.maxLimit {
		a.defaultLimit = a.maxLimit
	}
	return a
}

// segment is one entity type's slice of the combined ordering.
type segment struct {
	count int
	fetch func(ctx context.Context, p store.Page) ([]Item, error)
}

// Search returns the page of q's matches selected by limit and offset over
// the combined ordering leads, opportunities, contacts (each by id). A
// blank query returns no items without touching the store. Any failing
// entity query fails the whole search.
func (a *Aggregator) Search(ctx context.Context, q Query) (Result, error) {
	res := Result{Items: []Item{}}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return res, nil
	}
	limit, offset := a.normalize(q.Limit, q.Offset)

	counts, err := a.count(ctx, text)
	if err != nil {
		metrics.SearchQueries.WithLabelValues("error").Inc()
		return Result{}, err
	}
	res.Counts = counts

	segments := []segment{
		{count: counts.Leads, fetch: a.leads(text)},
		{count: counts.Opportunities, fetch: a.properties(text)},
		{count: counts.Contacts, fetch: a.contacts(text)},
	}

	pages := make([][]Item, len(segments))
	g, gCtx := errgroup.WithContext(ctx)
	start := 0
	for i, seg := range segments {
		p, ok := window(start, seg.count, offset, limit)
		start += seg.count
		if !ok {
			continue
		}
		g.Go(func() error {
			items, err := seg.fetch(gCtx, p)
			if err != nil {
				return err
			}
			pages[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.SearchQueries.WithLabelValues("error").Inc()
		return Result{}, err
	}

	for _, items := range pages {
		res.Items = append(res.Items, items...)
	}
	metrics.SearchQueries.WithLabelValues("ok").Inc()
	return res, nil
}

func (a *Aggregator) normalize(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = a.defaultLimit
	}
	if limit > a.maxLimit {
		limit = a.maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (a *Aggregator) count(ctx context.Context, text string) (Counts, error) {
	var c Counts
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Leads, err = a.store.CountLeadsMatching(gCtx, text)
		return wrap("count leads", err)
	})
	g.Go(func() (err error) {
		c.Opportunities, err = a.store.CountPropertiesMatching(gCtx, text)
		return wrap("count opportunities", err)
	})
	g.Go(func() (err error) {
		c.Contacts, err = a.store.CountContactsMatching(gCtx, text)
		return wrap("count contacts", err)
	})
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	c.Total = c.Leads + c.Opportunities + c.Contacts
	return c, nil
}

// window intersects the segment [start, start+count) with the requested
// page [offset, offset+limit) and returns the segment-local page.
func window(start, count, offset, limit int) (store.Page, bool) {
	lo := max(offset, start)
	hi := min(offset+limit, start+count)
	if lo >= hi {
		return store.Page{}, false
	}
	return store.Page{Limit: hi - lo, Offset: lo - start}, true
}

func (a *Aggregator) leads(text string) func(context.Context, store.Page) ([]Item, error) {
	return func(ctx context.Context, p store.Page) ([]Item, error) {
		rows, err := a.store.SearchLeads(ctx, text, p)
		if err != nil {
			return nil, wrap("search leads", err)
		}
		items := make([]Item, 0, len(rows))
		for _, l := range rows {
			items = append(items, LeadItem(l))
		}
		return items, nil
	}
}

func (a *Aggregator) properties(text string) func(context.Context, store.Page) ([]Item, error) {
	return func(ctx context.Context, p store.Page) ([]Item, error) {
		rows, err := a.store.SearchProperties(ctx, text, p)
		if err != nil {
			return nil, wrap("search opportunities", err)
		}
		items := make([]Item, 0, len(rows))
		for _, prop := range rows {
			items = append(items, PropertyItem(prop))
		}
		return items, nil
	}
}

func (a *Aggregator) contacts(text string) func(context.Context, store.Page) ([]Item, error) {
	return func(ctx context.Context, p store.Page) ([]Item, error) {
		rows, err := a.store.SearchContacts(ctx, text, p)
		if err != nil {
			return nil, wrap("search contacts", err)
		}
		items := make([]Item, 0, len(rows))
		for _, c := range rows {
			items = append(items, ContactItem(c))
		}
		return items, nil
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("search: %s: %w", op, err)
}
