package admin

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/mailgram/internal/api"
	"github.com/pelusa-v/mailgram/internal/appctx"
)

const searchDebounce = 300 * time.Millisecond

// Backend is the slice of the HTTP API the admin panel uses.
type Backend interface {
	Page(ctx context.Context, path string) ([]byte, error)
	Stats(ctx context.Context) (map[string]int, error)
	BulkAction(ctx context.Context, action string, items []string) (api.BulkResult, error)
	Navigate(ctx context.Context, path string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Downloader hands an exported file to the user.
type Downloader interface {
	Download(filename string, data []byte) error
}

// StatsView displays named counters. SetStat reports false when nothing
// displays that counter.
type StatsView interface {
	SetStat(name string, value int) bool
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(ctl *Controller) {
		if r != nil {
			ctl.registry = r
		}
	}
}

func WithStatsView(v StatsView) Option {
	return func(ctl *Controller) { ctl.stats = v }
}

// Controller holds the admin tables currently loaded and applies sort,
// filter, export and bulk actions to them. Nothing here persists: a reload
// replaces every table with the server's rendering.
type Controller struct {
	app      *appctx.Context
	backend  Backend
	confirm  Confirmer
	download Downloader
	registry *Registry
	stats    StatsView
	clock    clock.Clock
	logger   zerolog.Logger

	mu          sync.Mutex
	current     string
	tables      map[string]*Table
	searchTimer *clock.Timer
	searchGen   uint64
}

func NewController(app *appctx.Context, backend Backend, confirm Confirmer, download Downloader, opts ...Option) (*Controller, error) {
	if app == nil {
		return nil, errors.New("admin: app context must not be nil")
	}
	if backend == nil {
		return nil, errors.New("admin: backend must not be nil")
	}
	if confirm == nil {
		return nil, errors.New("admin: confirmer must not be nil")
	}
	if download == nil {
		return nil, errors.New("admin: downloader must not be nil")
	}
	c := &Controller{
		app:      app,
		backend:  backend,
		confirm:  confirm,
		download: download,
		registry: DefaultRegistry(),
		clock:    clock.New(),
		logger:   zerolog.Nop(),
		tables:   map[string]*Table{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Registry() *Registry { return c.registry }

// Open loads the page of a declared table kind and makes it current.
func (c *Controller) Open(ctx context.Context, kind string) error {
	spec, err := c.registry.Lookup(kind)
	if err != nil {
		return err
	}
	page, err := c.backend.Page(ctx, spec.Path)
	if err != nil {
		c.notify(appctx.LevelError, fmt.Sprintf("Could not load %s", spec.Title))
		return errors.Wrapf(err, "admin: open %s", kind)
	}
	tables, err := ParseTables(bytes.NewReader(page))
	if err != nil {
		return err
	}

	var table *Table
	for _, t := range tables {
		if t.Kind == kind {
			table = t
			break
		}
	}
	if table == nil {
		return errors.Wrapf(ErrTableNotFound, "%q at %s", kind, spec.Path)
	}
	for _, key := range spec.Columns {
		if _, ok := table.ColumnIndex(key); !ok {
			c.logger.Warn().Str("table", kind).Str("column", key).Msg("declared column missing from page")
		}
	}

	c.mu.Lock()
	c.tables[kind] = table
	c.current = kind
	c.mu.Unlock()
	c.logger.Debug().Str("table", kind).Int("rows", len(table.Rows)).Msg("table loaded")
	return nil
}

// Reload re-fetches the current table.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	kind := c.current
	c.mu.Unlock()
	if kind == "" {
		return nil
	}
	return c.Open(ctx, kind)
}

// Table returns a copy of a loaded table.
func (c *Controller) Table(kind string) (*Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[kind]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (c *Controller) SortByColumn(kind, column string) (SortOrder, error) {
	spec, err := c.registry.Lookup(kind)
	if err != nil {
		return "", err
	}
	if !spec.HasColumn(column) {
		return "", errors.Wrapf(ErrUnknownColumn, "%s.%s", kind, column)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[kind]
	if !ok {
		return "", ErrTableNotFound
	}
	return t.SortByColumn(column)
}

func (c *Controller) FilterRows(kind, term string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[kind]
	if !ok {
		return ErrTableNotFound
	}
	t.FilterRows(term)
	return nil
}

// SearchInput applies term once input has been quiet for the debounce
// window. Each call supersedes the previous pending one.
func (c *Controller) SearchInput(kind, term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchGen++
	gen := c.searchGen
	c.searchTimer = c.clock.AfterFunc(searchDebounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.searchGen {
			return
		}
		c.searchTimer = nil
		if t, ok := c.tables[kind]; ok {
			t.FilterRows(term)
		}
	})
}

// Select checks or unchecks rows of a loaded table.
func (c *Controller) Select(kind string, selected bool, ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[kind]
	if !ok {
		return 0
	}
	return t.SetSelected(selected, ids...)
}

func (c *Controller) Selected(kind string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[kind]
	if !ok {
		return nil
	}
	return t.SelectedIDs()
}

// DispatchBulkAction applies action to ids on the server after the user
// confirms, then reloads the whole view.
func (c *Controller) DispatchBulkAction(ctx context.Context, action string, ids []string) error {
	if len(ids) == 0 {
		c.notify(appctx.LevelWarning, "Select at least one item")
		return ErrNoSelection
	}
	if !c.confirm.Confirm(fmt.Sprintf("Apply %q to %d item(s)?", action, len(ids))) {
		return ErrDeclined
	}

	res, err := c.backend.BulkAction(ctx, action, ids)
	if err != nil {
		c.notify(appctx.LevelError, "Bulk action failed")
		return errors.Wrapf(err, "admin: bulk %s", action)
	}
	if !res.Success {
		c.notify(appctx.LevelError, res.Message)
		return errors.Wrap(ErrRejected, res.Message)
	}
	c.notify(appctx.LevelSuccess, "Bulk action completed")
	return c.Reload(ctx)
}

// ExportTable writes the table of kind as CSV through the downloader and
// returns the file name used.
func (c *Controller) ExportTable(kind string) (string, error) {
	c.mu.Lock()
	t, ok := c.tables[kind]
	var data []byte
	if ok {
		data = ExportCSV(t)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Error().Str("table", kind).Msg("table not found for export")
		return "", ErrTableNotFound
	}

	name := ExportFilename(kind, c.clock.Now())
	if err := c.download.Download(name, data); err != nil {
		return "", errors.Wrapf(err, "admin: export %s", kind)
	}
	return name, nil
}

// LoadStats fetches the counters and pushes each to the stats view.
// Failures are logged only.
func (c *Controller) LoadStats(ctx context.Context) (map[string]int, error) {
	stats, err := c.backend.Stats(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("loading stats")
		return nil, errors.Wrap(err, "admin: stats")
	}
	if c.stats != nil {
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !c.stats.SetStat(k, stats[k]) {
				c.logger.Debug().Str("stat", k).Msg("no view for stat")
			}
		}
	}
	return stats, nil
}

func (c *Controller) ToggleUser(ctx context.Context, userID string, active bool) error {
	verb := "activate"
	if active {
		verb = "deactivate"
	}
	return c.navigate(ctx, fmt.Sprintf("Do you want to %s this user?", verb), api.ToggleUserPath(userID))
}

func (c *Controller) DeleteUser(ctx context.Context, userID, userName string) error {
	return c.navigate(ctx, fmt.Sprintf("Delete user %q? This cannot be undone.", userName), api.DeleteUserPath(userID))
}

func (c *Controller) HandleReport(ctx context.Context, reportID, action string) error {
	return c.navigate(ctx, fmt.Sprintf("Mark this report as %q?", action), api.HandleReportPath(reportID, action))
}

func (c *Controller) navigate(ctx context.Context, prompt, path string) error {
	if !c.confirm.Confirm(prompt) {
		return ErrDeclined
	}
	if err := c.backend.Navigate(ctx, path); err != nil {
		c.notify(appctx.LevelError, "Action failed")
		return errors.Wrapf(err, "admin: navigate %s", path)
	}
	return c.Reload(ctx)
}

func (c *Controller) notify(level appctx.Level, msg string) {
	c.app.Notifier.Notify(level, msg)
}
