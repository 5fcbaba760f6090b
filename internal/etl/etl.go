// Package etl loads one Ramp resource into the store: it checks scopes and
// filters, pages through the endpoint and inserts every page as it arrives.
package etl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/normalize"
	"github.com/ramp/ramp-mcp-server/internal/ramp"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/store"
)

// State is the step a load is in.
type State int

const (
	Authorizing State = iota
	Paging
	Normalizing
	Inserting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Authorizing:
		return "authorizing"
	case Paging:
		return "paging"
	case Normalizing:
		return "normalizing"
	case Inserting:
		return "inserting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ScopeDeniedError is returned before any request when the session lacks a
// scope the resource needs.
type ScopeDeniedError struct {
	Resource string
	Missing  []string
}

func (e *ScopeDeniedError) Error() string {
	return fmt.Sprintf("%s requires scope %s, which was not granted", e.Resource, strings.Join(e.Missing, ", "))
}

// LoadError reports where a load stopped. Rows inserted before the failure
// stay in the table.
type LoadError struct {
	Resource string
	Page     int
	State    State
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s failed while %s page %d: %v", e.Resource, e.State, e.Page, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Pager is the part of ramp.Client the orchestrator needs.
type Pager interface {
	Paginate(ctx context.Context, path string, params url.Values, fn func(index int, p ramp.Page) error) error
}

// Result summarizes a finished load.
type Result struct {
	LoadID   string        `json:"load_id"`
	Resource string        `json:"resource"`
	Table    string        `json:"table"`
	Rows     int           `json:"rows"`
	Pages    int           `json:"pages"`
	Columns  []string      `json:"columns"`
	Duration time.Duration `json:"-"`
	Took     string        `json:"took"`
}

// Orchestrator runs loads against one store. Loads are not run concurrently
// by the callers, but the store serializes them anyway.
type Orchestrator struct {
	pager   Pager
	store   *store.Store
	granted map[string]bool
	lg      *logrus.Entry
}

// New creates an orchestrator that may load resources covered by scopes.
func New(pager Pager, st *store.Store, scopes []string, lg *logrus.Entry) *Orchestrator {
	if lg == nil {
		lg = logging.Discard()
	}
	granted := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		granted[s] = true
	}
	return &Orchestrator{pager: pager, store: st, granted: granted, lg: lg}
}

// Load replaces the table of the named resource with a fresh copy from Ramp.
// columns, if given, restricts the table to a subset of the schema.
func (o *Orchestrator) Load(ctx context.Context, name string, filters map[string]any, columns []string) (Result, error) {
	desc, err := resource.Lookup(name)
	if err != nil {
		return Result{}, err
	}
	if missing := desc.Missing(o.granted); len(missing) > 0 {
		return Result{}, &ScopeDeniedError{Resource: desc.Name, Missing: missing}
	}
	path, params, err := Params(desc, filters)
	if err != nil {
		return Result{}, err
	}
	projected, err := desc.Project(columns)
	if err != nil {
		return Result{}, &FilterError{Resource: desc.Name, Filter: "columns", Reason: err.Error()}
	}
	desc = projected

	start := time.Now()
	res := Result{
		LoadID:   uuid.NewString(),
		Resource: desc.Name,
		Table:    desc.Table(),
		Columns:  desc.ColumnNames(),
	}
	lg := o.lg.WithFields(logrus.Fields{"resource": desc.Name, "load_id": res.LoadID})
	lg.WithField("params", params.Encode()).Info("load started")

	state, page := Authorizing, 0
	fail := func(err error) (Result, error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			lg.WithError(err).Warn("load cancelled")
		} else {
			lg.WithError(err).WithFields(logrus.Fields{"state": state.String(), "page": page}).Error("load failed")
		}
		o.store.MarkFailed(res.Table, err)
		return res, &LoadError{Resource: desc.Name, Page: page, State: state, Err: err}
	}

	if err := o.store.CreateOrReplaceTable(ctx, desc, res.LoadID); err != nil {
		return fail(err)
	}

	state = Paging
	err = o.pager.Paginate(ctx, path, params, func(i int, p ramp.Page) error {
		page = i
		state = Normalizing
		rows, err := normalize.Page(desc, p.Records)
		if err != nil {
			return err
		}
		state = Inserting
		batch := make([][]any, len(rows))
		for j, r := range rows {
			batch[j] = r
		}
		n, err := o.store.InsertRows(ctx, res.Table, batch)
		if err != nil {
			return err
		}
		res.Rows += n
		res.Pages++
		lg.WithFields(logrus.Fields{"page": i, "rows": n}).Debug("page loaded")
		state, page = Paging, i+1
		return nil
	})
	if err != nil {
		return fail(err)
	}

	o.store.MarkComplete(res.Table)
	res.Duration = time.Since(start)
	res.Took = res.Duration.Round(time.Millisecond).String()
	lg.WithFields(logrus.Fields{"rows": res.Rows, "pages": res.Pages}).
		Infof("loaded %s rows into %s in %s", humanize.Comma(int64(res.Rows)), res.Table, res.Took)
	return res, nil
}

// Clear drops the table of a resource. It reports whether there was one.
func (o *Orchestrator) Clear(ctx context.Context, name string) (bool, error) {
	desc, err := resource.Lookup(name)
	if err != nil {
		return false, err
	}
	return o.store.DropTable(ctx, desc.Table())
}

// Granted reports whether the session may load the resource.
func (o *Orchestrator) Granted(desc resource.Descriptor) bool {
	return desc.Granted(o.granted)
}
