package api

import (
	"context"
	"io"

	"ttm/internal/ledger"
	"ttm/internal/report"
	"ttm/internal/status"
	"ttm/internal/timer"
	"ttm/internal/tracker"
)

// Backend is the operation surface shared by Local and Client.
type Backend interface {
	Status(ctx context.Context) (status.Snapshot, error)

	Projects(ctx context.Context, includeArchived bool) ([]tracker.ProjectSummary, error)
	AddProject(ctx context.Context, name, color string) (ledger.Project, error)
	RenameProject(ctx context.Context, ref, name string) (ledger.Project, error)
	SetColor(ctx context.Context, ref, color string) (ledger.Project, error)
	SetArchived(ctx context.Context, ref string, archived bool) (ledger.Project, error)
	DeleteProject(ctx context.Context, ref string) (ledger.Project, error)
	ResetProject(ctx context.Context, ref string) (int64, error)

	Running(ctx context.Context) ([]ledger.TimeEntry, error)
	Start(ctx context.Context, ref string) (timer.Transition, error)
	Stop(ctx context.Context, ref string) (timer.Transition, error)
	Toggle(ctx context.Context, ref string) (timer.Transition, error)
	ToggleSlot(ctx context.Context, index int) (timer.Transition, error)
	StopAll(ctx context.Context) ([]ledger.TimeEntry, error)

	Today(ctx context.Context) (tracker.TodaySummary, error)
	History(ctx context.Context, days int) (tracker.HistoryResult, error)
	Export(ctx context.Context, w io.Writer, format report.Format) error
	ResetAll(ctx context.Context) error
}

// Local serves Backend from an in-process tracker.Service.
type Local struct {
	svc *tracker.Service
}

var _ Backend = (*Local)(nil)

// NewLocal wraps svc.
func NewLocal(svc *tracker.Service) *Local {
	return &Local{svc: svc}
}

// Service returns the wrapped tracker service.
func (l *Local) Service() *tracker.Service {
	return l.svc
}

func (l *Local) Status(ctx context.Context) (status.Snapshot, error) {
	return l.svc.Status(ctx)
}

func (l *Local) Projects(ctx context.Context, includeArchived bool) ([]tracker.ProjectSummary, error) {
	return l.svc.Projects(ctx, includeArchived)
}

func (l *Local) AddProject(ctx context.Context, name, color string) (ledger.Project, error) {
	return l.svc.AddProject(ctx, name, color)
}

func (l *Local) RenameProject(ctx context.Context, ref, name string) (ledger.Project, error) {
	return l.svc.RenameProject(ctx, ref, name)
}

func (l *Local) SetColor(ctx context.Context, ref, color string) (ledger.Project, error) {
	return l.svc.SetColor(ctx, ref, color)
}

func (l *Local) SetArchived(ctx context.Context, ref string, archived bool) (ledger.Project, error) {
	return l.svc.SetArchived(ctx, ref, archived)
}

func (l *Local) DeleteProject(ctx context.Context, ref string) (ledger.Project, error) {
	return l.svc.DeleteProject(ctx, ref)
}

func (l *Local) ResetProject(ctx context.Context, ref string) (int64, error) {
	return l.svc.ResetProject(ctx, ref)
}

func (l *Local) Running(context.Context) ([]ledger.TimeEntry, error) {
	return l.svc.Running(), nil
}

func (l *Local) Start(ctx context.Context, ref string) (timer.Transition, error) {
	return l.svc.Start(ctx, ref)
}

func (l *Local) Stop(ctx context.Context, ref string) (timer.Transition, error) {
	return l.svc.Stop(ctx, ref)
}

func (l *Local) Toggle(ctx context.Context, ref string) (timer.Transition, error) {
	return l.svc.Toggle(ctx, ref)
}

func (l *Local) ToggleSlot(ctx context.Context, index int) (timer.Transition, error) {
	return l.svc.ToggleSlot(ctx, index)
}

func (l *Local) StopAll(ctx context.Context) ([]ledger.TimeEntry, error) {
	return l.svc.StopAll(ctx)
}

func (l *Local) Today(ctx context.Context) (tracker.TodaySummary, error) {
	return l.svc.Today(ctx)
}

func (l *Local) History(ctx context.Context, days int) (tracker.HistoryResult, error) {
	return l.svc.History(ctx, days)
}

func (l *Local) Export(ctx context.Context, w io.Writer, format report.Format) error {
	return l.svc.Export(ctx, w, format)
}

func (l *Local) ResetAll(ctx context.Context) error {
	return l.svc.ResetAll(ctx)
}
