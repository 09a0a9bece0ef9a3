// Package audit reads the audit trail written by the access service.
package audit

import (
	"context"
	"fmt"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// ExportLimit caps the rows a single export may return.
	ExportLimit = 10000
)

// Repository loads audit rows, newest first.
type Repository interface {
	Timeline(ctx context.Context, window Window) ([]TimelineRow, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService constructs a timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the trail. One extra row is requested to learn
// whether another page follows.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	filters.Page, filters.PageSize = page, pageSize

	rows, err := s.repo.Timeline(ctx, Window{Filters: filters, Offset: (page - 1) * pageSize, Limit: pageSize + 1})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching row up to ExportLimit.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Timeline(ctx, Window{Filters: filters, Limit: ExportLimit})
}
