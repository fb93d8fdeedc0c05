package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dori/tempo/internal/model"
)

// ListQuery filters GET /timesheets
type ListQuery struct {
	Page       int
	Limit      int
	Search     string
	Employee   string
	Department string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Employee != "" {
		v.Set("employee", q.Employee)
	}
	if q.Department != "" {
		v.Set("department", q.Department)
	}
	return v
}

// Page is one page of timesheet entries
type Page struct {
	Items      []model.TimeLogEntry
	TotalPages int
	Total      int
}

// ListTimesheets fetches one page of entries.
// TotalPages is derived from Total and the limit when the backend only
// reports a count, and is at least 1.
func (c *Client) ListTimesheets(ctx context.Context, q ListQuery) (*Page, error) {
	data, err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/timesheets",
		path:   "/timesheets",
		query:  q.values(),
	})
	if err != nil {
		return nil, err
	}

	list, err := decodeList[model.TimeLogEntry](data, "timesheets")
	if err != nil {
		return nil, err
	}

	page := &Page{Items: list.Items, TotalPages: list.TotalPages, Total: list.Total}
	if page.TotalPages == 0 && page.Total > 0 && q.Limit > 0 {
		page.TotalPages = (page.Total + q.Limit - 1) / q.Limit
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return page, nil
}

// CreateTimesheet posts a new entry and returns the saved record, or nil if
// the backend answered without a body
func (c *Client) CreateTimesheet(ctx context.Context, in model.EntryInput) (*model.TimeLogEntry, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/timesheets",
		path:   "/timesheets",
		body:   in,
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[model.TimeLogEntry](data, "timesheet")
}

// UpdateTimesheet replaces an entry
func (c *Client) UpdateTimesheet(ctx context.Context, id string, in model.EntryInput) (*model.TimeLogEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("update timesheet: empty id")
	}
	data, err := c.do(ctx, request{
		method: http.MethodPut,
		route:  "/timesheets/{id}",
		path:   "/timesheets/" + url.PathEscape(id),
		body:   in,
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[model.TimeLogEntry](data, "timesheet")
}

// DeleteTimesheet removes an entry
func (c *Client) DeleteTimesheet(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete timesheet: empty id")
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  "/timesheets/{id}",
		path:   "/timesheets/" + url.PathEscape(id),
	})
	return err
}

// SeedWeek asks the backend to create the week's logs and returns them
func (c *Client) SeedWeek(ctx context.Context, weekStart string) ([]model.TimeLogEntry, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/timesheets/weekly",
		path:   "/timesheets/weekly",
		body:   map[string]string{"weekStart": weekStart},
	})
	if err != nil {
		return nil, err
	}

	resp, err := decodeOptional[struct {
		CreatedLogs []model.TimeLogEntry `json:"createdLogs"`
	}](data, "weekly logs")
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.CreatedLogs, nil
}
