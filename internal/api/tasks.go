package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dori/tempo/internal/model"
)

// TaskQuery filters GET /tasks
type TaskQuery struct {
	Project string
	Search  string
}

// TaskPatch is a partial task update; nil fields are left untouched
type TaskPatch struct {
	Progress *int          `json:"progress,omitempty"`
	Status   *model.Status `json:"status,omitempty"`
	Pinned   *bool         `json:"pinned,omitempty"`
	Archived *bool         `json:"archived,omitempty"`
}

// ListTasks fetches the tasks visible to the signed in user
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	v := url.Values{}
	if q.Project != "" {
		v.Set("project", q.Project)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}

	data, err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/tasks",
		path:   "/tasks",
		query:  v,
	})
	if err != nil {
		return nil, err
	}

	list, err := decodeList[model.Task](data, "tasks")
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// PatchTask applies a partial update. The returned task is nil when the
// backend confirmed without echoing the entity.
func (c *Client) PatchTask(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("patch task: empty id")
	}
	data, err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  "/tasks/{id}",
		path:   "/tasks/" + url.PathEscape(id),
		body:   patch,
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[model.Task](data, "task")
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete task: empty id")
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  "/tasks/{id}",
		path:   "/tasks/" + url.PathEscape(id),
	})
	return err
}
