package synapse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

// Entity is the common header of every Synapse entity
type Entity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Etag         string `json:"etag"`
	ConcreteType string `json:"concreteType"`
}

// annotationValue is the typed annotation representation of the annotations2 API
type annotationValue struct {
	Type  string   `json:"type"`
	Value []string `json:"value"`
}

type annotations struct {
	ID          string                     `json:"id"`
	Etag        string                     `json:"etag"`
	Annotations map[string]json.RawMessage `json:"annotations"`
}

// GetEntity fetches the entity header for id
func (c *Client) GetEntity(ctx context.Context, id string) (*Entity, error) {
	var entity Entity
	if _, err := c.do(ctx, http.MethodGet, "/entity/"+id, nil, &entity); err != nil {
		return nil, fmt.Errorf("get entity %s: %w", id, err)
	}
	return &entity, nil
}

// GetProject fetches a project together with its annotations. The configured status
// annotation is lifted into Project.Status; every other annotation is kept verbatim.
func (c *Client) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	entity, err := c.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	var annos annotations
	if _, err := c.do(ctx, http.MethodGet, "/entity/"+id+"/annotations2", nil, &annos); err != nil {
		return nil, fmt.Errorf("get annotations %s: %w", id, err)
	}

	project := &domain.Project{
		ID:          entity.ID,
		Name:        entity.Name,
		Etag:        annos.Etag,
		Annotations: make(map[string]json.RawMessage, len(annos.Annotations)),
	}
	for key, raw := range annos.Annotations {
		if key == c.config.StatusField {
			var status annotationValue
			if err := json.Unmarshal(raw, &status); err != nil {
				return nil, fmt.Errorf("decode %s annotation of %s: %w", key, id, err)
			}
			if len(status.Value) > 0 {
				project.Status = status.Value[0]
			}
			continue
		}
		project.Annotations[key] = raw
	}

	return project, nil
}

// UpdateProject writes the project's annotations back, replacing the status annotation.
// The stored etag guards against concurrent modification on the server side.
func (c *Client) UpdateProject(ctx context.Context, project *domain.Project) error {
	status, err := json.Marshal(annotationValue{Type: "STRING", Value: []string{project.Status}})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	body := annotations{
		ID:          project.ID,
		Etag:        project.Etag,
		Annotations: make(map[string]json.RawMessage, len(project.Annotations)+1),
	}
	for key, raw := range project.Annotations {
		body.Annotations[key] = raw
	}
	body.Annotations[c.config.StatusField] = status

	var updated annotations
	if _, err := c.do(ctx, http.MethodPut, "/entity/"+project.ID+"/annotations2", body, &updated); err != nil {
		return fmt.Errorf("update annotations %s: %w", project.ID, err)
	}

	project.Etag = updated.Etag
	return nil
}
