package synapse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	tableEntityType        = "org.sagebionetworks.repo.model.table.TableEntity"
	transactionRequestType = "org.sagebionetworks.repo.model.table.TableUpdateTransactionRequest"
)

// view types whose snapshots go through a table transaction
var snapshotViewTypes = []string{
	".EntityView",
	".SubmissionView",
	".Dataset",
	".DatasetCollection",
}

type snapshotOptions struct {
	SnapshotComment string `json:"snapshotComment,omitempty"`
	SnapshotLabel   string `json:"snapshotLabel,omitempty"`
}

type snapshotResponse struct {
	SnapshotVersionNumber int64 `json:"snapshotVersionNumber"`
}

type transactionRequest struct {
	ConcreteType    string          `json:"concreteType"`
	EntityID        string          `json:"entityId"`
	Changes         []any           `json:"changes"`
	CreateSnapshot  bool            `json:"createSnapshot"`
	SnapshotOptions snapshotOptions `json:"snapshotOptions"`
}

// CreateSnapshot creates a new snapshot version of a table or view and returns its
// version number
func (c *Client) CreateSnapshot(ctx context.Context, id, comment, label string) (int64, error) {
	entity, err := c.GetEntity(ctx, id)
	if err != nil {
		return 0, err
	}

	opts := snapshotOptions{SnapshotComment: comment, SnapshotLabel: label}

	var resp snapshotResponse
	switch {
	case entity.ConcreteType == tableEntityType:
		if _, err := c.do(ctx, http.MethodPost, "/entity/"+id+"/table/snapshot", opts, &resp); err != nil {
			return 0, fmt.Errorf("snapshot table %s: %w", id, err)
		}
	case isSnapshotView(entity.ConcreteType):
		req := transactionRequest{
			ConcreteType:    transactionRequestType,
			EntityID:        id,
			Changes:         []any{},
			CreateSnapshot:  true,
			SnapshotOptions: opts,
		}
		base := "/entity/" + id + "/table/transaction"
		if err := c.runAsync(ctx, base+"/async/start", base+"/async/get", req, &resp); err != nil {
			return 0, fmt.Errorf("snapshot view %s: %w", id, err)
		}
	default:
		return 0, fmt.Errorf("snapshot %s: entity type %q does not support snapshots", id, entity.ConcreteType)
	}

	c.logger.Info("Snapshot created",
		slog.String("target", id),
		slog.Int64("version", resp.SnapshotVersionNumber),
	)

	return resp.SnapshotVersionNumber, nil
}

func isSnapshotView(concreteType string) bool {
	for _, suffix := range snapshotViewTypes {
		if strings.HasSuffix(concreteType, suffix) {
			return true
		}
	}
	return false
}
