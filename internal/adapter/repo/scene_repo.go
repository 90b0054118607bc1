package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// SceneRepositoryPG implements domain.SceneRepository.
type SceneRepositoryPG struct {
	sql infra.TxExecutor
}

// NewSceneRepository creates a scene repository backed by PostgreSQL.
func NewSceneRepository(sql infra.TxExecutor) *SceneRepositoryPG {
	return &SceneRepositoryPG{sql: sql}
}

// ListByProject returns the project's scenes in sequence order.
func (r *SceneRepositoryPG) ListByProject(ctx context.Context, projectID, ownerID string) ([]domain.Scene, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListScenes, projectID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var out []domain.Scene
	for rows.Next() {
		var s domain.Scene
		if err := rows.Scan(
			&s.ID,
			&s.ProjectID,
			&s.OwnerID,
			&s.Sequence,
			&s.Title,
			&s.Narration,
			&s.VisualPrompt,
			&s.ImageURL,
			&s.AudioURL,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceForProject swaps the project's scene list in one transaction, so a
// failed insert keeps the previous list.
func (r *SceneRepositoryPG) ReplaceForProject(ctx context.Context, projectID, ownerID string, scenes []domain.Scene) error {
	for i := range scenes {
		if scenes[i].ID == "" {
			scenes[i].ID = uuid.NewString()
		}
	}
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QDeleteProjectScenes, projectID, ownerID); err != nil {
			return fmt.Errorf("delete scenes: %w", err)
		}
		for _, s := range scenes {
			if _, err := tx.Exec(ctx, sqlinline.QInsertScene, s.ID, projectID, ownerID, s.Sequence, s.Title, s.Narration, s.VisualPrompt); err != nil {
				return fmt.Errorf("insert scene %d: %w", s.Sequence, err)
			}
		}
		return nil
	})
}

// SetArtifact stores a generated artifact URL on the scene.
func (r *SceneRepositoryPG) SetArtifact(ctx context.Context, sceneID string, kind domain.GenerationKind, url string) error {
	var query string
	switch kind {
	case domain.KindImage:
		query = sqlinline.QSetSceneImage
	case domain.KindAudio:
		query = sqlinline.QSetSceneAudio
	default:
		return fmt.Errorf("set scene artifact: %w", domain.ErrUnsupportedKind)
	}
	if !validID(sceneID) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, query, sceneID, url)
	if err != nil {
		return fmt.Errorf("set scene artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.SceneRepository = (*SceneRepositoryPG)(nil)
