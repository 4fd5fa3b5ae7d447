package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type analysisEventRow struct {
	ID                   string  `db:"id"`
	TemplateID           string  `db:"template_id"`
	EventType            string  `db:"event_type"`
	Severity             string  `db:"severity"`
	Confidence           float64 `db:"confidence"`
	Description          string  `db:"description"`
	MetadataJSON         string  `db:"metadata_json"`
	ProcessorName        string  `db:"processor_name"`
	SourceID             string  `db:"source_id"`
	ShouldNotify         bool    `db:"should_notify"`
	SuggestedActionsJSON string  `db:"suggested_actions_json"`
	CreatedAt            string  `db:"created_at"`
}

func (r analysisEventRow) toDomain() *domain.AnalysisEvent {
	return &domain.AnalysisEvent{
		ID:                   r.ID,
		TemplateID:           r.TemplateID,
		EventType:            r.EventType,
		Severity:             domain.Severity(r.Severity),
		Confidence:           r.Confidence,
		Description:          r.Description,
		MetadataJSON:         r.MetadataJSON,
		ProcessorName:        r.ProcessorName,
		SourceID:             r.SourceID,
		ShouldNotify:         r.ShouldNotify,
		SuggestedActionsJSON: r.SuggestedActionsJSON,
		CreatedAt:            parseTime(r.CreatedAt),
	}
}

// AnalysisEventRepository is the exclusive owner of analysis event rows.
// Events are immutable once recorded.
type AnalysisEventRepository struct {
	pool *PoolManager
}

// NewAnalysisEventRepository constructs an AnalysisEventRepository over pool.
func NewAnalysisEventRepository(pool *PoolManager) *AnalysisEventRepository {
	return &AnalysisEventRepository{pool: pool}
}

// Create inserts a new analysis event row.
func (r *AnalysisEventRepository) Create(ctx context.Context, e *domain.AnalysisEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.CreatedAt = parseTime(nowISO())

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO analysis_events (id, template_id, event_type, severity, confidence, description,
			 metadata_json, processor_name, source_id, should_notify, suggested_actions_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.TemplateID, e.EventType, string(e.Severity), e.Confidence, e.Description,
			e.MetadataJSON, e.ProcessorName, e.SourceID, e.ShouldNotify, e.SuggestedActionsJSON,
			formatTimePtr(&e.CreatedAt),
		)
		if err != nil {
			return apperrors.Database("AnalysisEventRepository.Create", "failed to insert event", err)
		}
		return nil
	})
}

// GetByID returns the analysis event with id.
func (r *AnalysisEventRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisEvent, error) {
	var e *domain.AnalysisEvent
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row analysisEventRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM analysis_events WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("AnalysisEventRepository.GetByID", "event not found")
			}
			return apperrors.Database("AnalysisEventRepository.GetByID", "failed to query event", err)
		}
		e = row.toDomain()
		return nil
	})
	return e, err
}

// ListBySource returns analysis events for sourceID, most-recent-first.
func (r *AnalysisEventRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.AnalysisEvent, error) {
	var out []*domain.AnalysisEvent
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []analysisEventRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM analysis_events WHERE source_id = ? ORDER BY created_at DESC`, sourceID); err != nil {
			return apperrors.Database("AnalysisEventRepository.ListBySource", "failed to query events", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}
