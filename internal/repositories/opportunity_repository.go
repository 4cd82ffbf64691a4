package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"bizdesk/internal/models"
)

type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// Создание — возвращает ID новой записи
func (r *OpportunityRepository) Create(o *models.Opportunity) (int64, error) {
	proposals, err := json.Marshal(o.Proposals)
	if err != nil {
		return 0, fmt.Errorf("сериализация proposals: %w", err)
	}
	query := `
        INSERT INTO opportunities (client_id, title, status, stage, value, proposals, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int64
	err = r.db.QueryRow(
		query,
		o.ClientID,
		o.Title,
		o.Status,
		o.Stage,
		o.Value,
		proposals,
		o.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("создание opportunity: %w", err)
	}
	return id, nil
}

func (r *OpportunityRepository) GetByID(id int) (*models.Opportunity, error) {
	query := `
        SELECT id, client_id, title, status, stage, value, proposals, created_at
        FROM opportunities
        WHERE id=$1
    `
	o := &models.Opportunity{}
	var status, stage string
	var rawProposals []byte
	err := r.db.QueryRow(query, id).Scan(
		&o.ID,
		&o.ClientID,
		&o.Title,
		&status,
		&stage,
		&o.Value,
		&rawProposals,
		&o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение opportunity по id: %w", err)
	}
	o.Status = models.NormalizeLifecycle(status)
	o.Stage = models.FunnelStage(stage)
	if o.Stage == "" {
		o.Stage = models.FunnelAwareness
	}
	// proposals могли храниться и как jsonb-массив, и как текстовая строка
	o.Proposals, err = models.ParseProposals(rawProposals)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Update обновляет метаданные, не трогая proposals (их пишет UpdateProposals).
func (r *OpportunityRepository) Update(o *models.Opportunity) error {
	query := `
        UPDATE opportunities
        SET client_id=$1, title=$2, status=$3, stage=$4, value=$5
        WHERE id=$6
    `
	_, err := r.db.Exec(query, o.ClientID, o.Title, o.Status, o.Stage, o.Value, o.ID)
	if err != nil {
		return fmt.Errorf("обновление opportunity: %w", err)
	}
	return nil
}

// UpdateProposals — единственная точка записи списка proposals.
func (r *OpportunityRepository) UpdateProposals(id int, proposals []models.Proposal) error {
	if proposals == nil {
		proposals = []models.Proposal{}
	}
	raw, err := json.Marshal(proposals)
	if err != nil {
		return fmt.Errorf("сериализация proposals: %w", err)
	}
	query := `UPDATE opportunities SET proposals=$1 WHERE id=$2`
	res, err := r.db.Exec(query, raw, id)
	if err != nil {
		return fmt.Errorf("запись proposals: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("проверка записи proposals: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("opportunity с id=%d не найдена", id)
	}
	return nil
}

func (r *OpportunityRepository) Delete(id int) error {
	query := `DELETE FROM opportunities WHERE id=$1`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("удаление opportunity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("проверка удаления: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("opportunity с id=%d не найдена", id)
	}
	return nil
}

func (r *OpportunityRepository) ListPaginated(limit, offset int) ([]*models.Opportunity, error) {
	query := `SELECT id, client_id, title, status, stage, value, proposals, created_at
	          FROM opportunities
	          ORDER BY created_at DESC
	          LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса: %w", err)
	}
	defer rows.Close()

	var out []*models.Opportunity
	for rows.Next() {
		o := &models.Opportunity{}
		var status, stage string
		var rawProposals []byte
		if err := rows.Scan(&o.ID, &o.ClientID, &o.Title, &status, &stage, &o.Value, &rawProposals, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения: %w", err)
		}
		o.Status = models.NormalizeLifecycle(status)
		o.Stage = models.FunnelStage(stage)
		if o.Proposals, err = models.ParseProposals(rawProposals); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// CountByStatus — сводка для отчётов.
func (r *OpportunityRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM opportunities GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ошибка чтения: %w", err)
		}
		counts[status] = n
	}
	return counts, nil
}
