package services

import "bizdesk/internal/models"

// Номинальный поток этапа: pending -> in-progress -> approved | rejected.
// NB: Approve/Reject работают как идемпотентная перезапись из любого
// статуса (см. ProposalService), таблица ограничивает только прямую
// установку статуса через SetStageStatus.
var StageTransitions = map[models.StageStatus]map[models.StageStatus]bool{
	models.StagePending:    {models.StageInProgress: true, models.StageApproved: true, models.StageRejected: true},
	models.StageInProgress: {models.StageApproved: true, models.StageRejected: true},
	models.StageApproved:   {models.StageRejected: true}, // пересмотр решения
	models.StageRejected:   {models.StageApproved: true},
}

func canTransition(current, to models.StageStatus) bool {
	if current == "" {
		current = models.StagePending
	}
	nexts, ok := StageTransitions[current]
	if !ok {
		return false
	}
	return nexts[to]
}

// canStart: этап продвигается в in-progress только из pending.
func canStart(s models.StageStatus) bool {
	return s == "" || s == models.StagePending
}
