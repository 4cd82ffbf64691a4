package services

import (
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

// ReportService считает сводку по воронке proposals.
type ReportService struct {
	OppRepo *repositories.OpportunityRepository
}

func NewReportService(oppRepo *repositories.OpportunityRepository) *ReportService {
	return &ReportService{OppRepo: oppRepo}
}

type PipelineSummary struct {
	OpportunitiesByStatus map[string]int             `json:"opportunities_by_status"`
	ProposalCount         int                        `json:"proposal_count"`
	StageStatusTotals     map[models.StageStatus]int `json:"stage_status_totals"`
}

// Summary walks every opportunity and aggregates proposal/stage counts.
func (s *ReportService) Summary() (*PipelineSummary, error) {
	byStatus, err := s.OppRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	summary := &PipelineSummary{
		OpportunitiesByStatus: byStatus,
		StageStatusTotals:     map[models.StageStatus]int{},
	}

	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		opps, err := s.OppRepo.ListPaginated(pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(opps) == 0 {
			break
		}
		for _, o := range opps {
			summary.ProposalCount += len(o.Proposals)
			for _, p := range o.Proposals {
				for _, st := range p.Stages {
					status := st.Status
					if status == "" {
						status = models.StagePending
					}
					summary.StageStatusTotals[status]++
				}
			}
		}
		if len(opps) < pageSize {
			break
		}
	}
	return summary, nil
}
