package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
)

type EarningsService struct {
	uow UnitOfWork
	now func() time.Time
}

func NewEarningsService(uow UnitOfWork) *EarningsService {
	return &EarningsService{uow: uow, now: time.Now}
}

// MyEarnings summarizes the calling teacher's share of recorded payments.
func (s *EarningsService) MyEarnings(
	ctx context.Context,
	actor domain.Actor,
	custom *domain.Period,
) (*models.EarningsSummary, error) {
	if err := domain.Authorize(actor, domain.CapViewOwnEarnings); err != nil {
		return nil, err
	}
	return s.summarize(ctx, actor.ID, custom)
}

func (s *EarningsService) TeacherEarnings(
	ctx context.Context,
	actor domain.Actor,
	teacherID uuid.UUID,
	custom *domain.Period,
) (*models.EarningsSummary, error) {
	if err := domain.Authorize(actor, domain.CapViewFinancials); err != nil {
		return nil, err
	}
	if _, err := s.uow.Stores().Teachers.GetByID(ctx, teacherID); err != nil {
		return nil, err
	}
	return s.summarize(ctx, teacherID, custom)
}

func (s *EarningsService) Dashboard(ctx context.Context, actor domain.Actor) (*models.DashboardStats, error) {
	if err := domain.Authorize(actor, domain.CapViewFinancials); err != nil {
		return nil, err
	}

	stores := s.uow.Stores()
	sessions, err := stores.Sessions.List(ctx, repository.SessionListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	payments, err := stores.Payments.List(ctx, repository.PaymentListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	stats := domain.SummarizeDashboard(sessions, payments, s.now())
	return &stats, nil
}

func (s *EarningsService) summarize(
	ctx context.Context,
	teacherID uuid.UUID,
	custom *domain.Period,
) (*models.EarningsSummary, error) {
	stores := s.uow.Stores()
	sessions, err := stores.Sessions.List(ctx, repository.SessionListFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	payments, err := stores.Payments.List(ctx, repository.PaymentListFilter{TeacherID: &teacherID})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	teacherOf := make(map[uuid.UUID]uuid.UUID, len(sessions))
	for _, session := range sessions {
		teacherOf[session.ID] = session.TeacherID
	}

	summary := domain.SummarizeEarnings(payments, teacherOf, teacherID, s.now(), custom)
	return &summary, nil
}
