package service

import (
	"context"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/repository/memory"
)

type IHeldOutService interface {
	List(ctx context.Context, sessionID string) (*dto.HeldOutResponse, error)
	Replace(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutResponse, error)
	Add(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutChangeResponse, error)
	Remove(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutChangeResponse, error)
}

type heldOutService struct {
	sessions *memory.SessionRepository
}

func NewHeldOutService(sessions *memory.SessionRepository) IHeldOutService {
	return &heldOutService{sessions: sessions}
}

func (s *heldOutService) List(ctx context.Context, sessionID string) (*dto.HeldOutResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	ids := session.HeldOut.IDs()
	return &dto.HeldOutResponse{Ids: ids, Count: len(ids)}, nil
}

func (s *heldOutService) Replace(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	session.HeldOut.Replace(req.Ids)
	s.sessions.Touch(session)
	return s.List(ctx, sessionID)
}

func (s *heldOutService) Add(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutChangeResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	changed := session.HeldOut.Add(req.Ids...)
	s.sessions.Touch(session)
	return &dto.HeldOutChangeResponse{Changed: changed, Count: session.HeldOut.Len()}, nil
}

// Remove drops the given ids, or every id when none are given.
func (s *heldOutService) Remove(ctx context.Context, sessionID string, req *dto.HeldOutRequest) (*dto.HeldOutChangeResponse, error) {
	session := s.sessions.GetOrCreate(sessionID)
	var changed int
	if len(req.Ids) == 0 {
		changed = session.HeldOut.Len()
		session.HeldOut.Clear()
	} else {
		changed = session.HeldOut.Remove(req.Ids...)
	}
	s.sessions.Touch(session)
	return &dto.HeldOutChangeResponse{Changed: changed, Count: session.HeldOut.Len()}, nil
}
