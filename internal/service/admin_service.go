package service

import (
	"context"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"
)

type IAdminService interface {
	GetSystemLogs(ctx context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error)
}

type adminService struct {
	logger logger.ILogger
}

func NewAdminService(log logger.ILogger) IAdminService {
	return &adminService{logger: log}
}

func (s *adminService) GetSystemLogs(ctx context.Context, req *dto.LogListRequest) ([]*dto.LogListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	entries, err := s.logger.GetLogs(req.Level, limit, req.Offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, &dto.LogListResponse{
			Id:        e.Id,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Details:   e.Details,
		})
	}
	return res, nil
}
