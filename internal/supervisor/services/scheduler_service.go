// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package services

import (
	"context"
	"fmt"
)

// StartStopper is satisfied by *scheduler.Closer.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts a Start/Stop component to suture.Service.
type SchedulerService struct {
	scheduler StartStopper
}

func NewSchedulerService(s StartStopper) *SchedulerService {
	return &SchedulerService{scheduler: s}
}

// Serve starts the scheduler, waits for ctx to be canceled and stops it.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("contest scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("contest scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return "contest-scheduler"
}
