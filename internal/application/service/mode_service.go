package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/douoai/jijin/internal/domain/model"
)

// ModeService управляет текущим режимом (Live/Test)
type ModeService struct {
	currentMode model.DataMode
	mu          sync.RWMutex
	logger      zerolog.Logger
}

func NewModeService(initial model.DataMode, logger zerolog.Logger) *ModeService {
	return &ModeService{
		currentMode: initial,
		logger:      logger,
	}
}

// SwitchMode reports whether the mode actually changed.
func (s *ModeService) SwitchMode(mode model.DataMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentMode == mode {
		return false
	}

	s.logger.Info().Stringer("old", s.currentMode).Stringer("new", mode).Msg("mode updated")
	s.currentMode = mode
	return true
}

func (s *ModeService) GetCurrentMode() model.DataMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMode
}
