package engine

import (
	"errors"

	"github.com/talgya/runstrict-season/internal/agents"
)

var (
	// ErrDayOutOfOrder is returned when the requested day is not LastDay+1 (and not 1).
	ErrDayOutOfOrder = errors.New("day out of order")
	// ErrSeasonComplete is returned when the requested day is past the season length.
	ErrSeasonComplete = errors.New("season complete")

	// ErrInvalidQuota and ErrInvalidHomeCell come from roster generation.
	ErrInvalidQuota    = agents.ErrInvalidQuota
	ErrInvalidHomeCell = agents.ErrInvalidHomeCell
)
