package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flagforge/flagforge/internal/flags"
	"github.com/flagforge/flagforge/internal/grader"
	"github.com/flagforge/flagforge/internal/models"
	apperrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/logger"
	"github.com/flagforge/flagforge/pkg/metrics"
)

// ErrSubmissionInFlight is returned when a slot already has a pending submission.
var ErrSubmissionInFlight = apperrors.New("SUBMISSION_IN_FLIGHT", "submission already in progress", 409)

// alreadySubmittedMessage is shown when a stored flag short-circuits a resubmission.
const alreadySubmittedMessage = "✅ Already submitted"

// GraderClient submits a flag to the remote validator and relays its message.
type GraderClient interface {
	SubmitFlag(ctx context.Context, playerID, machineID, flag string) (string, error)
}

// Broadcaster pushes an event to every subscriber of a realtime stream.
type Broadcaster interface {
	Broadcast(stream string, payload interface{})
}

// SlotView is the rendered state of one flag input.
type SlotView struct {
	State       flags.State `json:"state"`
	Placeholder string      `json:"placeholder,omitempty"`
	Message     string      `json:"message,omitempty"`
	Locked      bool        `json:"locked"`
}

// MachineView is one dashboard card: a machine with its two flag slots.
type MachineView struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Slots map[string]SlotView `json:"slots"`
}

// SubmitResult is the outcome of a single submission attempt.
type SubmitResult struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
	Score    int    `json:"score"`
}

// FlagService owns the dashboard board and the submission round trip.
// Validation and scoring live behind the grader; this service only relays
// flags, interprets the reply and re-reads what the grader persisted.
type FlagService struct {
	db        *gorm.DB
	grader    GraderClient
	tracker   *flags.Tracker
	broadcast Broadcaster
	stream    string
	log       *zap.Logger
}

// NewFlagService constructs a FlagService. broadcast may be nil in tests.
func NewFlagService(db *gorm.DB, graderClient GraderClient, broadcast Broadcaster, stream string) *FlagService {
	return &FlagService{
		db:        db,
		grader:    graderClient,
		tracker:   flags.NewTracker(),
		broadcast: broadcast,
		stream:    stream,
		log:       logger.WithModule("flags"),
	}
}

// Slots returns the dashboard cards for a player: every machine with both
// slots, locked where a stored flag already exists.
func (s *FlagService) Slots(ctx context.Context, playerID string) ([]MachineView, error) {
	var machines []models.Machine
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&machines).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to load machines")
	}

	var stored []models.UserFlag
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&stored).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load submitted flags")
	}

	machineIDs := make([]string, len(machines))
	for i, m := range machines {
		machineIDs[i] = m.ID
	}

	board := flags.NewBoard(machineIDs)
	submitted := make([]flags.SubmittedFlag, 0, len(stored))
	for _, record := range stored {
		flagType, err := flags.ParseType(record.FlagType)
		if err != nil {
			s.log.Warn("skipping stored flag with unknown type",
				zap.String("player_id", record.PlayerID),
				zap.String("flag_type", record.FlagType))
			continue
		}
		submitted = append(submitted, flags.SubmittedFlag{
			MachineID: record.MachineID,
			Type:      flagType,
			Value:     record.FlagValue,
		})
	}
	board.MergeSubmitted(submitted)

	views := make([]MachineView, len(machines))
	for i, m := range machines {
		slots := make(map[string]SlotView, len(flags.Types))
		for _, t := range flags.Types {
			slot := board[flags.Key{MachineID: m.ID, Type: t}]
			slots[string(t)] = SlotView{
				State:       slot.State,
				Placeholder: slot.Placeholder,
				Message:     slot.Message,
				Locked:      slot.Locked(),
			}
		}
		views[i] = MachineView{ID: m.ID, Name: m.Name, Slots: slots}
	}
	return views, nil
}

// Submit relays one flag to the grader. Blank input and already accepted
// slots never reach the remote; a slot with a submission in flight rejects
// the duplicate instead of queueing it.
func (s *FlagService) Submit(ctx context.Context, playerID, machineID, flagType, flagValue string) (*SubmitResult, error) {
	flagValue = strings.TrimSpace(flagValue)
	if flagValue == "" {
		return nil, apperrors.NewBadRequest("flag value is required")
	}

	parsedType, err := flags.ParseType(flagType)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	player, err := s.loadPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var machineCount int64
	err = s.db.WithContext(ctx).Model(&models.Machine{}).
		Where("id = ?", machineID).
		Count(&machineCount).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load machine")
	}
	if machineCount == 0 {
		return nil, apperrors.ErrNotFound
	}

	accepted, err := s.hasStoredFlag(ctx, playerID, machineID, parsedType)
	if err != nil {
		return nil, err
	}
	if accepted {
		return &SubmitResult{Accepted: true, Message: alreadySubmittedMessage, Score: player.Score}, nil
	}

	key := flags.Key{MachineID: machineID, Type: parsedType}
	if !s.tracker.Begin(playerID, key) {
		return nil, ErrSubmissionInFlight
	}
	defer s.tracker.Finish(playerID, key)

	message, err := s.grader.SubmitFlag(ctx, playerID, machineID, flagValue)
	if err != nil {
		metrics.FlagSubmissions.WithLabelValues("error").Inc()
		s.log.Warn("grader unreachable",
			zap.String("player_id", playerID),
			zap.String("machine_id", machineID),
			zap.Error(err))
		return &SubmitResult{Accepted: false, Message: grader.TransportErrorMessage, Score: player.Score}, nil
	}

	if !grader.Accepted(message) {
		metrics.FlagSubmissions.WithLabelValues("rejected").Inc()
		return &SubmitResult{Accepted: false, Message: message, Score: player.Score}, nil
	}

	metrics.FlagSubmissions.WithLabelValues("accepted").Inc()

	// The grader persisted the flag and any score change; re-read rather
	// than compute.
	refreshed, err := s.loadPlayer(ctx, playerID)
	if err != nil {
		refreshed = player
	}

	if s.broadcast != nil {
		s.broadcast.Broadcast(s.stream, map[string]interface{}{
			"event":     "players_changed",
			"player_id": playerID,
		})
	}

	return &SubmitResult{Accepted: true, Message: message, Score: refreshed.Score}, nil
}

func (s *FlagService) loadPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var player models.Player
	err := s.db.WithContext(ctx).Where("id = ?", playerID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load player")
	}
	return &player, nil
}

func (s *FlagService) hasStoredFlag(ctx context.Context, playerID, machineID string, flagType flags.Type) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserFlag{}).
		Where("player_id = ? AND machine_id = ? AND flag_type = ?", playerID, machineID, string(flagType)).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check submitted flag")
	}
	return count > 0, nil
}
