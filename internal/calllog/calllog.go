// Package calllog records the lifecycle of IVR calls.
package calllog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"aicc-ivr-backend/internal/metrics"
	"aicc-ivr-backend/internal/model"
	"aicc-ivr-backend/internal/notification"
	"aicc-ivr-backend/internal/parse"
	"aicc-ivr-backend/internal/store"
)

const (
	ActionStart  = "start"
	ActionEnd    = "end"
	ActionUpdate = "update"
)

// DefaultRetention is how long a call record is kept after it starts.
const DefaultRetention = 90 * 24 * time.Hour

var (
	ErrInvalidAction = errors.New("action은 'start', 'end', 'update' 중 하나여야 합니다.")
	ErrMissingPhone  = errors.New("발신자 번호는 필수 입력 항목입니다.")
)

const (
	MessageStarted       = "통화 시작이 기록되었습니다."
	MessageEnded         = "통화 종료가 기록되었습니다."
	MessageUpdated       = "통화 정보가 업데이트되었습니다."
	MessageMissingCallID = "통화 ID가 필요합니다."
	MessageCallNotFound  = "해당 통화 로그를 찾을 수 없습니다."
)

type CustomerInfo struct {
	CustomerID   string `json:"customer_id"`
	CompanyName  string `json:"company_name"`
	SupportLevel string `json:"support_level"`
}

// Request is one call log action.
type Request struct {
	Action       string
	CallID       string
	PhoneNumber  string
	CustomerInfo *CustomerInfo
	FlowPath     []string
	Resolution   string
	AssignedTo   string
	CallDuration int
	Notes        string
}

// Result reports the action outcome. Success is false when the call id is
// missing or unknown; CallID is empty in that case.
type Result struct {
	Success bool
	CallID  string
	Message string
}

// Dispatcher queues engineer alerts.
type Dispatcher interface {
	Dispatch(job notification.Job)
}

type Service struct {
	store     store.CallStore
	metrics   *metrics.Recorder
	alerts    Dispatcher
	retention time.Duration
	now       func() time.Time
	newID     func() string
}

// NewService creates a call log service. alerts may be nil.
func NewService(s store.CallStore, rec *metrics.Recorder, alerts Dispatcher, retention time.Duration) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		store:     s,
		metrics:   rec,
		alerts:    alerts,
		retention: retention,
		now:       time.Now,
		newID:     func() string { return uuid.NewString()[:8] },
	}
}

// Handle validates and applies one action, then records its metrics.
func (s *Service) Handle(ctx context.Context, req Request) (Result, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case ActionStart, ActionEnd, ActionUpdate:
	default:
		return Result{}, ErrInvalidAction
	}
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		return Result{}, ErrMissingPhone
	}
	masked := parse.MaskPhoneNumber(req.PhoneNumber)
	log.Info().Str("action", action).Str("phone", masked).Msg("call log request")

	var (
		res Result
		err error
	)
	switch action {
	case ActionStart:
		res, err = s.start(ctx, req, masked)
	case ActionEnd:
		res, err = s.end(ctx, req)
	case ActionUpdate:
		res, err = s.update(ctx, req)
	}
	if err != nil {
		return Result{}, err
	}

	s.recordMetrics(ctx, action, req)
	return res, nil
}

// GenerateCallID builds call_<UTC yyyymmddhhmmss>_<8 hex>.
func (s *Service) GenerateCallID() string {
	return fmt.Sprintf("call_%s_%s", s.now().UTC().Format("20060102150405"), s.newID())
}

func (s *Service) start(ctx context.Context, req Request, masked string) (Result, error) {
	callID := strings.TrimSpace(req.CallID)
	if callID == "" {
		callID = s.GenerateCallID()
	}
	now := s.now().UTC()
	call := &model.CallLog{
		CallID:            callID,
		PhoneNumberHash:   parse.HashPhoneNumber(req.PhoneNumber),
		MaskedPhoneNumber: masked,
		CallStartTime:     now,
		CallStatus:        model.CallStatusInProgress,
		FlowPath:          req.FlowPath,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(s.retention),
	}
	if call.FlowPath == nil {
		call.FlowPath = []string{}
	}
	if ci := req.CustomerInfo; ci != nil {
		call.CustomerID = ci.CustomerID
		call.CompanyName = ci.CompanyName
		call.SupportLevel = ci.SupportLevel
	}
	if err := s.store.CreateCall(ctx, call); err != nil {
		return Result{}, fmt.Errorf("start call: %w", err)
	}
	log.Info().Str("call_id", callID).Msg("call started")
	return Result{Success: true, CallID: callID, Message: MessageStarted}, nil
}

func (s *Service) end(ctx context.Context, req Request) (Result, error) {
	existing, res, err := s.existing(ctx, req.CallID)
	if existing == nil {
		return res, err
	}

	now := s.now().UTC()
	upd := store.CallUpdate{
		UpdatedAt:    now,
		CallEndTime:  &now,
		CallStatus:   model.CallStatusCompleted,
		Resolution:   req.Resolution,
		AssignedTo:   req.AssignedTo,
		CallDuration: req.CallDuration,
		Notes:        req.Notes,
	}
	if len(req.FlowPath) > 0 {
		upd.FlowPath = MergeFlowPath(existing.FlowPath, req.FlowPath)
	}
	if err := s.store.UpdateCall(ctx, existing.CallID, upd); err != nil {
		return s.updateFailed(existing.CallID, err)
	}
	s.alert(existing, req.AssignedTo)
	log.Info().Str("call_id", existing.CallID).Msg("call ended")
	return Result{Success: true, CallID: existing.CallID, Message: MessageEnded}, nil
}

func (s *Service) update(ctx context.Context, req Request) (Result, error) {
	existing, res, err := s.existing(ctx, req.CallID)
	if existing == nil {
		return res, err
	}

	upd := store.CallUpdate{
		UpdatedAt:  s.now().UTC(),
		Resolution: req.Resolution,
		AssignedTo: req.AssignedTo,
		Notes:      req.Notes,
	}
	if len(req.FlowPath) > 0 {
		upd.FlowPath = MergeFlowPath(existing.FlowPath, req.FlowPath)
	}
	if ci := req.CustomerInfo; ci != nil {
		upd.CustomerID = ci.CustomerID
		upd.CompanyName = ci.CompanyName
		upd.SupportLevel = ci.SupportLevel
	}
	if err := s.store.UpdateCall(ctx, existing.CallID, upd); err != nil {
		return s.updateFailed(existing.CallID, err)
	}
	if upd.CompanyName != "" {
		existing.CompanyName = upd.CompanyName
	}
	s.alert(existing, req.AssignedTo)
	log.Info().Str("call_id", existing.CallID).Msg("call updated")
	return Result{Success: true, CallID: existing.CallID, Message: MessageUpdated}, nil
}

// existing loads the call an end or update refers to. A nil call with a nil
// error means res is the answer to return.
func (s *Service) existing(ctx context.Context, callID string) (*model.CallLog, Result, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, Result{Success: false, Message: MessageMissingCallID}, nil
	}
	call, err := s.store.GetCall(ctx, callID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Result{Success: false, Message: MessageCallNotFound}, nil
	}
	if err != nil {
		return nil, Result{}, fmt.Errorf("load call: %w", err)
	}
	return call, Result{}, nil
}

func (s *Service) updateFailed(callID string, err error) (Result, error) {
	if errors.Is(err, store.ErrNotFound) {
		return Result{Success: false, Message: MessageCallNotFound}, nil
	}
	return Result{}, fmt.Errorf("update call %s: %w", callID, err)
}

func (s *Service) alert(call *model.CallLog, engineerID string) {
	if s.alerts == nil || engineerID == "" {
		return
	}
	s.alerts.Dispatch(notification.Job{
		EngineerID:  engineerID,
		CallID:      call.CallID,
		CompanyName: call.CompanyName,
	})
}

func (s *Service) recordMetrics(ctx context.Context, action string, req Request) {
	supportLevel := ""
	if req.CustomerInfo != nil {
		supportLevel = req.CustomerInfo.SupportLevel
	}
	s.metrics.CallAction(ctx, action, supportLevel)
	if action == ActionEnd && req.CallDuration > 0 {
		s.metrics.CallDuration(ctx, supportLevel, req.CallDuration)
	}
}

// MergeFlowPath appends the steps of next not already in existing, keeping
// first-seen order.
func MergeFlowPath(existing, next []string) []string {
	merged := make([]string, 0, len(existing)+len(next))
	seen := make(map[string]struct{}, len(existing)+len(next))
	for _, step := range append(append([]string{}, existing...), next...) {
		if _, ok := seen[step]; ok {
			continue
		}
		seen[step] = struct{}{}
		merged = append(merged, step)
	}
	return merged
}
