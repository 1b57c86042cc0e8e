package alert

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/logger"
	"github.com/oshokin/alarm-alert/internal/session"
)

// Service abstracts the alert operations the transport layer depends on.
// Every input returns the snapshot of the current session after the input was applied.
type Service interface {
	Fire(ctx context.Context, a alarm.Alarm) (session.Snapshot, error)
	Snooze(ctx context.Context) (session.Snapshot, error)
	SnoozeLongPress(ctx context.Context) (session.Snapshot, error)
	Dismiss(ctx context.Context) (session.Snapshot, error)
	Back(ctx context.Context) (session.Snapshot, error)
	Key(ctx context.Context, code alarm.KeyCode, up bool) (bool, session.Snapshot, error)
	Digit(ctx context.Context, d int) (session.Snapshot, error)
	Backspace(ctx context.Context) (session.Snapshot, error)
	ResetAnswer(ctx context.Context) (session.Snapshot, error)
	SubmitAnswer(ctx context.Context) (session.Snapshot, error)
	Resume(ctx context.Context) (session.Snapshot, error)
	RemoveAlarm(ctx context.Context, id alarm.ID) error
	Status(ctx context.Context) (session.Snapshot, error)
}

var (
	// ErrNoSession is returned when no alarm has fired yet.
	ErrNoSession = errors.New("no alert session")
	// ErrAlarmNotFound is returned when an alarm definition does not exist.
	ErrAlarmNotFound = errors.New("alarm not found")
)

// Server implements the AlertService gRPC API.
type Server struct {
	// service provides the alert operations.
	service Service
}

var _ AlertServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Fire presents a firing alarm.
func (s *Server) Fire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	id, err := Int(req, FieldAlarmID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "alarm id must be positive")
	}

	ctx = withActor(ctx, req)

	return reply(s.service.Fire(ctx, alarm.Alarm{ID: alarm.ID(id), Label: String(req, FieldLabel)}))
}

// Snooze presses the snooze button.
func (s *Server) Snooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Snooze(withActor(ctx, req)))
}

// SnoozeLongPress long-presses the snooze button.
func (s *Server) SnoozeLongPress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.SnoozeLongPress(withActor(ctx, req)))
}

// Dismiss presses the dismiss button.
func (s *Server) Dismiss(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Dismiss(withActor(ctx, req)))
}

// Back presses back. The alert screen swallows it.
func (s *Server) Back(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Back(withActor(ctx, req)))
}

// Key delivers a hardware key transition.
func (s *Server) Key(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	// Unknown keys are passed on and reported as not consumed.
	code := alarm.ParseKeyCode(String(req, FieldKey))

	consumed, snap, err := s.service.Key(withActor(ctx, req), code, Bool(req, FieldUp))

	resp, err := reply(snap, err)
	if err != nil {
		return nil, err
	}

	resp.Fields[FieldConsumed] = structpb.NewBoolValue(consumed)

	return resp, nil
}

// Digit types a keypad digit into the challenge.
func (s *Server) Digit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := Int(req, FieldDigit)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if d < 0 || d > 9 {
		return nil, status.Error(codes.InvalidArgument, "digit must be between 0 and 9")
	}

	return reply(s.service.Digit(withActor(ctx, req), int(d)))
}

// Backspace removes the last challenge digit.
func (s *Server) Backspace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Backspace(withActor(ctx, req)))
}

// ResetAnswer clears the challenge answer.
func (s *Server) ResetAnswer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.ResetAnswer(withActor(ctx, req)))
}

// SubmitAnswer checks the challenge answer.
func (s *Server) SubmitAnswer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.SubmitAnswer(withActor(ctx, req)))
}

// Resume re-checks that the presented alarm still exists.
func (s *Server) Resume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Resume(withActor(ctx, req)))
}

// RemoveAlarm deletes an alarm definition.
func (s *Server) RemoveAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := Int(req, FieldAlarmID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.service.RemoveAlarm(withActor(ctx, req), alarm.ID(id)); err != nil {
		_, err = reply(session.Snapshot{}, err)

		return nil, err
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldAlarmID: structpb.NewNumberValue(float64(id)),
			FieldRemoved: structpb.NewBoolValue(true),
		},
	}, nil
}

// Status returns the current session.
func (s *Server) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(s.service.Status(ctx))
}

// reply maps service results onto gRPC responses.
func reply(snap session.Snapshot, err error) (*structpb.Struct, error) {
	switch {
	case err == nil:
		return EncodeSnapshot(snap), nil
	case errors.Is(err, ErrNoSession):
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrAlarmNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	default:
		return nil, status.Error(codes.Internal, "unable to apply alert input")
	}
}

// withActor attaches the caller identity from the request to the logger.
func withActor(ctx context.Context, req *structpb.Struct) context.Context {
	actor := req.GetFields()[FieldActor].GetStructValue()
	if actor == nil {
		return ctx
	}

	return logger.WithFields(ctx,
		"actor_hostname", String(actor, "hostname"),
		"actor_username", String(actor, "username"),
	)
}
