package alert

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/session"
)

// Request and response field names.
const (
	FieldAlarmID        = "alarm_id"
	FieldLabel          = "label"
	FieldKey            = "key"
	FieldUp             = "up"
	FieldDigit          = "digit"
	FieldActor          = "actor"
	FieldState          = "state"
	FieldSnoozeEnabled  = "snooze_enabled"
	FieldSnoozeFireTime = "snooze_fire_time"
	FieldConsumed       = "consumed"
	FieldChallenge      = "challenge"
	FieldQuestion       = "question"
	FieldInput          = "input"
	FieldDisplay        = "display"
	FieldSubmitLabel    = "submit_label"
	FieldOutcome        = "outcome"
	FieldRemoved        = "removed"
)

var (
	errFieldMissing = errors.New("field is required")
	errFieldType    = errors.New("field has the wrong type")
	errNotInteger   = errors.New("field must be an integer")
)

// Status is a decoded snapshot response.
type Status struct {
	AlarmID        alarm.ID
	Label          string
	State          string
	SnoozeEnabled  bool
	SnoozeFireTime time.Time
	Consumed       bool
	Challenge      *ChallengeStatus
}

// ChallengeStatus is the decoded challenge part of a Status.
type ChallengeStatus struct {
	Question    string
	Input       string
	Display     string
	SubmitLabel string
	Outcome     string
}

// EncodeSnapshot converts a session snapshot into a response message.
func EncodeSnapshot(snap session.Snapshot) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldAlarmID:       structpb.NewNumberValue(float64(snap.Alarm.ID)),
		FieldLabel:         structpb.NewStringValue(snap.Alarm.LabelOrDefault()),
		FieldState:         structpb.NewStringValue(snap.State.String()),
		FieldSnoozeEnabled: structpb.NewBoolValue(snap.SnoozeEnabled),
	}

	if !snap.SnoozeFireTime.IsZero() {
		fields[FieldSnoozeFireTime] = structpb.NewStringValue(snap.SnoozeFireTime.UTC().Format(time.RFC3339))
	}

	if c := snap.Challenge; c != nil {
		fields[FieldChallenge] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				FieldQuestion:    structpb.NewStringValue(c.Question),
				FieldInput:       structpb.NewStringValue(c.Input),
				FieldDisplay:     structpb.NewStringValue(c.Display),
				FieldSubmitLabel: structpb.NewStringValue(c.SubmitLabel),
				FieldOutcome:     structpb.NewStringValue(c.Outcome.String()),
			},
		})
	}

	return &structpb.Struct{Fields: fields}
}

// DecodeStatus reads a response produced by EncodeSnapshot.
func DecodeStatus(msg *structpb.Struct) (Status, error) {
	id, err := Int(msg, FieldAlarmID)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		AlarmID:       alarm.ID(id),
		Label:         String(msg, FieldLabel),
		State:         String(msg, FieldState),
		SnoozeEnabled: Bool(msg, FieldSnoozeEnabled),
		Consumed:      Bool(msg, FieldConsumed),
	}

	if raw := String(msg, FieldSnoozeFireTime); raw != "" {
		st.SnoozeFireTime, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return Status{}, fmt.Errorf("%s: %w", FieldSnoozeFireTime, err)
		}
	}

	if v, ok := msg.GetFields()[FieldChallenge]; ok {
		c := v.GetStructValue()
		st.Challenge = &ChallengeStatus{
			Question:    String(c, FieldQuestion),
			Input:       String(c, FieldInput),
			Display:     String(c, FieldDisplay),
			SubmitLabel: String(c, FieldSubmitLabel),
			Outcome:     String(c, FieldOutcome),
		}
	}

	return st, nil
}

// Int reads a required integer field.
func Int(msg *structpb.Struct, name string) (int64, error) {
	v, ok := msg.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, errFieldMissing)
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, errFieldType)
	}

	if n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%s: %w", name, errNotInteger)
	}

	return int64(n.NumberValue), nil
}

// String reads an optional string field.
func String(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

// Bool reads an optional bool field.
func Bool(msg *structpb.Struct, name string) bool {
	return msg.GetFields()[name].GetBoolValue()
}
