package reconciliation

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// ObjectType
// ---------------------------------------------------------------------------

// ObjectType identifies the kind of business record being synchronized
type ObjectType string

const (
	ObjectTypeInvoice    ObjectType = "invoice"
	ObjectTypeCreditNote ObjectType = "credit_note"
	ObjectTypePickTicket ObjectType = "pick_ticket"
	ObjectTypePayment    ObjectType = "payment"
)

// AllObjectTypes returns every supported object type in dispatch order
func AllObjectTypes() []ObjectType {
	return []ObjectType{
		ObjectTypeInvoice,
		ObjectTypeCreditNote,
		ObjectTypePickTicket,
		ObjectTypePayment,
	}
}

// IsValid checks if the object type is supported
func (t ObjectType) IsValid() bool {
	switch t {
	case ObjectTypeInvoice, ObjectTypeCreditNote, ObjectTypePickTicket, ObjectTypePayment:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (t ObjectType) String() string {
	return string(t)
}

// ParseObjectType parses a string into an ObjectType
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service identifies one of the external systems taking part in synchronization
type Service string

const (
	ServiceAccounting      Service = "accounting"
	ServiceOrderManagement Service = "order_management"
	ServiceShipping        Service = "shipping"
)

// IsValid checks if the service is known
func (s Service) IsValid() bool {
	switch s {
	case ServiceAccounting, ServiceOrderManagement, ServiceShipping:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (s Service) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// TriggerSource
// ---------------------------------------------------------------------------

// TriggerSource records what started a synchronization attempt
type TriggerSource string

const (
	TriggerWebhook TriggerSource = "webhook"
	TriggerCron    TriggerSource = "cron"
	TriggerManual  TriggerSource = "manual"
)

// IsValid checks if the trigger source is valid
func (s TriggerSource) IsValid() bool {
	switch s {
	case TriggerWebhook, TriggerCron, TriggerManual:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (s TriggerSource) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Method
// ---------------------------------------------------------------------------

// Method is the effect a synchronization attempt has on the target system
type Method string

const (
	MethodCreate Method = "create"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
)

// IsValid checks if the method is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodCreate, MethodUpdate, MethodDelete:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (m Method) String() string {
	return string(m)
}

// ParseMethod parses a string into a Method
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Outcome
// ---------------------------------------------------------------------------

// Outcome is the terminal state of one synchronization attempt
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
	// OutcomeSkipped marks an attempt that succeeded without touching the target system
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Succeeded reports whether the outcome counts as a success
func (o Outcome) Succeeded() bool {
	return o != OutcomeFailed && o != ""
}

// String returns the string representation
func (o Outcome) String() string {
	return string(o)
}

// OutcomeFor returns the success outcome for a method
func OutcomeFor(m Method) Outcome {
	switch m {
	case MethodCreate:
		return OutcomeCreated
	case MethodUpdate:
		return OutcomeUpdated
	case MethodDelete:
		return OutcomeDeleted
	default:
		return OutcomeFailed
	}
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

// Event is a parsed webhook event name such as "pick_ticket_update"
type Event struct {
	Type   ObjectType
	Method Method
}

// ParseEvent splits an event name of the form <type>_<method>
func ParseEvent(name string) (Event, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	idx := strings.LastIndex(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEvent, name)
	}

	t, err := ParseObjectType(name[:idx])
	if err != nil {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEvent, name)
	}
	m, err := ParseMethod(name[idx+1:])
	if err != nil {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEvent, name)
	}
	return Event{Type: t, Method: m}, nil
}

// String returns the event name
func (e Event) String() string {
	return string(e.Type) + "_" + string(e.Method)
}

// ---------------------------------------------------------------------------
// RemoteObject
// ---------------------------------------------------------------------------

// RemoteObject is any record returned by a gateway that can be synchronized
type RemoteObject interface {
	// SourceID returns the identifier of the record in its source system
	SourceID() string
}

// ObjectRef refers to a remote object by id only, used when the object
// itself can no longer be fetched (e.g. it was deleted at the source).
type ObjectRef string

// SourceID implements RemoteObject
func (r ObjectRef) SourceID() string {
	return string(r)
}
