//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"osc-console/domain"
	"osc-console/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker runs until ctx is done or it fails. Panics and restarts are the
// supervisor's business.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName is the worker's type name, used as its label in supervisor logs.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives committed state changes, synchronously and in registration order.
// A sink must not mutate the store from Consume.
type EventSink interface {
	Consume(ctx context.Context, e event.StateChanged) error
}

type Publisher interface {
	Publish(ctx context.Context, e event.StateChanged)
}

type IRegistry interface {
	Publisher
	Subscribe(name string, sink EventSink)
	Unsubscribe(name string)
}

// CommandSender emits one outbound command, best effort.
type CommandSender interface {
	Send(cmd domain.Command) error
}

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// StateReader is the read-only query surface of the store. Returned values are copies.
type StateReader interface {
	GetByID(id uuid.UUID) (domain.Participant, bool)
	GetByName(name string) (domain.Participant, bool)
	ListOnline() []domain.Participant
	ListAll() []domain.Participant
	ListPinned() []domain.Participant
	Session() (domain.Session, bool)
}

// StateWriter records the outcome of outbound commands.
type StateWriter interface {
	SetPinned(ctx context.Context, name string, pinned bool) error
	SetSpotlighted(ctx context.Context, name string, spotlighted bool) error
}

type ChatInspector interface {
	Inspect(content string) (lang string, keywords []string)
}

type ParticipantRepository interface {
	Save(p domain.Participant) error
	Get(id uuid.UUID) (domain.Participant, error)
	Delete(id uuid.UUID) error
	ListByName() ([]domain.Participant, error)
}

type ChatRepository interface {
	Store(msg domain.ChatMessage) error
	Get(id uuid.UUID) (domain.ChatMessage, error)
	Delete(id uuid.UUID) error
	ListByTimestamp() ([]domain.ChatMessage, error)
	ListForParticipant(ref string) ([]domain.ChatMessage, error)
}

type ChatIndex interface {
	Index(msg domain.ChatMessage) error
	Search(ctx context.Context, text string, limit int) ([]uuid.UUID, error)
}

// Applier mutates the store from one inbound event tagged with the session it arrived in.
type Applier interface {
	ApplyForSession(ctx context.Context, sessionID uuid.UUID, evt event.Event) ([]event.StateChanged, error)
}

// DatagramSender writes encoded datagrams to the remote endpoint.
type DatagramSender interface {
	Send(raw []byte) error
	Connected() bool
}
