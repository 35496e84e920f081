package eventhub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"reflect"
	"sync"

	"github.com/AsynkronIT/protoactor-go/actor"

	tplog "github.com/TopiaNetwork/blockproducer/log"
	tplogcmm "github.com/TopiaNetwork/blockproducer/log/common"
	tptx "github.com/TopiaNetwork/blockproducer/transaction"
)

const MOD_NAME = "eventhub"

var (
	ErrHubNotStarted     = errors.New("event hub not started")
	ErrHubAlreadyStarted = errors.New("event hub already started")
)

type EventHub interface {
	EventTrigger
	EventObserver

	Start(sysActor *actor.ActorSystem) error

	Stop()
}

// eventHub is owned by its node; there is no process-wide registry of hubs.
type eventHub struct {
	log       tplog.Logger
	name      string
	sync      sync.RWMutex
	sysActor  *actor.ActorSystem
	evPID     *actor.PID
	evManager *eventManager
}

func NewEventHub(level tplogcmm.LogLevel, log tplog.Logger, name string) EventHub {
	logEVActor := tplog.CreateModuleLogger(level, MOD_NAME, log)

	evManager := newEventManager()
	evManager.registerEvent(EventName_TxReceived, reflect.TypeOf(&tptx.Transaction{}).String())
	evManager.registerEvent(EventName_BlockProduced, reflect.TypeOf(&BlockProducedEvent{}).String())
	evManager.registerEvent(EventName_RoundAborted, reflect.TypeOf(&RoundAbortedEvent{}).String())

	return &eventHub{
		log:       logEVActor,
		name:      name,
		evManager: evManager,
	}
}

func (hub *eventHub) Start(sysActor *actor.ActorSystem) error {
	hub.sync.Lock()
	defer hub.sync.Unlock()

	if hub.evPID != nil {
		return ErrHubAlreadyStarted
	}

	evPID, err := createEventActor(hub.log, sysActor, hub.name+"-event-actor", hub.evManager)
	if err != nil {
		hub.log.Errorf("create event actor error: %v", err)
		return err
	}

	hub.sysActor = sysActor
	hub.evPID = evPID

	return nil
}

// Trig checks the event and its data synchronously; delivery to observers is asynchronous.
func (hub *eventHub) Trig(ctx context.Context, name string, data interface{}) error {
	hub.sync.RLock()
	defer hub.sync.RUnlock()

	if hub.evPID == nil {
		return ErrHubNotStarted
	}

	ev, err := hub.evManager.getEvent(name)
	if err != nil {
		return err
	}
	if err = ev.checkData(data); err != nil {
		return err
	}

	hub.sysActor.Root.Send(hub.evPID, &EventMsg{Name: name, Data: data})

	return nil
}

func (hub *eventHub) generateObsID() (string, error) {
	r := make([]byte, 10)
	_, err := rand.Read(r)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(r), nil
}

func (hub *eventHub) Observe(ctx context.Context, evName string, evHandler EventHandler) (string, error) {
	obsID, err := hub.generateObsID()
	if err != nil {
		hub.log.Errorf("Can't generate observation id: %v", err)
		return "", err
	}

	if err = hub.evManager.addEvObserver(obsID, evName, evHandler); err != nil {
		return "", err
	}

	return obsID, nil
}

func (hub *eventHub) UnObserve(ctx context.Context, obsID string, evName string) error {
	return hub.evManager.removeEvObserver(obsID, evName)
}

func (hub *eventHub) Stop() {
	hub.sync.Lock()
	defer hub.sync.Unlock()

	if hub.evPID == nil {
		return
	}
	hub.sysActor.Root.Poison(hub.evPID)
	hub.evPID = nil
}
