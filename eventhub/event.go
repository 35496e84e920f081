package eventhub

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	tplog "github.com/TopiaNetwork/blockproducer/log"
)

const (
	EventName_TxReceived    = "TxReceived"
	EventName_BlockProduced = "BlockProduced"
	EventName_RoundAborted  = "RoundAborted"
)

type EventTrigger interface {
	Trig(ctx context.Context, name string, data interface{}) error
}

type EventHandler func(ctx context.Context, data interface{}) error

type EventObserver interface {
	Observe(ctx context.Context, evName string, evHandler EventHandler) (string, error) //return observation id
	UnObserve(ctx context.Context, obsID string, evName string) error
}

type EventMsg struct {
	Name string
	Data interface{}
}

type Event struct {
	Name        string
	DataType    string
	sync        sync.RWMutex
	handlerList map[string]EventHandler //observation id -> EventHandler
}

func (ev *Event) checkData(data interface{}) error {
	if data == nil {
		return fmt.Errorf("Nil data of event %s", ev.Name)
	}
	if reflect.TypeOf(data).String() != ev.DataType {
		return fmt.Errorf("Invalid event data type: expected %s, actual %s", ev.DataType, reflect.TypeOf(data).String())
	}

	return nil
}

func (ev *Event) addObserver(obsID string, evHandler EventHandler) error {
	ev.sync.Lock()
	defer ev.sync.Unlock()

	if _, ok := ev.handlerList[obsID]; ok {
		return fmt.Errorf("Duplicated observation id: %s", obsID)
	}

	ev.handlerList[obsID] = evHandler

	return nil
}

func (ev *Event) removeObserver(obsID string) error {
	ev.sync.Lock()
	defer ev.sync.Unlock()

	if _, ok := ev.handlerList[obsID]; !ok {
		return fmt.Errorf("Unknown observation id %s of event %s", obsID, ev.Name)
	}
	delete(ev.handlerList, obsID)

	return nil
}

// process runs the observers one after another, ordered by observation id, so one event is fully
// handled before the actor takes the next one.
func (ev *Event) process(log tplog.Logger, ctx context.Context, data interface{}) error {
	if err := ev.checkData(data); err != nil {
		log.Errorf("%v", err)
		return err
	}

	ev.sync.RLock()
	obsIDs := make([]string, 0, len(ev.handlerList))
	for obsID := range ev.handlerList {
		obsIDs = append(obsIDs, obsID)
	}
	handlers := make(map[string]EventHandler, len(ev.handlerList))
	for obsID, h := range ev.handlerList {
		handlers[obsID] = h
	}
	ev.sync.RUnlock()

	sort.Strings(obsIDs)
	for _, obsID := range obsIDs {
		if err := handlers[obsID](ctx, data); err != nil {
			log.Warnf("Observer %s of event %s failed: %v", obsID, ev.Name, err)
		}
	}

	return nil
}
