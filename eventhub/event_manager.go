package eventhub

import (
	"context"
	"fmt"
	"sync"

	tplog "github.com/TopiaNetwork/blockproducer/log"
)

type eventManager struct {
	sync     sync.RWMutex
	eventMap map[string]*Event
}

func newEventManager() *eventManager {
	return &eventManager{
		eventMap: make(map[string]*Event),
	}
}

func (evc *eventManager) registerEvent(name string, dataType string) error {
	evc.sync.Lock()
	defer evc.sync.Unlock()

	if _, ok := evc.eventMap[name]; ok {
		return fmt.Errorf("Duplicated event name: %s", name)
	}

	evc.eventMap[name] = &Event{
		Name:        name,
		DataType:    dataType,
		handlerList: make(map[string]EventHandler),
	}

	return nil
}

func (evc *eventManager) getEvent(name string) (*Event, error) {
	evc.sync.RLock()
	defer evc.sync.RUnlock()

	if ev, ok := evc.eventMap[name]; ok {
		return ev, nil
	}

	return nil, fmt.Errorf("Unsupported event %s", name)
}

func (evc *eventManager) addEvObserver(obsID string, evName string, evHandler EventHandler) error {
	ev, err := evc.getEvent(evName)
	if err != nil {
		return err
	}

	return ev.addObserver(obsID, evHandler)
}

func (evc *eventManager) removeEvObserver(obsID string, evName string) error {
	ev, err := evc.getEvent(evName)
	if err != nil {
		return err
	}

	return ev.removeObserver(obsID)
}

func (evc *eventManager) dispatch(ctx context.Context, log tplog.Logger, evMsg *EventMsg) error {
	ev, err := evc.getEvent(evMsg.Name)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	return ev.process(log, ctx, evMsg.Data)
}
