package eventhub

import (
	"context"

	"github.com/AsynkronIT/protoactor-go/actor"

	tplog "github.com/TopiaNetwork/blockproducer/log"
)

type actorCtxKey string

const (
	ActorCtxKey_ID   actorCtxKey = "actorID"
	ActorCtxKey_Addr actorCtxKey = "actorAddr"
)

// EventActor serializes event delivery: observers see events in trigger order.
type EventActor struct {
	log       tplog.Logger
	pid       *actor.PID
	evManager *eventManager
}

func createEventActor(log tplog.Logger, sysActor *actor.ActorSystem, name string, evManager *eventManager) (*actor.PID, error) {
	evActor := &EventActor{
		log:       log,
		evManager: evManager,
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return evActor
	})
	pid, err := sysActor.Root.SpawnNamed(props, name)

	evActor.pid = pid

	return pid, err
}

func (ea *EventActor) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actor.Started:
		ea.log.Debug("Event actor started")
	case *actor.Stopping:
		ea.log.Debug("Event actor stopping")
	case *EventMsg:
		ea.log.Debugf("Received event %s", msg.Name)
		ctx := context.WithValue(context.Background(), ActorCtxKey_ID, actorCtx.Self().Id)
		ctx = context.WithValue(ctx, ActorCtxKey_Addr, actorCtx.Self().Address)
		ea.evManager.dispatch(ctx, ea.log, msg)
	}
}
