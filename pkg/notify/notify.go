// Package notify delivers fire-and-forget order notifications through a
// dedicated actor, keeping user-facing messaging off the request path.
package notify

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Messages.
type OrderConfirmed struct {
	OrderID string
	UserID  string
}

type OrderRolledBack struct {
	OrderID string
	Reason  string
}

// NotificationActor handles order notifications
type NotificationActor struct {
	logger *zap.Logger
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderConfirmed:
		// Notification channels (email, sms, push) hang off here.
		a.logger.Info("Notifying order confirmation",
			zap.String("order_id", msg.OrderID),
			zap.String("user_id", msg.UserID))

	case *OrderRolledBack:
		a.logger.Info("Notifying order rollback",
			zap.String("order_id", msg.OrderID),
			zap.String("reason", msg.Reason))

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped")
	}
}

// Service owns the actor system and exposes a plain-Go API to the rest
// of the application.
type Service struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func NewService(logger *zap.Logger) (*Service, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor")}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	return &Service{system: system, pid: pid}, nil
}

func (s *Service) OrderConfirmed(orderID, userID string) {
	s.system.Root.Send(s.pid, &OrderConfirmed{OrderID: orderID, UserID: userID})
}

func (s *Service) OrderRolledBack(orderID, reason string) {
	s.system.Root.Send(s.pid, &OrderRolledBack{OrderID: orderID, Reason: reason})
}

func (s *Service) Shutdown() {
	s.system.Root.Stop(s.pid)
	s.system.Shutdown()
}
