package notificator

import (
	"context"

	"print-dispatcher/internal/connections/rabbitmq"
	"print-dispatcher/internal/microservices/notificator/service"
)

func Start(ctx context.Context, rmqClient *rabbitmq.Client) error {
	svc := service.New(rmqClient)
	return svc.NotificatorService.Notify(ctx)
}
