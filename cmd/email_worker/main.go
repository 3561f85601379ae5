package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/config"
	"github.com/finwise/ledger-api/pkg/helpers"
	"github.com/finwise/ledger-api/pkg/mailer"
)

// Email worker: consumes EmailJob messages from RabbitMQ and delivers them
// through Mailgun. Run alongside the API server; the server only publishes.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("failed to open channel")
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		logger.WithError(err).Fatal("failed to declare queue")
	}
	if err := ch.Qos(8, 0, false); err != nil {
		logger.WithError(err).Fatal("failed to set qos")
	}

	deliveries, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("failed to start consumer")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down email worker")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handle(ctx, logger, mg, cfg, d)
		}
	}
}

func handle(ctx context.Context, logger *logrus.Logger, mg *mailer.Mailgun, cfg *config.Config, d amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.WithError(err).Warn("dropping malformed email job")
		_ = d.Reject(false)
		return
	}

	subject, text, html, err := mailer.Render(&job)
	if err != nil {
		logger.WithError(err).WithField("template", job.Template).Warn("dropping unrenderable email job")
		_ = d.Reject(false)
		return
	}

	if !cfg.MailSendEnabled {
		logger.WithFields(logrus.Fields{"to": job.To, "subject": subject}).Info("mail sending disabled, job acked without delivery")
		_ = d.Ack(false)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = mg.Send(sendCtx, job.To, subject, text, html)
	cancel()
	if err != nil {
		logger.WithError(err).WithField("to", job.To).Error("failed to send email, requeueing once")
		// Requeue unless this is already a redelivery, to avoid a hot loop.
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	logger.WithFields(logrus.Fields{"to": job.To, "subject": subject}).Info("email sent")
	_ = d.Ack(false)
}
