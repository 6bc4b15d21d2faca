package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinicore/clinicremind/internal/appointments"
	"github.com/clinicore/clinicremind/internal/consumer"
	"github.com/clinicore/clinicremind/internal/handlers"
	"github.com/clinicore/clinicremind/internal/inbox"
	"github.com/clinicore/clinicremind/internal/logstore"
	"github.com/clinicore/clinicremind/internal/model"
	"github.com/clinicore/clinicremind/internal/outbox"
	"github.com/clinicore/clinicremind/internal/reminder"
	"github.com/clinicore/clinicremind/internal/sweeplock"
	"github.com/clinicore/clinicremind/internal/transport"
	"github.com/clinicore/clinicremind/libs/config"
	"github.com/clinicore/clinicremind/libs/db"
	"github.com/clinicore/clinicremind/libs/httpx"
	"github.com/clinicore/clinicremind/libs/kafkax"
	otelx "github.com/clinicore/clinicremind/libs/otel"
	"github.com/clinicore/clinicremind/libs/runtime"
)

type appointmentBooked struct {
	AppointmentID string `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	DoctorName    string `json:"doctor_name"`
	StartTime     string `json:"start_time"`
	VisitType     string `json:"visit_type"`
}

type appointmentCancelled struct {
	AppointmentID string `json:"appointment_id"`
}

func reminderConfigFromEnv() reminder.Config {
	cfg := reminder.DefaultConfig()

	if raw := config.String("REMINDER_CHANNELS", ""); raw != "" {
		var channels []reminder.Channel
		for _, part := range strings.Split(raw, ",") {
			ch, err := reminder.ParseChannel(strings.ToUpper(strings.TrimSpace(part)))
			if err != nil {
				continue
			}
			channels = append(channels, ch)
		}
		if len(channels) > 0 {
			cfg.Channels = channels
		}
	}

	cfg.Timing.ConfirmationDelay = config.Duration("REMINDER_CONFIRMATION_DELAY", cfg.Timing.ConfirmationDelay)
	cfg.Timing.PreVisitLead = config.Duration("REMINDER_PRE_VISIT_LEAD", cfg.Timing.PreVisitLead)
	cfg.Timing.DayOfLead = config.Duration("REMINDER_DAY_OF_LEAD", cfg.Timing.DayOfLead)
	cfg.Timing.FollowUpDelay = config.Duration("REMINDER_FOLLOW_UP_DELAY", cfg.Timing.FollowUpDelay)
	cfg.CooldownDays = config.Int("SWEEP_COOLDOWN_DAYS", cfg.CooldownDays)
	cfg.LookaheadDays = config.Int("SWEEP_LOOKAHEAD_DAYS", cfg.LookaheadDays)
	return cfg
}

func buildTransports() reminder.Registry {
	registry := reminder.Registry{}

	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		registry[reminder.ChannelSMS] = transport.NewSMSWebhook(
			config.String("SMS_WEBHOOK_URL", ""),
			config.String("SMS_WEBHOOK_TOKEN", ""),
		)
	default:
		registry[reminder.ChannelSMS] = transport.NoopSMS{}
	}

	switch strings.ToLower(config.String("CHAT_PROVIDER", "noop")) {
	case "webhook":
		registry[reminder.ChannelChat] = transport.NewChatWebhook(
			config.String("CHAT_WEBHOOK_URL", ""),
			config.String("CHAT_WEBHOOK_TOKEN", ""),
		)
	default:
		registry[reminder.ChannelChat] = transport.NoopChat{}
	}

	registry[reminder.ChannelEmail] = transport.NewSMTPEmail(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@clinicremind.local"),
		config.String("SMTP_SUBJECT", "Appointment reminder"),
	)
	return registry
}

func writeDispatchEvent(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, appt model.Appointment, entry reminder.LogEntry) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	channels := make([]string, 0, len(entry.Channels))
	for _, ch := range entry.Channels {
		channels = append(channels, string(ch))
	}
	payload, err := json.Marshal(map[string]any{
		"reminder_id":    entry.ID,
		"appointment_id": entry.AppointmentID,
		"patient_name":   appt.PatientName,
		"kind":           string(entry.Kind),
		"channels":       channels,
		"status":         string(entry.Status),
		"sent_at":        entry.SentAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	eventType := outbox.EventReminderSent
	if entry.Status == reminder.StatusFailed {
		eventType = outbox.EventReminderFailed
	}
	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "reminder",
		AggregateID:   entry.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "reminderd")
	port, err := config.Port("PORT", "8086")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	inboxRepo := inbox.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool)
	logStore := logstore.NewPostgres(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	cfg := reminderConfigFromEnv()
	clock := reminder.SystemClock()

	dispatcher := reminder.NewDispatcher(buildTransports(), logStore, clock, logger)
	dispatcher.OnResult = func(ctx context.Context, appt model.Appointment, entry reminder.LogEntry) {
		if err := writeDispatchEvent(ctx, pool, outboxRepo, appt, entry); err != nil {
			logger.Error("failed to enqueue reminder event", "err", err, "appointment_id", entry.AppointmentID)
		}
	}

	engine := reminder.NewEngine(dispatcher, clock, logger)
	registry := reminder.NewScheduleRegistry()
	sweeper := reminder.NewSweeper(apptRepo, logStore, dispatcher, cfg, logger)

	bookedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "reminderd"),
		Topic:   config.String("KAFKA_BOOKED_TOPIC", "appointment.booked.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload appointmentBooked
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booked payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || payload.PatientName == "" || payload.StartTime == "" {
			logger.Error("missing booked fields", "appointment_id", payload.AppointmentID)
			return nil
		}
		startTime, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			logger.Error("invalid start_time", "err", err)
			return nil
		}

		appt := model.Appointment{
			ID:          payload.AppointmentID,
			PatientName: payload.PatientName,
			Phone:       payload.Phone,
			Email:       payload.Email,
			DoctorName:  payload.DoctorName,
			StartTime:   startTime,
			Status:      model.StatusScheduled,
			VisitType:   payload.VisitType,
			CreatedAt:   time.Now().UTC(),
		}
		if err := apptRepo.Upsert(ctx, appt); err != nil {
			return err
		}
		// Replace cancels any timers armed by an earlier booking of this id.
		registry.Replace(engine.Schedule(ctx, appt, cfg))
		return nil
	})
	go bookedConsumer.Run(ctx)

	cancelledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "reminderd"),
		Topic:   config.String("KAFKA_CANCELLED_TOPIC", "appointment.cancelled.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload appointmentCancelled
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid cancelled payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" {
			logger.Error("missing appointment_id on cancelled event")
			return nil
		}
		registry.Cancel(payload.AppointmentID)
		return apptRepo.SetStatus(ctx, payload.AppointmentID, model.StatusCancelled)
	})
	go cancelledConsumer.Run(ctx)

	var lock *sweeplock.Lock
	if rdb != nil {
		lock = sweeplock.New(rdb, config.String("SWEEP_LOCK_KEY", ""))
	}
	holder := uuid.NewString()
	lockTTL := config.Duration("SWEEP_LOCK_TTL", 10*time.Minute)

	runSweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if lock != nil {
			ok, err := lock.TryAcquire(sweepCtx, holder, lockTTL)
			if err != nil {
				logger.Error("sweep lock error", "err", err)
				return
			}
			if !ok {
				logger.Info("sweep skipped, another instance holds the lock")
				return
			}
			defer func() {
				if err := lock.Release(sweepCtx, holder); err != nil {
					logger.Error("sweep lock release failed", "err", err)
				}
			}()
		}
		if _, err := sweeper.Sweep(sweepCtx, time.Now()); err != nil {
			logger.Error("sweep failed", "err", err)
		}
	}

	cronEngine := cron.New()
	if _, err := cronEngine.AddFunc(config.String("SWEEP_CRON", "0 9 * * *"), runSweep); err != nil {
		logger.Error("invalid SWEEP_CRON", "err", err)
		panic(err)
	}
	cronEngine.Start()
	defer cronEngine.Stop()

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.New(sweeper, logStore, clock).Register(mux)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT_PER_MINUTE", 60), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}
	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, "reminderd")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
