package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/handler"
	"github.com/tbxark/tgform/lang"
	"github.com/tbxark/tgform/store"
	"github.com/tbxark/tgform/telegram"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Debug: cfg.Debug}); err != nil {
		logger.Fatal("sentry init", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := startApp(ctx, cfg, logger); err != nil {
		sentry.CaptureException(err)
		logger.Fatal("start app", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}

func openKV(ctx context.Context, cfg *Config) (store.KV, func(), error) {
	switch {
	case cfg.RedisURL != "":
		kv, err := store.NewRedisKVFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case cfg.MongoDBURI != "":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, err
		}
		kv := store.NewMongoKV(client.Database(cfg.MongoDBDatabase), "sessions")
		if err := kv.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return store.NewMemoryKV(time.Minute), func() {}, nil
}

func startApp(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	kv, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	bundle, err := lang.LoadBundle(locales, cfg.DefaultLanguage, "locales/en.yaml", "locales/ru.yaml")
	if err != nil {
		return err
	}
	s, err := newSurvey(bundle)
	if err != nil {
		return err
	}
	s.config.TTL = cfg.FormTTL
	logger.Debug("survey graph", zap.String("graph", s.form.FormatGraph()))

	var botOpts []telego.BotOption
	if cfg.Debug {
		botOpts = append(botOpts, telego.WithDefaultDebugLogger())
	}
	bot, err := telego.NewBot(cfg.BotToken, botOpts...)
	if err != nil {
		return err
	}
	gateway := telegram.NewGateway(bot, nil)
	userLangs := lang.NewStore(kv, "formbot", lang.NewMatcher(languages, cfg.DefaultLanguage))

	h, err := handler.New(handler.Options{
		Name:      "survey",
		Form:      s.form,
		Config:    s.config,
		KV:        kv,
		Gateway:   gateway,
		Languages: userLangs,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	h.OnCompleted(func(ctx context.Context, ec handler.ExitContext) error {
		summary, err := s.form.ResultToHTML(ec.Result, ec.Language)
		if err != nil {
			return err
		}
		text := s.msgs.text("summary_title").String(ec.Language) + "\n\n" + summary
		if _, err := gateway.Send(ctx, ec.UserID, text, form.Markup{Kind: form.MarkupRemove}); err != nil {
			return err
		}
		logger.Info("survey completed", zap.Int64("user_id", ec.UserID), zap.Any("export", s.form.ResultToExport(ec.Result)))
		return nil
	})
	h.OnCancelled(func(ctx context.Context, ec handler.ExitContext) error {
		logger.Info("survey cancelled", zap.Int64("user_id", ec.UserID), zap.Int("answers", ec.Result.Len()))
		return nil
	})

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return err
	}
	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return err
	}
	bh.Use(th.PanicRecovery())
	telegram.NewRouter(logger, h).Register(bh)
	telegram.StartOn(bh, "start", h)
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		msg := telegram.Message(message)
		l, err := userLangs.Resolve(ctx, msg.UserID, msg.LanguageCode)
		if err != nil {
			return err
		}
		_, err = gateway.Send(ctx, msg.UserID, s.msgs.text("help").String(l), form.Markup{Kind: form.MarkupNone})
		return err
	}, th.CommandEqual("help"))
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		msg := telegram.Message(message)
		reply := "language_set"
		fields := strings.Fields(msg.Text)
		if len(fields) < 2 || userLangs.Set(ctx, msg.UserID, lang.Language(fields[1])) != nil {
			reply = "language_unknown"
		}
		l, err := userLangs.Resolve(ctx, msg.UserID, msg.LanguageCode)
		if err != nil {
			return err
		}
		_, err = gateway.Send(ctx, msg.UserID, s.msgs.text(reply).String(l), form.Markup{Kind: form.MarkupNone})
		return err
	}, th.CommandEqual("language"))

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = bh.StopWithContext(stopCtx)
	}()
	logger.Info("formbot started", zap.Bool("debug", cfg.Debug))
	return bh.Start()
}
