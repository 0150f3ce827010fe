package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/client"
	"github.com/qrave1/ChatRoulette/internal/domain/models"
	"github.com/qrave1/ChatRoulette/internal/infra/adapters/pion"
)

const dialTimeout = 10 * time.Second

type botFlags struct {
	server    string
	audio     bool
	video     bool
	interests []string
	echo      bool
	autoNext  bool
	greeting  string
	loopback  bool
	debug     bool
}

var bot botFlags

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run a headless participant that pairs, negotiates and answers with silence or echo",
	Run: func(cmd *cobra.Command, args []string) {
		runBot(cmd.Context(), bot)
	},
}

func init() {
	f := botCmd.Flags()
	f.StringVar(&bot.server, "server", "http://localhost:3000", "server base url")
	f.BoolVar(&bot.audio, "audio", true, "publish an audio track")
	f.BoolVar(&bot.video, "video", false, "publish a video track")
	f.StringSliceVar(&bot.interests, "interests", nil, "interests for matching, comma separated")
	f.BoolVar(&bot.echo, "echo", false, "send inbound media back instead of silence")
	f.BoolVar(&bot.autoNext, "auto-next", true, "look for a new partner after the current one leaves")
	f.StringVar(&bot.greeting, "greeting", "", "text sent to every new partner")
	f.BoolVar(&bot.loopback, "loopback", false, "gather loopback ICE candidates")
	f.BoolVar(&bot.debug, "debug", false, "debug logs")

	rootCmd.AddCommand(botCmd)
}

func runBot(parent context.Context, flags botFlags) {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogger(flags.debug)

	cfg, err := config.NewClient()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	conn, participantID, err := client.Dial(dialCtx, flags.server)
	dialCancel()
	if err != nil {
		slog.Error("connect to server", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	log := slog.With(slog.String(constant.ParticipantID, participantID.String()))
	log.Info("bot connected", slog.String("server", flags.server))

	factory := pion.NewPeerFactory(pion.FactoryConfig{
		ICEServers:      cfg.ICEServers(),
		Echo:            flags.echo,
		IncludeLoopback: flags.loopback,
		Logger:          log,
	})

	agent := client.NewAgent(conn, factory, client.Config{
		Media:       models.MediaPrefs{Audio: flags.audio, Video: flags.video},
		Interests:   flags.interests,
		Negotiation: cfg.Negotiation,
		AutoNext:    flags.autoNext,
		Greeting:    flags.greeting,
	})

	if err = agent.Run(ctx); err != nil {
		log.Error("bot stopped", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	log.Info("bot stopped")
}
