package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamactl/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := buildRootCmd(a)
	if err := root.ExecuteContext(ctx); err != nil {
		// Errors are already formatted; cobra printing is silenced.
		log := a.logger()
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "llamactl",
		Short:         "Manage local gguf models and a llama-server process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (.yaml/.json/.toml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (defaults LLAMACTL_LOG_LEVEL or info)")
	root.PersistentFlags().String("models-dir", "", "Directory holding gguf model files")
	root.PersistentFlags().String("data-dir", "", "Directory for catalog db, state file and logs")
	root.PersistentFlags().String("server-bin", "", "llama-server executable")
	root.PersistentFlags().Int("port", 0, "Port of the inference server slot")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init(cmd)
	}

	root.AddCommand(
		newPullCmd(a),
		newRmCmd(a),
		newLsCmd(a),
		newAliasCmd(a),
		newImportCmd(a),
		newResetCmd(a),
		newRunCmd(a),
		newChatCmd(a),
		newEmbedCmd(a),
		newTokenizeCmd(a),
		newDetokenizeCmd(a),
		newHealthCmd(a),
		newPropsCmd(a),
		newPsCmd(a),
		newKillCmd(a),
		newRecentCmd(a),
		newTrendingCmd(a),
		newServeCmd(a),
	)
	return root
}

// flagConfig extracts the persistent flag overrides as a Config overlay.
func flagConfig(cmd *cobra.Command) config.Config {
	var over config.Config
	flags := cmd.Flags()
	if v, _ := flags.GetString("log-level"); v != "" {
		over.LogLevel = v
	}
	if v, _ := flags.GetString("models-dir"); v != "" {
		over.ModelsDir = v
	}
	if v, _ := flags.GetString("data-dir"); v != "" {
		over.DataDir = v
	}
	if v, _ := flags.GetString("server-bin"); v != "" {
		over.ServerBin = v
	}
	if v, _ := flags.GetInt("port"); v != 0 {
		over.Port = v
	}
	return over
}

func firstOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

func joinedArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
