package cmd

import (
	"log/slog"
	"time"

	"csc-scraper/notify"
	"csc-scraper/scheduler"

	"github.com/spf13/cobra"
)

var flagEvery time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scrape, download, extract and preprocess in order",
	Long: `Run executes every stage in order. With --every it keeps running on that
interval until interrupted, sending a summary to Telegram after each run when
TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set.

Examples:
  cscjobs run --pages 2
  cscjobs run --every 24h --fetcher http`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p := newPipeline(ctx)
		defer p.Close()

		var notifier notify.Notifier = notify.Nop{}
		if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
			tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			if err != nil {
				slog.Warn("telegram reports disabled", "err", err)
			} else {
				notifier = tg
			}
		}

		return scheduler.NewScheduler(p, notifier, cfg.Board.Name, flagEvery).Start(ctx)
	},
}

func init() {
	runCmd.Flags().DurationVar(&flagEvery, "every", 0, "Repeat the run on this interval (e.g. 24h); 0 runs once")
	rootCmd.AddCommand(runCmd)
}
