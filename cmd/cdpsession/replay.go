package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"cdpsession/internal/adapter/cdp"
	"cdpsession/internal/logger"
	"cdpsession/internal/service"
	"cdpsession/internal/storage"
	"cdpsession/pkg/api"
)

var (
	replayInput   string
	replayArchive bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed captured Network.requestWillBeSent events through a session",
	Long: `Reads a JSONL file where each line is the params object of a
Network.requestWillBeSent event, passes every request through the session
recorder and prints the retained history followed by session stats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("--input is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sc, err := cfg.SessionConfig()
		if err != nil {
			return err
		}
		l := logger.New(cfg.LoggerOptions())

		var opts []service.Option
		if replayArchive {
			db, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
			if err != nil {
				return err
			}
			defer storage.Close(db)
			opts = append(opts, service.WithArchive(storage.NewArchive(db)))
		}

		svc := api.NewService(l, opts...)
		defer svc.Close()

		id, err := svc.StartSession(sc)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(replayInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		var lineNo, recorded int
		var parseErr error
		gjson.ForEachLine(string(data), func(line gjson.Result) bool {
			lineNo++
			if line.Raw == "" {
				return true
			}
			var ev network.RequestWillBeSentReply
			if err := json.Unmarshal([]byte(line.Raw), &ev); err != nil {
				parseErr = fmt.Errorf("line %d: %w", lineNo, err)
				return false
			}
			ok, err := svc.Intercept(id, cdp.FromRequestWillBeSent(&ev))
			if err != nil {
				parseErr = err
				return false
			}
			if ok {
				recorded++
			}
			return true
		})
		if parseErr != nil {
			return parseErr
		}
		l.Info("回放完成", "sessionID", string(id), "lines", lineNo, "recorded", recorded)

		records, err := svc.Records(id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}

		if replayArchive {
			if _, err := svc.ArchiveRecords(context.Background(), id); err != nil {
				return err
			}
		}

		stats, err := svc.Stats(id)
		if err != nil {
			return err
		}
		return enc.Encode(stats)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "JSONL file of captured request events")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", false, "Persist retained records to the sqlite archive")
	rootCmd.AddCommand(replayCmd)
}
