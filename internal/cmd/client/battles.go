package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rzbill/battlelog/internal/auditlog"
	cfgpkg "github.com/rzbill/battlelog/internal/config"
	"github.com/rzbill/battlelog/internal/normalize"
	grpcserver "github.com/rzbill/battlelog/internal/server/grpc"
)

func newSubmitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit raw turn logs",
		Long: "Submit a JSON array of {\"lines\": [...], \"time\": n} turns from --file, " +
			"or a plain text file as a single turn with --lines.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			linesFile, _ := cmd.Flags().GetString("lines")
			var logs []normalize.RawTurnLog
			switch {
			case file != "" && linesFile != "":
				return fmt.Errorf("use either --file or --lines")
			case file != "":
				b, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(b, &logs); err != nil {
					return fmt.Errorf("decode %s: %w", file, err)
				}
			case linesFile != "":
				b, err := readInput(cmd, linesFile)
				if err != nil {
					return err
				}
				turn := normalize.RawTurnLog{Lines: splitLines(string(b))}
				if cmd.Flags().Changed("time") {
					t, _ := cmd.Flags().GetFloat64("time")
					turn.Time = &t
				}
				logs = []normalize.RawTurnLog{turn}
			default:
				return fmt.Errorf("--file or --lines is required")
			}
			res, err := getTransport().Submit(cmd.Context(), logs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("file", "", "JSON file of turns (- for stdin)")
	cmd.Flags().String("lines", "", "Text file submitted as one turn (- for stdin)")
	cmd.Flags().Float64("time", 0, "Turn time when using --lines")
	return cmd
}

func newBattlesCommand() *cobra.Command {
	battlesCmd := &cobra.Command{Use: "battles", Short: "Battle operations"}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List battles in creation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			battles, err := getTransport().ListBattles(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), battles)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tACTIVE\tTURNS\tUNPARSED")
			for _, b := range battles {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\n", b.ID,
					humanize.Time(time.UnixMilli(b.CreatedAtMs)), b.Active, b.Turns, b.Unparsed)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	battlesCmd.AddCommand(listCmd)
	return battlesCmd
}

func newReportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reports <battle-id>",
		Short: "Print the reports of a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := getTransport().GetReports(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res.Reports)
		},
	}
}

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <battle-id>",
		Short: "Print the decoded events of a battle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			events, err := getTransport().GetEvents(cmd.Context(), grpcserver.GetEventsRequest{
				BattleID: args[0],
				Filter:   filter,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().String("filter", "", `CEL expression over event_type, data, turn and time (e.g. event_type == "SPAWN")`)
	cmd.Flags().Int("limit", 0, "Maximum events to print")
	return cmd
}

func newAuditCommand() *cobra.Command {
	auditCmd := &cobra.Command{Use: "audit", Short: "Audit mirror operations"}

	showCmd := &cobra.Command{
		Use:   "show <battle-id>",
		Short: "Summarize a local audit mirror file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			f, err := auditlog.ReadFile(filepath.Join(dir, args[0]+auditlog.Ext))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.Header != nil {
				fmt.Fprintf(out, "battle:      %s\n", f.Header.Battle.ID)
				if f.Header.Battle.TimeOrigin != nil {
					fmt.Fprintf(out, "time origin: %g\n", *f.Header.Battle.TimeOrigin)
				}
			}
			fmt.Fprintf(out, "submissions: %d\n", len(f.Submissions))
			fmt.Fprintf(out, "size:        %s\n", humanize.Bytes(uint64(f.Size)))
			if lines, _ := cmd.Flags().GetBool("lines"); lines {
				for _, s := range f.Submissions {
					fmt.Fprintln(out, string(s))
				}
			}
			return nil
		},
	}
	showCmd.Flags().String("dir", filepath.Join(cfgpkg.DefaultDataDir(), "audit"), "Audit directory")
	showCmd.Flags().Bool("lines", false, "Print every recorded turn")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Replay an audit directory into an empty server store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			res, err := getTransport().Rebuild(cmd.Context(), abs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	rebuildCmd.Flags().String("dir", "", "Audit directory to replay (must not be the server's own)")

	auditCmd.AddCommand(showCmd, rebuildCmd)
	return auditCmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
