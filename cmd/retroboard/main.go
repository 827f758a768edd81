// ABOUTME: CLI entrypoint for the retroboard client with watch, card, and board subcommands.
// ABOUTME: Wires together config loading, the REST client, the websocket stream, and the session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/2389-research/retroboard/api"
	"github.com/2389-research/retroboard/board"
	"github.com/2389-research/retroboard/config"
	"github.com/2389-research/retroboard/journal"
	"github.com/2389-research/retroboard/realtime"
	"github.com/2389-research/retroboard/session"
)

var version = "dev"

// cliConfig holds CLI configuration parsed from flags and positional
// arguments.
type cliConfig struct {
	configFile  string
	boardID     string
	showVersion bool
	command     string
	args        []string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("retroboard %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated cliConfig.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("retroboard", flag.ContinueOnError)
	fs.StringVar(&cfg.configFile, "config", "", "Path to YAML config file (optional; env vars override)")
	fs.StringVar(&cfg.boardID, "board", "", "Board ID to join")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.command = fs.Arg(0)
		cfg.args = fs.Args()[1:]
	}

	return cfg
}

// run dispatches to the subcommand. Returns an exit code: 0 for success, 1
// for failure.
func run(cli cliConfig) int {
	if cli.command == "" {
		printHelp(os.Stderr, version)
		return 0
	}
	if cli.boardID == "" {
		fmt.Fprintln(os.Stderr, "error: -board is required")
		return 1
	}

	cfg, err := config.Load(cli.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	sess, cleanup, err := openSession(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Join(ctx, cli.boardID); err != nil {
		fmt.Fprintf(os.Stderr, "error: join board %s: %v\n", cli.boardID, err)
		return 1
	}
	defer sess.Leave()

	if err := dispatch(ctx, sess, cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// openSession builds the session from config: REST client, stream client,
// cache, and the optional event journal.
func openSession(cfg *config.Config) (*session.Session, func(), error) {
	apiClient := api.NewClient(cfg.ServerURL, cfg.AuthToken)
	rtClient := realtime.NewClient(cfg.StreamURL,
		realtime.Identity{UserID: cfg.UserID, Alias: cfg.Alias},
		realtime.WithHeartbeatInterval(cfg.HeartbeatInterval),
		realtime.WithQueueCapacity(cfg.QueueCapacity),
	)

	identity := session.Identity{UserID: cfg.UserID, Alias: cfg.Alias}
	cache := board.NewCache()

	cleanup := func() { rtClient.Close() }
	var opts []session.SessionOption
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		opts = append(opts, session.WithRecorder(j))
		cleanup = func() {
			rtClient.Close()
			j.Close()
		}
	}

	return session.New(cache, apiClient, rtClient, identity, opts...), cleanup, nil
}

func dispatch(ctx context.Context, sess *session.Session, cli cliConfig) error {
	switch cli.command {
	case "watch":
		return cmdWatch(ctx, sess)
	case "show":
		return cmdShow(sess)
	case "add":
		return cmdAdd(ctx, sess, cli.args)
	case "edit":
		return cmdEdit(ctx, sess, cli.args)
	case "move":
		return cmdMove(ctx, sess, cli.args)
	case "delete":
		return cmdDelete(ctx, sess, cli.args)
	case "stack":
		return cmdStack(ctx, sess, cli.args)
	case "unstack":
		return cmdUnstack(ctx, sess, cli.args)
	case "react":
		return cmdReact(ctx, sess, cli.args)
	case "unreact":
		return cmdUnreact(ctx, sess, cli.args)
	case "rename":
		return cmdRename(ctx, sess, cli.args)
	default:
		return fmt.Errorf("unknown command %q (run with -help for usage)", cli.command)
	}
}

// cmdWatch prints the board, then tails reconciled state changes until
// interrupted.
func cmdWatch(ctx context.Context, sess *session.Session) error {
	printBoard(sess)

	events := sess.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Printf("%s  %s  %s\n",
				ev.Timestamp.Format("15:04:05"),
				ev.Payload.EventType(),
				describeEvent(ev.Payload),
			)
		}
	}
}

func cmdShow(sess *session.Session) error {
	printBoard(sess)
	return nil
}

func cmdAdd(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: add <column-id> <content> [-anon]")
	}
	anonymous := len(args) > 2 && args[2] == "-anon"
	card, err := sess.CreateCard(ctx, args[0], board.CardTypeFeedback, args[1], anonymous)
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", card.ID)
	return nil
}

func cmdEdit(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: edit <card-id> <content>")
	}
	_, err := sess.UpdateContent(ctx, args[0], args[1])
	return err
}

func cmdMove(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: move <card-id> <column-id>")
	}
	return sess.Drop(ctx, args[0], args[1], board.TargetColumn)
}

func cmdDelete(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: delete <card-id>")
	}
	return sess.DeleteCard(ctx, args[0])
}

func cmdStack(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: stack <card-id> <onto-card-id>")
	}
	return sess.Drop(ctx, args[0], args[1], board.TargetCard)
}

func cmdUnstack(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: unstack <card-id>")
	}
	_, err := sess.Unlink(ctx, args[0])
	return err
}

func cmdReact(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: react <card-id>")
	}
	return sess.AddReaction(ctx, args[0])
}

func cmdUnreact(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: unreact <card-id>")
	}
	return sess.RemoveReaction(ctx, args[0])
}

func cmdRename(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: rename <name>")
	}
	_, err := sess.RenameBoard(ctx, args[0])
	return err
}

// printBoard writes a column-grouped summary of the cached board to stdout.
func printBoard(sess *session.Session) {
	cache := sess.Cache()
	b, ok := cache.Board()
	if !ok {
		return
	}
	status := "open"
	if b.Closed {
		status = "closed"
	}
	fmt.Printf("%s (%s) — %d cards\n", b.Name, status, cache.Len())

	cards := cache.Cards()
	byColumn := make(map[string][]board.Card)
	for _, card := range cards {
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}
	for _, col := range b.Columns {
		fmt.Printf("\n## %s\n", col.Name)
		group := byColumn[col.ID]
		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		for _, card := range group {
			marker := ""
			if card.HasParent() {
				marker = "  └ "
			}
			fmt.Printf("%s[%s] %s (+%d)\n", marker, card.ID, card.Content, card.AggregatedReactions)
		}
	}
}

func describeEvent(p board.EventPayload) string {
	switch v := p.(type) {
	case board.CardCreatedPayload:
		return fmt.Sprintf("%s %q", v.Card.ID, v.Card.Content)
	case board.CardUpdatedPayload:
		return v.CardID
	case board.CardMovedPayload:
		return fmt.Sprintf("%s -> %s", v.CardID, v.ColumnID)
	case board.CardDeletedPayload:
		return v.CardID
	case board.ReactionAddedPayload:
		return fmt.Sprintf("%s (%d)", v.CardID, v.AggregatedReactions)
	case board.ReactionRemovedPayload:
		return fmt.Sprintf("%s (%d)", v.CardID, v.AggregatedReactions)
	case board.BoardRenamedPayload:
		return v.Name
	case board.ParticipantJoinedPayload:
		return v.UserID
	case board.ParticipantLeftPayload:
		return v.UserID
	default:
		return ""
	}
}
