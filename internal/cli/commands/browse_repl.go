package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/node"
	"github.com/leapstack-labs/labbrowse/internal/pipeline"
	"github.com/leapstack-labs/labbrowse/internal/refresh"
	"github.com/leapstack-labs/labbrowse/internal/render"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/leapstack-labs/labbrowse/internal/state"
	"golang.org/x/term"
)

const browsePrompt = "labbrowse> "

// errQuit ends the session.
var errQuit = errors.New("quit")

// session is one interactive browse session driving a single loader node.
type session struct {
	cmdCtx *CommandContext
	r      *render.Renderer
	out    *lockedWriter
	loader *node.Loader
	store  *state.SQLiteStore
}

type replCommand struct {
	usage string
	help  string
	run   func(s *session, ctx context.Context, args []string) error
}

var replCommands map[string]replCommand

// replOrder is the order commands appear in help.
var replOrder = []string{
	"dates", "group", "search", "ls", "pick", "clear", "load", "show",
	"refresh", "opts", "info", "history", "rescan", "help", "quit",
}

func init() {
	replCommands = map[string]replCommand{
		"dates":   {"dates", "List date groups", (*session).cmdDates},
		"group":   {"group <date...>|all", "Choose the dates whose datasets are listed", (*session).cmdGroup},
		"search":  {"search [regex]", "Filter the list; no argument clears the search", (*session).cmdSearch},
		"ls":      {"ls", "List the visible datasets", (*session).cmdList},
		"pick":    {"pick <n|label|path>", "Choose the dataset to load", (*session).cmdPick},
		"clear":   {"clear", "Deselect the dataset", (*session).cmdClear},
		"load":    {"load", "Load the chosen dataset and print it", (*session).cmdLoad},
		"show":    {"show", "Print the last loaded data again", (*session).cmdShow},
		"refresh": {"refresh [off|2s|5s|10s|1m|10m]", "Show or set the auto-refresh interval", (*session).cmdRefresh},
		"opts":    {"opts [op=none|average] [dim=<name>] [grid=true|false]", "Show or set load options", (*session).cmdOpts},
		"info":    {"info", "Show the chosen path, search and last status", (*session).cmdInfo},
		"history": {"history [n]", "Show recent loads", (*session).cmdHistory},
		"rescan":  {"rescan", "Rescan the data root now", (*session).cmdRescan},
		"help":    {"help", "Show this help", (*session).cmdHelp},
		"quit":    {"quit", "Leave the session", func(*session, context.Context, []string) error { return errQuit }},
	}
	replCommands["exit"] = replCommands["quit"]
}

// run reads commands from in until quit or end of input.
func (s *session) run(ctx context.Context, in io.Reader) error {
	if !isTerminal(in) {
		return s.runScript(ctx, in)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          browsePrompt,
		HistoryFile:     filepath.Join(filepath.Dir(s.cmdCtx.Cfg.HistoryPath), "browse_history"),
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// background output must redraw the prompt
	s.out.swap(rl.Stdout())

	s.r.Printf("labbrowse (data root: %s)\n", s.cmdCtx.Cfg.DataRoot)
	s.r.Println("Type help for commands, quit to exit")
	_ = s.cmdDates(ctx, nil)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.exec(ctx, line) {
			return nil
		}
	}
}

func (s *session) runScript(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if s.exec(ctx, sc.Text()) {
			return nil
		}
	}
	return sc.Err()
}

// exec runs one command line and reports whether the session should end.
// Command errors are printed; they never end the session.
func (s *session) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false
	}
	name := strings.ToLower(fields[0])
	c, ok := replCommands[name]
	if !ok {
		s.r.Status(fmt.Sprintf("Unknown command: %s (type help for commands)", name), true)
		return false
	}
	args := fields[1:]
	if name == "search" || name == "pick" {
		// the regex or label may contain spaces
		args = nil
		if rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0])); rest != "" {
			args = []string{rest}
		}
	}

	err := c.run(s, ctx, args)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		s.r.Status(fmt.Sprintf("Error: %v", err), true)
	}
	return false
}

// view returns the visible datasets and the chosen path.
func (s *session) view() (items []selection.Item, active string) {
	_ = s.loader.Select(func(st *selection.State) error {
		items, active = st.Visible(), st.ActivePath()
		return nil
	})
	return items, active
}

func (s *session) cmdDates(context.Context, []string) error {
	var groups catalog.Groups
	_ = s.loader.Select(func(st *selection.State) error {
		groups = st.Groups()
		return nil
	})
	return s.r.Groups(groups)
}

func (s *session) cmdGroup(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", replCommands["group"].usage)
	}
	err := s.loader.Select(func(st *selection.State) error {
		keys, err := dateKeys(st.Groups(), args, len(args) == 1 && args[0] == "all")
		if err != nil {
			return err
		}
		st.SelectGroups(keys...)
		return nil
	})
	if err != nil {
		return err
	}
	return s.cmdList(nil, nil)
}

func (s *session) cmdSearch(_ context.Context, args []string) error {
	term := ""
	if len(args) > 0 {
		term = args[0]
	}
	var info string
	err := s.loader.Select(func(st *selection.State) error {
		if err := st.SetSearch(term); err != nil {
			return err
		}
		info = st.SearchInfo()
		return nil
	})
	if err != nil {
		return err
	}
	s.r.Println(s.r.Styles().Muted.Render(info))
	return s.cmdList(nil, nil)
}

func (s *session) cmdList(context.Context, []string) error {
	items, active := s.view()
	return s.r.Items(items, active)
}

func (s *session) cmdPick(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", replCommands["pick"].usage)
	}
	arg := args[0]
	var info string
	err := s.loader.Select(func(st *selection.State) error {
		if err := st.SelectLabel(arg); err != nil {
			path, perr := pickTarget(st.Visible(), arg)
			if perr != nil {
				return perr
			}
			if err := st.SelectPath(path); err != nil {
				return err
			}
		}
		info = st.Info()
		return nil
	})
	if err != nil {
		return err
	}
	s.r.Println(info)
	return nil
}

// pickTarget resolves a list number, a label without its padding, or a folder path
// against the visible datasets.
func pickTarget(items []selection.Item, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(items) {
			return "", fmt.Errorf("no dataset #%d (%d listed)", n, len(items))
		}
		return items[n-1].Path, nil
	}
	for _, it := range items {
		if strings.TrimSpace(it.Label) == arg || it.Path == filepath.Clean(arg) {
			return it.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", selection.ErrUnknownLabel, arg)
}

func (s *session) cmdClear(context.Context, []string) error {
	return s.loader.Select(func(st *selection.State) error {
		st.ClearPath()
		return nil
	})
}

func (s *session) cmdLoad(ctx context.Context, _ []string) error {
	res, err := s.loader.Load(ctx)
	if err != nil {
		// already reported as the status line
		return nil
	}
	return s.r.Processed(res.Data, s.cmdCtx.Cfg.ListSize)
}

func (s *session) cmdShow(context.Context, []string) error {
	res, err := s.loader.Last()
	if err != nil {
		return err
	}
	if res.Data == nil {
		s.r.Println(s.loader.Status())
		return nil
	}
	return s.r.Processed(res.Data, s.cmdCtx.Cfg.ListSize)
}

func (s *session) cmdRefresh(ctx context.Context, args []string) error {
	if len(args) > 0 {
		iv, err := refresh.ParseInterval(strings.Join(args, " "))
		if err != nil {
			return err
		}
		s.loader.SetRefresh(ctx, iv)
	}
	s.r.Printf("Auto-refresh: %s\n", s.loader.Refresh())
	return nil
}

func (s *session) cmdOpts(_ context.Context, args []string) error {
	opts := s.loader.Options()
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "op", "operation":
			op, err := pipeline.ParseOperation(val)
			if err != nil {
				return err
			}
			opts.Operation = op
		case "dim", "dimension":
			opts.Dimension = val
		case "grid":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid grid value %q: %w", val, err)
			}
			opts.GridOnLoad = b
		default:
			return fmt.Errorf("unknown option %q (want op, dim or grid)", key)
		}
	}
	if len(args) > 0 {
		s.loader.SetOptions(opts)
	}
	s.r.Printf("op=%s dim=%s grid=%t\n", opts.Operation, opts.Dimension, opts.GridOnLoad)
	return nil
}

func (s *session) cmdInfo(context.Context, []string) error {
	var path, search string
	_ = s.loader.Select(func(st *selection.State) error {
		path, search = st.Info(), st.SearchInfo()
		return nil
	})
	s.r.Println(path)
	s.r.Println(search)
	s.r.Println(s.loader.Status())
	s.r.Printf("Auto-refresh: %s\n", s.loader.Refresh())
	return nil
}

func (s *session) cmdHistory(ctx context.Context, args []string) error {
	if s.store == nil {
		return fmt.Errorf("history is disabled")
	}
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}
	runs, err := s.store.Recent(ctx, n)
	if err != nil {
		return err
	}
	return s.r.History(runs)
}

func (s *session) cmdRescan(ctx context.Context, _ []string) error {
	if err := s.rescan(ctx); err != nil {
		return err
	}
	return s.cmdDates(ctx, nil)
}

func (s *session) cmdHelp(context.Context, []string) error {
	s.r.Println("Commands:")
	for _, name := range replOrder {
		c := replCommands[name]
		s.r.Printf("  %-56s %s\n", c.usage, c.help)
	}
	return nil
}

func (s *session) completer() *readline.PrefixCompleter {
	dates := readline.PcItemDynamic(func(string) []string {
		var labels []string
		_ = s.loader.Select(func(st *selection.State) error {
			for _, k := range st.Groups().Keys() {
				labels = append(labels, k.Label())
			}
			return nil
		})
		return append(labels, "all")
	})
	var intervals []readline.PrefixCompleterInterface
	for _, iv := range []string{"off", "2s", "5s", "10s", "1m", "10m"} {
		intervals = append(intervals, readline.PcItem(iv))
	}

	var items []readline.PrefixCompleterInterface
	for _, name := range replOrder {
		switch name {
		case "group":
			items = append(items, readline.PcItem(name, dates))
		case "refresh":
			items = append(items, readline.PcItem(name, intervals...))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// isTerminal reports whether in is an interactive terminal.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
