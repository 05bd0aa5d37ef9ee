// Command paperback-core is a thin CLI front end over the reading-core
// library: it opens a document with the full parser registry, prints its
// stats and table of contents, runs a text search, or checks for a new
// release, exercising the same registry/session/reader wiring a GUI shell
// would drive. Modeled on the teacher's cmd/fbc/main.go command structure:
// a root cli.Command with Before/After hooks preparing and tearing down
// shared state, graceful shutdown on interrupt, and errors returned (not
// cli.Exit'd) from subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/trypsynth/paperback-core/internal/configstore"
	"github.com/trypsynth/paperback-core/internal/corelog"
	"github.com/trypsynth/paperback-core/internal/docmodel"
	"github.com/trypsynth/paperback-core/internal/dochandle"
	"github.com/trypsynth/paperback-core/internal/parser"
	"github.com/trypsynth/paperback-core/internal/parsers/chm"
	"github.com/trypsynth/paperback-core/internal/parsers/docx"
	"github.com/trypsynth/paperback-core/internal/parsers/epub"
	"github.com/trypsynth/paperback-core/internal/parsers/fb2"
	"github.com/trypsynth/paperback-core/internal/parsers/markdown"
	"github.com/trypsynth/paperback-core/internal/parsers/odp"
	"github.com/trypsynth/paperback-core/internal/parsers/odt"
	"github.com/trypsynth/paperback-core/internal/parsers/pdf"
	"github.com/trypsynth/paperback-core/internal/parsers/plaintext"
	"github.com/trypsynth/paperback-core/internal/parsers/pptx"
	"github.com/trypsynth/paperback-core/internal/parsers/rtf"
	"github.com/trypsynth/paperback-core/internal/parsers/xhtml"
	"github.com/trypsynth/paperback-core/internal/parsers/xml"
	"github.com/trypsynth/paperback-core/internal/reader"
	"github.com/trypsynth/paperback-core/internal/registry"
	"github.com/trypsynth/paperback-core/internal/session"
	"github.com/trypsynth/paperback-core/internal/updatecheck"
)

const appName = "paperback-core"

// defaultReleaseURL is the GitHub-style "latest release" API endpoint
// check-update queries when --release-url is not given.
const defaultReleaseURL = "https://api.github.com/repos/trypsynth/paperback/releases/latest"

// env bundles the state Before prepares and After tears down, threaded
// through the context the same way the teacher's state.Env is.
type env struct {
	log     *zap.Logger
	store   *configstore.Store
	reg     *registry.Registry
	started bool
}

type envKey struct{}

func envFromContext(ctx context.Context) *env {
	e, _ := ctx.Value(envKey{}).(*env)
	if e == nil {
		return &env{log: zap.NewNop()}
	}
	return e
}

// buildRegistry wires every implemented format parser into one registry.
// This is the single place in the module where the complete parser set is
// assembled; every new parser package earns its line here.
func buildRegistry() *registry.Registry {
	return registry.New(
		plaintext.New(),
		xml.New(),
		xhtml.New(),
		markdown.New(),
		fb2.New(),
		epub.New(),
		pdf.New(),
		docx.New(),
		odt.New(),
		pptx.New(),
		odp.New(),
		chm.New(),
		rtf.New(),
	)
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "dev"
	}
	return info.Main.Version
}

func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}

	log, err := corelog.New(corelog.Config{
		ConsoleLevel: corelog.Level(cmd.String("log-level")),
		FilePath:     cmd.String("log-file"),
	})
	if err != nil {
		return ctx, fmt.Errorf("preparing logger: %w", err)
	}

	configPath := cmd.String("config")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return ctx, fmt.Errorf("preparing config directory: %w", err)
	}
	store, err := configstore.Open(configPath)
	if err != nil {
		return ctx, fmt.Errorf("opening config store: %w", err)
	}

	e := &env{log: log, store: store, reg: buildRegistry(), started: true}
	log.Debug("program started", zap.Strings("args", os.Args), zap.String("version", version()))
	return context.WithValue(ctx, envKey{}, e), nil
}

func destroyAppContext(ctx context.Context, _ *cli.Command) error {
	e := envFromContext(ctx)
	if !e.started {
		return nil
	}
	e.log.Debug("program ended")
	var err error
	if e.store != nil {
		if serr := e.store.Save(); serr != nil {
			err = multierr.Append(err, fmt.Errorf("saving config store: %w", serr))
		}
	}
	if serr := e.log.Sync(); serr != nil && !errors.Is(serr, syscall.ENOTTY) && !errors.Is(serr, syscall.EINVAL) {
		err = multierr.Append(err, fmt.Errorf("syncing logger: %w", serr))
	}
	return err
}

// errWasHandled suppresses the duplicate stderr message in main's deferred
// exit handler once exitErrHandler has already logged the failure, exactly
// as the teacher's own flag of the same name does.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.started {
		e.log.Error("program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	envFromContext(ctx).log.Warn("unknown command, nothing to do", zap.String("command", name))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            appName,
		Usage:           "open, search, and inspect documents with the paperback reading core",
		Version:         version(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath(), Usage: "configuration/state store `FILE` (INI)"},
			&cli.StringFlag{Name: "log-level", Value: "normal", Usage: "console log level: none, normal, debug"},
			&cli.StringFlag{Name: "log-file", Usage: "also write logs to `FILE`"},
		},
		Commands: []*cli.Command{
			openCommand(),
			searchCommand(),
			checkUpdateCommand(),
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return appName + ".ini"
	}
	return filepath.Join(dir, appName, "config.ini")
}

// openDocument resolves and parses path (optionally under a forced
// extension or with a password), then wraps the result in the same
// handle/session pair a GUI shell would hold onto for the life of a view.
func openDocument(e *env, path, password, forcedExt string) (*session.Session, error) {
	p, err := e.reg.Resolve(path, forcedExt)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(parser.Context{FilePath: path, Password: password, ForcedExtension: forcedExt})
	if err != nil {
		return nil, fmt.Errorf("%s", parser.RenderOpenError(err))
	}
	h := dochandle.New(doc)
	return session.New(h, path, p.SupportedFlags(), e.log), nil
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "parse a document and print its stats and table of contents",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Usage: "password for an encrypted PDF"},
			&cli.StringFlag{Name: "extension", Usage: "force dispatch to the parser registered for `EXT`"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().Get(0)
			if path == "" {
				return fmt.Errorf("open: PATH is required")
			}
			e := envFromContext(ctx)
			sess, err := openDocument(e, path, cmd.String("password"), cmd.String("extension"))
			if err != nil {
				return err
			}
			printStats(sess)
			printTOC(sess)
			return nil
		},
	}
}

func printStats(sess *session.Session) {
	h := sess.Handle()
	doc := h.Document()
	fmt.Printf("title:   %s\n", doc.Title)
	fmt.Printf("author:  %s\n", doc.Author)
	fmt.Printf("words:   %d\n", doc.Stats.WordCount)
	fmt.Printf("lines:   %d\n", doc.Stats.LineCount)
	fmt.Printf("chars:   %d\n", doc.Stats.CharCount)
	fmt.Printf("markers: %d\n", len(h.Markers()))
}

func printTOC(sess *session.Session) {
	items := sess.Handle().Document().TocItems
	if len(items) == 0 {
		return
	}
	fmt.Println("table of contents:")
	for _, item := range items {
		printTocItem(item, 0)
	}
}

func printTocItem(item *docmodel.TocItem, depth int) {
	fmt.Printf("%s- %s\n", strings.Repeat("  ", depth), item.Name)
	for _, child := range item.Children {
		printTocItem(child, depth+1)
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search a document's text, wrapping if no match is found before the end",
		ArgsUsage: "PATH NEEDLE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "backward", Usage: "search backward from --start"},
			&cli.BoolFlag{Name: "match-case", Usage: "case-sensitive match"},
			&cli.BoolFlag{Name: "whole-word", Usage: "match whole words only"},
			&cli.BoolFlag{Name: "regex", Usage: "treat NEEDLE as a regular expression"},
			&cli.IntFlag{Name: "start", Usage: "start position, in display units"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, needle := cmd.Args().Get(0), cmd.Args().Get(1)
			if path == "" || needle == "" {
				return fmt.Errorf("search: PATH and NEEDLE are required")
			}
			e := envFromContext(ctx)
			sess, err := openDocument(e, path, "", "")
			if err != nil {
				return err
			}
			content := sess.Handle().Document().Buffer.Content
			result := reader.SearchWithWrap(reader.SearchRequest{
				Haystack:  content,
				Needle:    needle,
				Start:     int64(cmd.Int("start")),
				Forward:   !cmd.Bool("backward"),
				MatchCase: cmd.Bool("match-case"),
				WholeWord: cmd.Bool("whole-word"),
				IsRegex:   cmd.Bool("regex"),
			})
			if result.Offset < 0 {
				fmt.Println("no match")
				return nil
			}
			fmt.Printf("match at %d (wrapped=%t)\n", result.Offset, result.Wrapped)
			fmt.Println(sess.GetLineText(result.Offset))
			return nil
		},
	}
}

func checkUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-update",
		Usage: "check a GitHub-style release feed for a newer version",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "release-url", Value: defaultReleaseURL, Usage: "release descriptor `URL`"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			result, err := updatecheck.Check(ctx, nil, cmd.String("release-url"), version())
			if err != nil {
				return err
			}
			if result.Kind == updatecheck.UpToDate {
				fmt.Println("up to date")
				return nil
			}
			fmt.Printf("update available: %s\n%s\n%s\n", result.LatestVersion, result.ReleaseNotes, result.DownloadURL)
			return nil
		},
	}
}
