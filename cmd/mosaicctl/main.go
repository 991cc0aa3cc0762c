// mosaicctl is the command-line companion to mosaicedit. It manages saved
// projects and renders blurred stills without opening the editor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"mosaicedit/internal/config"
	"mosaicedit/internal/logging"
	"mosaicedit/internal/store"
)

var (
	configPath = flag.String("config", "", "path to config file")
)

func main() {
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	if flag.NArg() < 1 {
		usage(os.Stderr)
		os.Exit(1)
	}

	if err := run(*configPath, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func usage(w io.Writer) {
	fmt.Fprintln(w, `mosaicctl - Project utility for mosaicedit

Usage: mosaicctl [options] <command> [args]

Commands:
  projects                                  List saved projects
  new <name> <video>                        Create an empty project for a video
  show <project>                            Print a project's regions in z-order
  add <project> <x> <y> <w> <h> <start> <end>
                                            Append a blur region
  delete <project> <region>                 Delete a region
  remove <project>                          Delete a project and its regions
  render <project> <time> <out.png> [video] Render the blurred frame at a time
  frames <project> <from> <to> <dir> [video]
                                            Play a time range and save each
                                            blurred frame as a PNG
  export <project> [out.json]               Write a project file
  import <file.json>                        Validate and save a project file
  status                                    Show database and migration status
  help                                      Show this help message

Options:
  -config <path>  Path to config file (default: platform config dir/config.toml)`)
}

// cli holds what every command needs. Commands write to out.
type cli struct {
	cfg *config.Config
	log *logging.Logger
	out io.Writer
	db  *store.Store
}

func run(cfgPath string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "help" {
		usage(out)
		return nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lcfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	lcfg.Component = "mosaicctl"
	log, err := logging.New(lcfg)
	if err != nil {
		return err
	}
	defer log.Close()

	db, err := store.OpenWithOptions(cfg.Storage.Path, store.Options{BusyTimeout: cfg.BusyTimeout(), Logger: log.Logger})
	if err != nil {
		return err
	}
	defer db.Close()

	c := &cli{cfg: cfg, log: log, out: out, db: db}
	rest := args[1:]

	switch args[0] {
	case "projects":
		return c.projects()
	case "new":
		if len(rest) != 2 {
			return fmt.Errorf("%w: new <name> <video>", errUsage)
		}
		return c.newProject(rest[0], rest[1])
	case "show":
		if len(rest) != 1 {
			return fmt.Errorf("%w: show <project>", errUsage)
		}
		return c.show(rest[0])
	case "add":
		if len(rest) != 7 {
			return fmt.Errorf("%w: add <project> <x> <y> <w> <h> <start> <end>", errUsage)
		}
		return c.add(rest[0], rest[1:])
	case "delete":
		if len(rest) != 2 {
			return fmt.Errorf("%w: delete <project> <region>", errUsage)
		}
		return c.deleteRegion(rest[0], rest[1])
	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("%w: remove <project>", errUsage)
		}
		return c.remove(rest[0])
	case "render":
		if len(rest) != 3 && len(rest) != 4 {
			return fmt.Errorf("%w: render <project> <time> <out.png> [video]", errUsage)
		}
		video := ""
		if len(rest) == 4 {
			video = rest[3]
		}
		return c.render(rest[0], rest[1], rest[2], video)
	case "frames":
		if len(rest) != 4 && len(rest) != 5 {
			return fmt.Errorf("%w: frames <project> <from> <to> <dir> [video]", errUsage)
		}
		video := ""
		if len(rest) == 5 {
			video = rest[4]
		}
		return c.frames(rest[0], rest[1], rest[2], rest[3], video)
	case "export":
		if len(rest) != 1 && len(rest) != 2 {
			return fmt.Errorf("%w: export <project> [out.json]", errUsage)
		}
		output := ""
		if len(rest) == 2 {
			output = rest[1]
		}
		return c.export(rest[0], output)
	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("%w: import <file.json>", errUsage)
		}
		return c.importFile(rest[0])
	case "status":
		return c.status()
	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, args[0])
	}
}
