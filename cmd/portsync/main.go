// Command portsync reads and writes records of a document database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/api"
	"github.com/safing/portsync/config"
	"github.com/safing/portsync/info"
	"github.com/safing/portsync/log"
	"github.com/safing/portsync/model"
)

const cfgLogLevelKey = "log/level"

var (
	configFile  string
	dbName      string
	storageType string
	location    string
	logLevel    string
	dump        bool
	listen      string
	purgeAge    time.Duration

	errUsage = errors.New("usage")
)

func init() {
	flag.StringVar(&configFile, "config", "", "config file (json or yaml)")
	flag.StringVar(&dbName, "db", "", "database name, overrides database/name")
	flag.StringVar(&storageType, "storage", "", "storage type, overrides database/storageType")
	flag.StringVar(&location, "location", "", "database location, overrides database/location")
	flag.StringVar(&logLevel, "log", "", "log level: trace, debug, info, warning, error or critical")
	flag.BoolVar(&dump, "dump", false, "dump records with all details instead of printing json")
	flag.StringVar(&listen, "listen", "", "listen address of serve, overrides api/listenAddress")
	flag.DurationVar(&purgeAge, "purge-age", 0, "minimum age of deleted documents purged by maintain, 0 purges all")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] <command>

Commands:
  list <type>                        list all records of a type
  get <type> <id>                    print a record
  create <type> <json>               create a record
  set <type> <id> <path> <value>     set an attribute, path in gjson syntax
  delete <type> <id>                 delete a record
  maintain                           purge deleted documents
  options                            print the configuration options
  serve                              serve the HTTP API
  version                            print version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	info.Set("portsync", "0.1.0", "GPLv3")
	flag.Parse()
	os.Exit(execute(flag.Args(), os.Stdout))
}

// execute runs the command in args and returns the exit code.
func execute(args []string, out io.Writer) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}
	if args[0] == "version" {
		fmt.Fprintln(out, info.FullVersion())
		return 0
	}

	if err := setup(); err != nil {
		return exitCode(err)
	}
	_ = log.Start()
	defer log.Shutdown()
	defer func() {
		if err := adapter.Reset(); err != nil {
			log.Warningf("main: failed to shut down database: %s", err)
		}
	}()

	a := adapter.New(model.NewRegistry())
	var err error
	switch args[0] {
	case "list":
		err = list(a, args[1:], out)
	case "get":
		err = get(a, args[1:], out)
	case "create":
		err = create(a, args[1:], out)
	case "set":
		err = set(a, args[1:], out)
	case "delete":
		err = remove(a, args[1:], out)
	case "maintain":
		err = maintain(out)
	case "options":
		err = printOptions(out)
	case "serve":
		return serve(a)
	default:
		err = fmt.Errorf("%w: unknown command %s", errUsage, args[0])
	}

	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "portsync: %s\n", err)
		flag.Usage()
		return 2
	default:
		fmt.Fprintf(os.Stderr, "portsync: %s\n", err)
		return 1
	}
}

// setup registers the options, loads the config file and configures the
// adapter and logging, with flags taking precedence.
func setup() error {
	if err := registerOptions(); err != nil {
		return err
	}
	if configFile != "" {
		if err := config.LoadConfig(configFile); err != nil {
			return err
		}
	}

	level := logLevel
	if level == "" {
		level = config.GetAsString(cfgLogLevelKey, "info")()
	}
	severity := log.ParseLevel(level)
	if severity == 0 {
		return fmt.Errorf("%w: invalid log level %s", errUsage, level)
	}
	log.SetLogLevel(severity)

	cfg, err := adapter.ConfigurationFromOptions()
	if err != nil {
		return err
	}
	if dbName != "" {
		cfg.Name = dbName
	}
	if location != "" {
		cfg.Location = location
	}
	if storageType != "" {
		cfg.StorageType = storageType
	}
	return adapter.Configure(cfg)
}

func registerOptions() error {
	if err := adapter.RegisterOptions(); err != nil {
		return err
	}
	if err := api.RegisterOptions(); err != nil {
		return err
	}

	if _, err := config.GetOption(cfgLogLevelKey); err == nil {
		return nil
	}
	return config.Register(&config.Option{
		Name:            "Log Level",
		Key:             cfgLogLevelKey,
		Description:     "Minimum severity of written log lines.",
		OptType:         config.OptTypeString,
		DefaultValue:    "info",
		ValidationRegex: "^(" + strings.Join([]string{"trace", "debug", "info", "warning", "error", "critical"}, "|") + ")$",
	})
}
