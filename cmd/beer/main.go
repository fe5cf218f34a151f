package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"beer/cmd/internal/app"
	"beer/cmd/internal/notify"
)

var opts struct {
	ConfigFile string
	Addr       string

	URL      string
	APIKey   string
	EventID  string
	Timeout  time.Duration
	Username string
	Password string
}

var configFlag = &cli.StringFlag{
	Name:        "config",
	Usage:       "YAML config file; BEER_* env vars override it",
	EnvVars:     []string{"BEER_CONFIG_FILE"},
	Destination: &opts.ConfigFile,
}

func main() {
	cliApp := &cli.App{
		Name:  "beer",
		Usage: "live refresh service for beer event pages",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP and websocket server",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:        "addr",
						Usage:       "listen address",
						EnvVars:     []string{"BEER_HTTP_ADDR"},
						Destination: &opts.Addr,
					},
				},
				Action: serve,
			},
			{
				Name:  "notify",
				Usage: "tell every viewer of an event to reload",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "url",
						Usage:       "base URL of the refresh service",
						Value:       "http://127.0.0.1:8080",
						EnvVars:     []string{"BEER_URL"},
						Destination: &opts.URL,
					},
					&cli.StringFlag{
						Name:        "api-key",
						Usage:       "shared trigger secret",
						Required:    true,
						EnvVars:     []string{"BEER_API_KEY"},
						Destination: &opts.APIKey,
					},
					&cli.StringFlag{
						Name:        "event",
						Usage:       "event id",
						Required:    true,
						Destination: &opts.EventID,
					},
					&cli.DurationFlag{
						Name:        "timeout",
						Value:       10 * time.Second,
						Destination: &opts.Timeout,
					},
				},
				Action: notifyAction,
			},
			{
				Name:  "useradd",
				Usage: "create a login on the configured database",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:        "username",
						Required:    true,
						Destination: &opts.Username,
					},
					&cli.StringFlag{
						Name:        "password",
						Usage:       "password; read from stdin when empty",
						EnvVars:     []string{"BEER_USERADD_PASSWORD"},
						Destination: &opts.Password,
					},
				},
				Action: useradd,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func loadConfig(c *cli.Context) (app.Config, error) {
	cfg, err := app.LoadConfig(opts.ConfigFile)
	if err != nil {
		return app.Config{}, err
	}
	if c.IsSet("addr") {
		cfg.HTTPAddr = opts.Addr
	}
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return app.Serve(cfg)
}

func notifyAction(c *cli.Context) error {
	client, err := notify.New(opts.URL, opts.APIKey, notify.WithHTTPClient(&http.Client{Timeout: opts.Timeout}))
	if err != nil {
		return err
	}
	if err := client.Refresh(c.Context, opts.EventID); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "refreshed %s\n", opts.EventID)
	return nil
}

func useradd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	pw := opts.Password
	if pw == "" {
		pw, err = readPassword(c.App.Reader)
		if err != nil {
			return err
		}
	}

	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	u, err := app.AddUser(ctx, cfg, log, opts.Username, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created %s (%s)\n", u.Username, u.ID)
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("useradd: no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
