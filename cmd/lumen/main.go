package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mikey-austin/lumen/internal/adapters/clock"
	"github.com/mikey-austin/lumen/internal/adapters/config"
	"github.com/mikey-austin/lumen/internal/adapters/idgen"
	"github.com/mikey-austin/lumen/internal/adapters/mqtt"
	"github.com/mikey-austin/lumen/internal/adapters/output"
	"github.com/mikey-austin/lumen/internal/core"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

type app struct {
	service core.Service
	printer output.Printer
	host    string
	timeout time.Duration
	close   func()
}

// offline marks commands that never talk to a broker.
const offline = "offline"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lumen",
		Short:         "Control lumen wallpaper hosts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var (
		broker    string
		topicBase string
		identity  string
		host      string
		timeout   time.Duration
		jsonOut   bool
		noColor   bool
		tlsCA     string
		tlsCert   string
		tlsKey    string
		userOpt   string
		passOpt   string
	)

	root.PersistentFlags().StringVarP(&broker, "broker", "b", "", "MQTT broker URL")
	root.PersistentFlags().StringVar(&topicBase, "topic-base", lumen.BaseTopic, "MQTT topic base")
	root.PersistentFlags().StringVarP(&identity, "identity", "i", "", "controller identity")
	root.PersistentFlags().StringVarP(&host, "host", "H", "", "wallpaper host (name, alias or node id)")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "command timeout")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color")
	root.PersistentFlags().StringVar(&tlsCA, "tls-ca", "", "TLS CA path")
	root.PersistentFlags().StringVar(&tlsCert, "tls-cert", "", "TLS cert path")
	root.PersistentFlags().StringVar(&tlsKey, "tls-key", "", "TLS key path")
	root.PersistentFlags().StringVar(&userOpt, "user", "", "MQTT username")
	root.PersistentFlags().StringVar(&passOpt, "pass", "", "MQTT password")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if noColor {
			pterm.DisableColor()
		}
		printer := output.New(cmd.OutOrStdout(), jsonOut)
		if _, ok := cmd.Annotations[offline]; ok {
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{printer: printer, timeout: timeout}))
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return core.WrapError(core.ExitUsage, "load config", err)
		}
		identity = defaultIdentity(identity, cfg.Identity)
		if broker == "" {
			broker = cfg.Broker
		}
		if topicBase == lumen.BaseTopic && cfg.TopicBase != "" {
			topicBase = cfg.TopicBase
		}
		if broker == "" {
			return &core.CLIError{Code: core.ExitUsage, Msg: "broker is required (set --broker or config)"}
		}
		if userOpt == "" {
			userOpt, passOpt = cfg.Auth.User, cfg.Auth.Pass
		}
		if tlsCA == "" && tlsCert == "" && tlsKey == "" {
			tlsCA, tlsCert, tlsKey = cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key
		}

		clientID := fmt.Sprintf("lumen-%d", time.Now().UnixNano())
		mqttClient, err := mqtt.NewClient(mqtt.Options{
			BrokerURL: broker,
			ClientID:  clientID,
			Username:  userOpt,
			Password:  passOpt,
			TLSCA:     tlsCA,
			TLSCert:   tlsCert,
			TLSKey:    tlsKey,
			TopicBase: topicBase,
			Timeout:   timeout,
		})
		if err != nil {
			return core.WrapError(core.ExitRuntime, "connect to broker", err)
		}

		coreCfg := core.Config{
			Broker:    broker,
			Identity:  identity,
			TopicBase: topicBase,
			Aliases:   cfg.Aliases,
			Defaults:  core.Defaults{Host: cfg.Defaults.Host},
		}
		service := core.Service{
			Broker:   mqttClient,
			Resolver: core.Resolver{Presence: mqttClient, Config: coreCfg},
			Clock:    clock.Clock{},
			IDGen:    idgen.Generator{},
			Config:   coreCfg,
		}

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{
			service: service,
			printer: printer,
			host:    host,
			timeout: timeout,
			close:   mqttClient.Close,
		}))
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if a := fromContext(cmd); a != nil && a.close != nil {
			a.close()
		}
	}

	root.AddCommand(applyCommand())
	root.AddCommand(disableCommand())
	root.AddCommand(pauseCommand())
	root.AddCommand(resumeCommand())
	root.AddCommand(quitCommand())
	root.AddCommand(statusCommand())
	root.AddCommand(lsCommand())
	root.AddCommand(layoutCommand())
	return root
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func defaultIdentity(flagVal string, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if cfgVal != "" {
		return cfgVal
	}
	usr, _ := user.Current()
	host, _ := os.Hostname()
	if usr != nil && host != "" {
		return fmt.Sprintf("%s@%s", usr.Username, host)
	}
	if host != "" {
		return host
	}
	return "lumen-unknown"
}

func readFileOrStdin(in io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}
