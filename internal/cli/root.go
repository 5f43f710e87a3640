package cli

import (
	"os"
	"path/filepath"
	"time"

	"coined-client/internal/api"
	"coined-client/internal/config"
	filestore "coined-client/internal/infra/file"
	redisstore "coined-client/internal/infra/redis"
	"coined-client/internal/notify"
	"coined-client/internal/session"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envAPI := os.Getenv("COINED_API_URL")
	if envAPI == "" {
		envAPI = "http://localhost:5001/api"
	}
	envConfig := os.Getenv("COINED_CONFIG")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "coined",
		Short: "Client for the CoinEd classroom portal",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiURL, "api", envAPI, "portal API base URL")
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStudentsCmd())
	cmd.AddCommand(newShopCmd())
	cmd.AddCommand(newQuizCmd())
	cmd.AddCommand(newTakeCmd())
	return cmd
}

// app bundles the wired engine for one CLI invocation.
type app struct {
	store        *session.Store
	toasts       *notify.Center
	advanceDelay time.Duration
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	baseURL := apiURL
	if cfg.API.BaseURL != "" {
		baseURL = cfg.API.BaseURL
	}

	var tokens api.TokenStore
	if cfg.Token.Redis.Addr != "" {
		tokens = redisstore.NewTokenStore(goredis.NewClient(&goredis.Options{
			Addr:     cfg.Token.Redis.Addr,
			Password: cfg.Token.Redis.Password,
			DB:       cfg.Token.Redis.DB,
		}))
	} else {
		dir := cfg.Token.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(home, ".coined")
		}
		tokens = filestore.NewTokenStore(dir)
	}

	// The quiz flow relies on auto-advance; a zero delay would stall it.
	advance := config.Duration(cfg.Quiz.AdvanceDelay, 800*time.Millisecond)
	if advance <= 0 {
		advance = 800 * time.Millisecond
	}

	client := api.NewClient(baseURL, tokens, config.Duration(cfg.API.Timeout, 15*time.Second))
	return &app{
		store:        session.NewStore(client, tokens),
		toasts:       notify.NewCenter(config.Duration(cfg.Notify.TTL, notify.DefaultTTL)),
		advanceDelay: advance,
	}, nil
}

// toast routes an operation outcome through the notification slot and
// prints whatever is currently visible.
func (a *app) toast(cmd *cobra.Command, text string, kind notify.Kind) {
	a.toasts.Show(text, kind)
	if msg, ok := a.toasts.Current(); ok {
		prefix := "ok"
		if msg.Kind == notify.Error {
			prefix = "error"
		}
		cmd.Printf("[%s] %s\n", prefix, msg.Text)
	}
}
